package embeddings

import (
	"context"
	"hash/fnv"
	"math"
)

const fakeDimension = 384

// Fake is a deterministic embedding provider that hashes text into a
// fixed-dimension unit vector. It performs no network or model I/O and is
// used by tests and the CLI's --offline flag.
type Fake struct{}

// NewFake constructs a Fake embedding provider.
func NewFake() *Fake { return &Fake{} }

func (f *Fake) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashEmbed(t)
	}
	return out, nil
}

func (f *Fake) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return hashEmbed(text), nil
}

func (f *Fake) Dimension() int { return fakeDimension }

func (f *Fake) Close() error { return nil }

// hashEmbed derives a reproducible unit vector from text by seeding a
// simple PRNG from an FNV hash of each dimension index combined with the
// text, then normalizing.
func hashEmbed(text string) []float32 {
	vec := make([]float32, fakeDimension)
	var sumSquares float64
	for i := range vec {
		h := fnv.New64a()
		h.Write([]byte(text))
		h.Write([]byte{byte(i), byte(i >> 8)})
		v := float64(h.Sum64()%2000)/1000.0 - 1.0
		vec[i] = float32(v)
		sumSquares += v * v
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
