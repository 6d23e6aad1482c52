// Package index implements the in-process vector index: a brute-force,
// filtered cosine-similarity store of CodeChunks and their embeddings.
// It is the reference implementation of the Backend interface; pluggable
// backends (internal/vectorstore) satisfy the same narrow contract so the
// search path can migrate to an approximate-nearest-neighbor structure
// without changing callers.
package index

import (
	"context"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fyrsmithlabs/ctxforge/internal/optimizererr"
)

// Backend is the narrow contract a retrieval source must satisfy to stand
// in for the in-process Index. internal/vectorstore's chromem and Qdrant
// stores implement Backend over persistent collections; *Index is the
// reference, in-memory implementation.
type Backend interface {
	Insert(chunk Chunk) error
	SearchCtx(ctx context.Context, query []float32, opts SearchOptions) (SearchResults, error)
	Stats() Stats
	Close() error
}

// cancelCheckInterval is how many entries Search evaluates between
// ctx.Err() checks, bounding the worst-case latency of observing
// cancellation without paying for a channel read on every entry.
const cancelCheckInterval = 64

// Chunk is a unit of retrievable source code with a precomputed embedding.
type Chunk struct {
	ID        string
	FilePath  string
	Name      string
	Kind      string
	Language  string
	StartLine int
	EndLine   int
	Content   string
	Embedding []float32
	Checksum  string
	CreatedAt time.Time
	Symbols   []string
}

// entry is a Chunk plus the mutable counters the index tracks across
// searches.
type entry struct {
	chunk        Chunk
	accessCount  int64
	lastAccessed time.Time
}

// Stats summarizes index contents.
type Stats struct {
	Total           int
	ByLanguage      map[string]int
	IndexSizeBytes  int64
	LastUpdated     time.Time
}

// SearchOptions filters and bounds a search call.
type SearchOptions struct {
	PathGlob     string
	Language     string
	MinRelevance float64
	Limit        int
}

// SearchResult is a single surviving entry plus its similarity and the
// access snapshot at search time.
type SearchResult struct {
	Chunk      Chunk
	Semantic   float64
	AccessCount int64
}

// SearchResults is the outcome of a search call.
type SearchResults struct {
	Results        []SearchResult
	TotalEvaluated int
	SearchTime     time.Duration
}

// Clock supplies monotonic time, substitutable in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Index is a mutually-exclusive, in-memory store of Chunks. Insertion,
// deletion, and search are serialized against each other.
type Index struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]*entry
	byLang    map[string]int
	clock     Clock
	sizeBytes int64
}

// New creates an empty Index expecting embeddings of the given dimension.
func New(dimension int) *Index {
	return &Index{
		dimension: dimension,
		entries:   make(map[string]*entry),
		byLang:    make(map[string]int),
		clock:     systemClock{},
	}
}

// NewWithClock is New with an injectable Clock, used by tests.
func NewWithClock(dimension int, clock Clock) *Index {
	idx := New(dimension)
	idx.clock = clock
	return idx
}

// Insert validates and stores a chunk, replacing any prior entry with the
// same id (I1).
func (idx *Index) Insert(chunk Chunk) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.insertLocked(chunk)
}

// InsertBatch inserts multiple chunks, failing fast on the first invalid
// one and rejecting a batch that contains a duplicate id (IndexError).
func (idx *Index) InsertBatch(chunks []Chunk) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	seen := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		if seen[c.ID] {
			return optimizererr.New(optimizererr.KindIndex, "duplicate id %q within insert batch", c.ID)
		}
		seen[c.ID] = true
	}
	for _, c := range chunks {
		if err := idx.insertLocked(c); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) insertLocked(chunk Chunk) error {
	if chunk.ID == "" {
		return optimizererr.New(optimizererr.KindValidation, "chunk id must not be empty")
	}
	if chunk.FilePath == "" {
		return optimizererr.New(optimizererr.KindValidation, "chunk file_path must not be empty")
	}
	if chunk.Content == "" {
		return optimizererr.New(optimizererr.KindValidation, "chunk content must not be empty")
	}
	if len(chunk.Embedding) != idx.dimension {
		return optimizererr.New(optimizererr.KindValidation, "chunk %q embedding dimension %d does not match index dimension %d", chunk.ID, len(chunk.Embedding), idx.dimension)
	}

	if prev, ok := idx.entries[chunk.ID]; ok {
		idx.byLang[prev.chunk.Language]--
		idx.sizeBytes -= estimateSize(prev.chunk)
	}

	idx.entries[chunk.ID] = &entry{chunk: chunk, lastAccessed: idx.clock.Now()}
	idx.byLang[chunk.Language]++
	idx.sizeBytes += estimateSize(chunk)
	return nil
}

// Get returns the chunk stored under id, if any.
func (idx *Index) Get(id string) (Chunk, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[id]
	if !ok {
		return Chunk{}, false
	}
	return e.chunk, true
}

// Delete removes the chunk stored under id, if any.
func (idx *Index) Delete(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	e, ok := idx.entries[id]
	if !ok {
		return
	}
	idx.byLang[e.chunk.Language]--
	idx.sizeBytes -= estimateSize(e.chunk)
	delete(idx.entries, id)
}

// Clear removes every chunk from the index.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = make(map[string]*entry)
	idx.byLang = make(map[string]int)
	idx.sizeBytes = 0
}

// Stats reports aggregate index state.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	byLang := make(map[string]int, len(idx.byLang))
	for k, v := range idx.byLang {
		if v > 0 {
			byLang[k] = v
		}
	}
	return Stats{
		Total:          len(idx.entries),
		ByLanguage:     byLang,
		IndexSizeBytes: idx.sizeBytes,
		LastUpdated:    idx.clock.Now(),
	}
}

// Search performs a filtered, brute-force cosine-similarity search. An
// empty query vector yields empty results, not an error (S1). Every entry
// that survives filtering has its access counters bumped, regardless of
// whether it made the final top-`limit` cut.
//
// Search cannot observe cancellation; callers that need a search to abort
// mid-scan should use SearchCtx instead.
func (idx *Index) Search(query []float32, opts SearchOptions) SearchResults {
	results, _ := idx.SearchCtx(context.Background(), query, opts)
	return results
}

// SearchCtx is Search with cooperative cancellation: the entry scan checks
// ctx.Err() every cancelCheckInterval entries and returns whatever was
// evaluated so far along with the context error once it fires.
func (idx *Index) SearchCtx(ctx context.Context, query []float32, opts SearchOptions) (SearchResults, error) {
	start := idx.clock.Now()
	if len(query) == 0 {
		return SearchResults{Results: nil, TotalEvaluated: 0, SearchTime: idx.clock.Now().Sub(start)}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	type scored struct {
		res SearchResult
		e   *entry
	}
	var survivors []scored
	evaluated := 0

	checked := 0
	for _, e := range idx.entries {
		checked++
		if checked%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return SearchResults{TotalEvaluated: evaluated, SearchTime: idx.clock.Now().Sub(start)}, err
			}
		}

		if opts.PathGlob != "" && !matchGlob(opts.PathGlob, e.chunk.FilePath) {
			continue
		}
		if opts.Language != "" && !strings.EqualFold(opts.Language, e.chunk.Language) {
			continue
		}
		evaluated++

		sem := clamp01(cosine(query, e.chunk.Embedding))
		if sem < opts.MinRelevance {
			continue
		}

		e.accessCount++
		e.lastAccessed = idx.clock.Now()

		survivors = append(survivors, scored{
			res: SearchResult{Chunk: e.chunk, Semantic: sem, AccessCount: e.accessCount},
			e:   e,
		})
	}

	if err := ctx.Err(); err != nil {
		return SearchResults{TotalEvaluated: evaluated, SearchTime: idx.clock.Now().Sub(start)}, err
	}

	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].res.Semantic != survivors[j].res.Semantic {
			return survivors[i].res.Semantic > survivors[j].res.Semantic
		}
		return survivors[i].res.Chunk.ID < survivors[j].res.Chunk.ID
	})

	if len(survivors) > limit {
		survivors = survivors[:limit]
	}

	results := make([]SearchResult, len(survivors))
	for i, s := range survivors {
		results[i] = s.res
	}

	return SearchResults{
		Results:        results,
		TotalEvaluated: evaluated,
		SearchTime:     idx.clock.Now().Sub(start),
	}, nil
}

// Close is a no-op for the in-memory reference backend, satisfying Backend
// for callers that treat every backend uniformly.
func (idx *Index) Close() error { return nil }

// Snapshot returns a deep, read-only copy of chunk metadata (not
// embeddings), useful for debugging without exposing mutable internals.
func (idx *Index) Snapshot() []Chunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]Chunk, 0, len(idx.entries))
	for _, e := range idx.entries {
		c := e.chunk
		c.Embedding = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func matchGlob(pattern, path string) bool {
	pattern = filepath.ToSlash(pattern)
	path = filepath.ToSlash(path)
	if strings.Contains(pattern, "**") {
		prefix := strings.SplitN(pattern, "**", 2)[0]
		suffix := strings.TrimPrefix(pattern, prefix+"**")
		suffix = strings.TrimPrefix(suffix, "/")
		return strings.HasPrefix(path, prefix) && (suffix == "" || strings.Contains(path, suffix))
	}
	ok, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	return ok
}

func estimateSize(c Chunk) int64 {
	return int64(len(c.Content)) + int64(len(c.Embedding)*8)
}
