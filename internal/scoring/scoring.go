// Package scoring implements the relevance scorer: a fixed five-factor
// weighted sum combining semantic similarity (from the vector index),
// symbol overlap, path proximity, recency, and access frequency into a
// single score in [0,1].
package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/fyrsmithlabs/ctxforge/internal/index"
	"github.com/fyrsmithlabs/ctxforge/internal/intent"
)

const (
	weightSemantic  = 0.40
	weightSymbol    = 0.25
	weightProximity = 0.20
	weightRecency   = 0.10
	weightFrequency = 0.05
)

// Breakdown carries each weighted factor verbatim, independently clamped
// to [0,1] before combination.
type Breakdown struct {
	Semantic  float64
	Symbol    float64
	Proximity float64
	Recency   float64
	Frequency float64
}

// Scored is a chunk plus its relevance score and breakdown.
type Scored struct {
	Chunk          index.Chunk
	RelevanceScore float64
	Breakdown      Breakdown
}

// Context carries request-scoped signals the scorer needs beyond the
// chunk and its semantic similarity.
type Context struct {
	CurrentFile     string
	CurrentDir      string
	Now             time.Time
	PreferredLang   string
}

// Candidate is a chunk retrieved from the index along with its semantic
// similarity and current access count.
type Candidate struct {
	Chunk       index.Chunk
	Semantic    float64
	AccessCount int64
}

// Score combines a candidate's signals into a Scored value.
func Score(c Candidate, qi intent.QueryIntent, ctx Context) Scored {
	b := Breakdown{
		Semantic:  clamp01(c.Semantic),
		Symbol:    clamp01(symbolScore(c.Chunk, qi)),
		Proximity: clamp01(proximityScore(c.Chunk, ctx)),
		Recency:   clamp01(recencyScore(c.Chunk, ctx)),
		Frequency: clamp01(frequencyScore(c.AccessCount)),
	}
	score := weightSemantic*b.Semantic +
		weightSymbol*b.Symbol +
		weightProximity*b.Proximity +
		weightRecency*b.Recency +
		weightFrequency*b.Frequency

	return Scored{Chunk: c.Chunk, RelevanceScore: clamp01(score), Breakdown: b}
}

// ScoreAll scores every candidate against the same intent and context.
func ScoreAll(candidates []Candidate, qi intent.QueryIntent, ctx Context) []Scored {
	out := make([]Scored, len(candidates))
	for i, c := range candidates {
		out[i] = Score(c, qi, ctx)
	}
	return out
}

func proximityScore(c index.Chunk, ctx Context) float64 {
	if ctx.CurrentFile != "" && c.FilePath == ctx.CurrentFile {
		return 1.0
	}
	if ctx.CurrentDir != "" && sameDir(c.FilePath, ctx.CurrentDir) {
		return 0.8
	}
	if ctx.CurrentDir == "" {
		return 0.1
	}
	hops := dirHopDistance(c.FilePath, ctx.CurrentDir)
	v := 0.5 * (1 - minF(1, float64(hops)/5))
	return math.Max(0.1, v)
}

func sameDir(filePath, dir string) bool {
	return dirOf(filePath) == strings.TrimRight(dir, "/")
}

func dirOf(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

func dirHopDistance(filePath, dir string) int {
	fd := strings.Split(strings.Trim(dirOf(filePath), "/"), "/")
	dd := strings.Split(strings.Trim(dir, "/"), "/")
	common := 0
	for common < len(fd) && common < len(dd) && fd[common] == dd[common] {
		common++
	}
	return (len(fd) - common) + (len(dd) - common)
}

func symbolScore(c index.Chunk, qi intent.QueryIntent) float64 {
	best := 0.0
	for _, e := range qi.Entities {
		if e.Type != intent.EntitySymbol && e.Type != intent.EntityTypeName {
			continue
		}
		v := matchEntity(e.Value, c)
		if v > best {
			best = v
		}
	}
	return best
}

func matchEntity(value string, c index.Chunk) float64 {
	lv := strings.ToLower(value)
	if strings.Contains(strings.ToLower(c.Name), lv) {
		return 1.0
	}
	for _, s := range c.Symbols {
		if strings.Contains(strings.ToLower(s), lv) {
			return 1.0
		}
	}
	if strings.HasPrefix(strings.ToLower(c.Name), lv) {
		return 0.7
	}
	for _, s := range c.Symbols {
		if strings.HasPrefix(strings.ToLower(s), lv) {
			return 0.7
		}
	}
	if levenshteinRatio(lv, strings.ToLower(c.Name)) >= 0.8 {
		return 0.5
	}
	for _, s := range c.Symbols {
		if levenshteinRatio(lv, strings.ToLower(s)) >= 0.8 {
			return 0.5
		}
	}
	return 0
}

func recencyScore(c index.Chunk, ctx Context) float64 {
	now := ctx.Now
	if now.IsZero() {
		now = time.Now()
	}
	days := now.Sub(c.CreatedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	return clamp01(math.Exp(-0.1 * days))
}

func frequencyScore(accessCount int64) float64 {
	return minF(1, float64(accessCount)/100)
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

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// LevenshteinRatio is the exported, tested form of the fuzzy symbol match
// helper: 1 - (edit distance / max length), in [0,1].
func LevenshteinRatio(a, b string) float64 {
	return levenshteinRatio(a, b)
}

func levenshteinRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshteinDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
