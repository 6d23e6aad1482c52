// Package selector implements budget-constrained greedy chunk selection:
// a fractional-knapsack-style pass ranked by score density, with an
// overage allowance for very-high-score chunks near the budget boundary
// and a diversity rebuild when selection clusters into too few files.
package selector

import (
	"sort"

	"github.com/fyrsmithlabs/ctxforge/internal/scoring"
)

// Options configures selection.
type Options struct {
	OverageAllowance float64
	MinRelevance     float64
	MaxChunks        int
	PreferDiversity  bool
}

// DefaultOptions returns the spec defaults.
func DefaultOptions() Options {
	return Options{OverageAllowance: 0.10, MinRelevance: 0.0, MaxChunks: 0}
}

// Candidate is a scored chunk plus its estimated token cost.
type Candidate struct {
	Scored          scoring.Scored
	EstimatedTokens int
}

const highScoreOverageThreshold = 0.8
const earlyStopFraction = 0.95

// Select runs the greedy density-ranked pass against a token budget.
func Select(candidates []Candidate, budget int, opts Options) []Candidate {
	if len(candidates) == 0 || budget <= 0 {
		return nil
	}

	filtered := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Scored.RelevanceScore >= opts.MinRelevance {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		filtered = []Candidate{highestDensity(candidates)}
	}

	ranked := make([]Candidate, len(filtered))
	copy(ranked, filtered)
	sort.SliceStable(ranked, func(i, j int) bool {
		di, dj := density(ranked[i]), density(ranked[j])
		if di != dj {
			return di > dj
		}
		return ranked[i].EstimatedTokens < ranked[j].EstimatedTokens
	})

	overageCap := float64(budget) * (1 + opts.OverageAllowance)
	earlyStop := float64(budget) * earlyStopFraction

	var selected []Candidate
	spent := 0
	for _, c := range ranked {
		if opts.MaxChunks > 0 && len(selected) >= opts.MaxChunks {
			break
		}
		cost := c.EstimatedTokens
		switch {
		case float64(spent+cost) <= float64(budget):
			selected = append(selected, c)
			spent += cost
		case float64(spent+cost) <= overageCap && c.Scored.RelevanceScore > highScoreOverageThreshold:
			selected = append(selected, c)
			spent += cost
		default:
			continue
		}
		if float64(spent) >= earlyStop {
			break
		}
	}

	if len(selected) == 0 {
		selected = []Candidate{ranked[0]}
	}

	if opts.PreferDiversity && len(selected) >= 2 && lacksDiversity(selected) {
		selected = diversityRebuild(ranked, budget)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Scored.RelevanceScore != selected[j].Scored.RelevanceScore {
			return selected[i].Scored.RelevanceScore > selected[j].Scored.RelevanceScore
		}
		return selected[i].Scored.Chunk.ID < selected[j].Scored.Chunk.ID
	})
	return selected
}

func density(c Candidate) float64 {
	if c.EstimatedTokens <= 0 {
		return c.Scored.RelevanceScore * 1000
	}
	denom := c.EstimatedTokens
	if denom < 1 {
		denom = 1
	}
	return c.Scored.RelevanceScore / float64(denom)
}

func highestDensity(candidates []Candidate) Candidate {
	best := candidates[0]
	bestDensity := density(best)
	for _, c := range candidates[1:] {
		if d := density(c); d > bestDensity {
			best, bestDensity = c, d
		}
	}
	return best
}

func lacksDiversity(selected []Candidate) bool {
	files := map[string]bool{}
	for _, c := range selected {
		files[c.Scored.Chunk.FilePath] = true
	}
	threshold := len(selected)
	if threshold > 5 {
		threshold = 5
	}
	return len(files) < threshold
}

func diversityRebuild(ranked []Candidate, budget int) []Candidate {
	bestPerFile := map[string]Candidate{}
	var fileOrder []string
	for _, c := range ranked {
		fp := c.Scored.Chunk.FilePath
		if cur, ok := bestPerFile[fp]; !ok || c.Scored.RelevanceScore > cur.Scored.RelevanceScore {
			if !ok {
				fileOrder = append(fileOrder, fp)
			}
			bestPerFile[fp] = c
		}
	}
	sort.SliceStable(fileOrder, func(i, j int) bool {
		return bestPerFile[fileOrder[i]].Scored.RelevanceScore > bestPerFile[fileOrder[j]].Scored.RelevanceScore
	})

	earlyStop := float64(budget) * earlyStopFraction
	spent := 0
	chosen := map[string]bool{}
	var out []Candidate

	for _, fp := range fileOrder {
		c := bestPerFile[fp]
		if float64(spent+c.EstimatedTokens) > float64(budget) {
			continue
		}
		out = append(out, c)
		chosen[c.Scored.Chunk.ID] = true
		spent += c.EstimatedTokens
		if float64(spent) >= earlyStop {
			return out
		}
	}

	for _, c := range ranked {
		if chosen[c.Scored.Chunk.ID] {
			continue
		}
		if float64(spent+c.EstimatedTokens) > float64(budget) {
			continue
		}
		out = append(out, c)
		chosen[c.Scored.Chunk.ID] = true
		spent += c.EstimatedTokens
		if float64(spent) >= earlyStop {
			break
		}
	}
	return out
}

// TotalTokens sums the estimated token cost of a selection.
func TotalTokens(selected []Candidate) int {
	total := 0
	for _, c := range selected {
		total += c.EstimatedTokens
	}
	return total
}
