// Package assembler implements the deterministic prompt formatter:
// grouping compressed chunks by file, ordering groups and chunks, and
// emitting a byte-identical prompt for identical inputs (I7).
package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/ctxforge/internal/tokenizer"
)

// Chunk is the minimal view the assembler needs of a selected,
// compressed chunk.
type Chunk struct {
	FilePath       string
	StartLine      int
	EndLine        int
	Language       string
	Content        string
	RelevanceScore float64
}

// Assembled is the final prompt text plus its estimated token count.
type Assembled struct {
	Prompt     string
	TokensUsed int
}

// Assemble deterministically renders query plus the given chunks into a
// single prompt string.
func Assemble(query string, chunks []Chunk) Assembled {
	groups := groupByFile(chunks)
	sortGroups(groups)

	var b strings.Builder
	b.WriteString(query)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Context (%d section%s):\n\n", len(groups), plural(len(groups)))

	for _, g := range groups {
		fmt.Fprintf(&b, "### %s\n\n", g.filePath)
		for _, c := range g.chunks {
			lang := c.Language
			fmt.Fprintf(&b, "```%s\n%s\n```\n\n", lang, strings.TrimRight(c.Content, "\n"))
		}
	}

	prompt := strings.TrimRight(b.String(), "\n") + "\n"
	return Assembled{Prompt: prompt, TokensUsed: tokenizer.Estimate(prompt)}
}

type group struct {
	filePath string
	maxScore float64
	chunks   []Chunk
}

func groupByFile(chunks []Chunk) []*group {
	index := map[string]*group{}
	var order []*group
	for _, c := range chunks {
		g, ok := index[c.FilePath]
		if !ok {
			g = &group{filePath: c.FilePath}
			index[c.FilePath] = g
			order = append(order, g)
		}
		g.chunks = append(g.chunks, c)
		if c.RelevanceScore > g.maxScore {
			g.maxScore = c.RelevanceScore
		}
	}
	for _, g := range order {
		sort.SliceStable(g.chunks, func(i, j int) bool {
			return g.chunks[i].StartLine < g.chunks[j].StartLine
		})
	}
	return order
}

func sortGroups(groups []*group) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].maxScore != groups[j].maxScore {
			return groups[i].maxScore > groups[j].maxScore
		}
		return groups[i].filePath < groups[j].filePath
	})
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
