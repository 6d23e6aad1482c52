package compression

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/ctxforge/internal/tokenizer"
)

var (
	blockCommentPattern  = regexp.MustCompile(`/\*[\s\S]*?\*/`)
	lineCommentPattern   = regexp.MustCompile(`(^|[^:])//[^\n]*|#[^\n]*`)
	blankLinePattern     = regexp.MustCompile(`\n{2,}`)
	whitespaceRunPattern = regexp.MustCompile(`[ \t]{2,}`)
	importBlockPattern   = regexp.MustCompile(`(?m)^\s*import\s*\([\s\S]*?\)\n?`)
	importLinePattern    = regexp.MustCompile(`(?m)^\s*(import|from .* import|#include|using)\s+.*\n`)
	signaturePattern     = regexp.MustCompile(`(?m)^\s*(func|def|class|public|private|protected|static).*$`)
	docstringPattern     = regexp.MustCompile(`(?s)"""(.*?)"""|'''(.*?)'''|/\*\*(.*?)\*/`)
	trailingPunctPattern = regexp.MustCompile(`[;,]+\s*\n`)
	stringLiteralPattern = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`)
)

// stripCommentsOutsideStrings removes block and line comments, leaving
// string-literal contents (which may themselves contain "//" or "#")
// untouched.
func stripCommentsOutsideStrings(content string) string {
	spans := stringLiteralPattern.FindAllStringIndex(content, -1)
	if len(spans) == 0 {
		out := blockCommentPattern.ReplaceAllString(content, "")
		return stripLineComments(out)
	}

	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(stripLineComments(blockCommentPattern.ReplaceAllString(content[last:sp[0]], "")))
		b.WriteString(content[sp[0]:sp[1]])
		last = sp[1]
	}
	b.WriteString(stripLineComments(blockCommentPattern.ReplaceAllString(content[last:], "")))
	return b.String()
}

func stripLineComments(content string) string {
	return lineCommentPattern.ReplaceAllStringFunc(content, func(m string) string {
		if strings.HasPrefix(m, "//") || strings.HasPrefix(m, "#") {
			return ""
		}
		return m[:1]
	})
}

// Compress reduces in's content to fit within budget tokens, applying
// light, then medium, then aggressive passes as needed and stopping as
// soon as a pass fits or the aggressive pass has run. A pass whose output
// would be larger than the previous pass's is discarded (I6).
func Compress(in Input, budget int, opts Options) Result {
	original := header(in) + in.Content
	originalTokens := tokenizer.Estimate(original)

	if strings.TrimSpace(in.Content) == "" {
		h := header(in)
		return finalize(in, h, originalTokens, LevelLight)
	}

	if originalTokens <= budget {
		return finalize(in, original, originalTokens, LevelLight)
	}

	best := original
	bestTokens := originalTokens
	bestLevel := Level("")

	light := header(in) + lightPass(in.Content)
	if t := tokenizer.Estimate(light); t <= bestTokens {
		best, bestTokens, bestLevel = light, t, LevelLight
	}
	if bestTokens <= budget {
		return finalize(in, best, bestTokens, bestLevel)
	}

	medium := header(in) + mediumPass(lightPass(in.Content), opts)
	if t := tokenizer.Estimate(medium); t <= bestTokens {
		best, bestTokens, bestLevel = medium, t, LevelMedium
	}
	if bestTokens <= budget {
		return finalize(in, best, bestTokens, bestLevel)
	}

	aggressive := aggressivePass(in)
	if t := tokenizer.Estimate(aggressive); t <= bestTokens {
		best, bestTokens, bestLevel = aggressive, t, LevelAggressive
	}

	return finalize(in, best, bestTokens, bestLevel)
}

func finalize(in Input, content string, tokens int, level Level) Result {
	original := header(in) + in.Content
	originalTokens := tokenizer.Estimate(original)
	ratio := 1.0
	if tokens > 0 {
		ratio = float64(originalTokens) / float64(tokens)
	}
	if ratio < 1.0 {
		ratio = 1.0
	}
	return Result{
		Content:          content,
		OriginalTokens:   originalTokens,
		CompressedTokens: tokens,
		CompressionRatio: ratio,
		LevelApplied:     level,
	}
}

func header(in Input) string {
	return fmt.Sprintf("// %s:%d-%d\n// kind: %s\n", in.FilePath, in.StartLine, in.EndLine, in.Name)
}

// LightPass is the public light-compression operation: strip comments and
// blank lines, preserving signatures and string literals. Exposed
// directly so callers (and the orchestrator's degrade path) never need to
// reach into a private helper when a later pass fails.
func LightPass(content string) string {
	return lightPass(content)
}

func lightPass(content string) string {
	out := stripCommentsOutsideStrings(content)
	out = blankLinePattern.ReplaceAllString(out, "\n")
	return strings.TrimSpace(out) + "\n"
}

func mediumPass(content string, opts Options) string {
	out := whitespaceRunPattern.ReplaceAllString(content, " ")
	if !opts.PreserveImports {
		out = importBlockPattern.ReplaceAllString(out, "")
		out = importLinePattern.ReplaceAllString(out, "")
	}
	out = trailingPunctPattern.ReplaceAllString(out, "\n")
	out = keepFirstLastBody(out, 3)
	return strings.TrimSpace(out) + "\n"
}

// keepFirstLastBody retains the first and last n non-blank lines of a
// block, collapsing the middle into an elision marker when the block is
// longer than 2n+1 lines.
func keepFirstLastBody(content string, n int) string {
	lines := nonEmptyLines(content)
	if len(lines) <= 2*n+1 {
		return content
	}
	var out []string
	out = append(out, lines[:n]...)
	out = append(out, "...")
	out = append(out, lines[len(lines)-n:]...)
	return strings.Join(out, "\n")
}

func nonEmptyLines(content string) []string {
	var out []string
	for _, l := range strings.Split(content, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func aggressivePass(in Input) string {
	sig := signaturePattern.FindString(in.Content)
	doc := firstMatch(docstringPattern, in.Content)

	var body string
	switch {
	case doc != "":
		body = sig + "\n" + doc
	case sig != "":
		body = sig + "\n" + firstLastLines(in.Content, 3)
	default:
		body = firstLastLines(in.Content, 3)
	}

	pct := 0
	originalTokens := tokenizer.Estimate(in.Content)
	bodyTokens := tokenizer.Estimate(body)
	if originalTokens > 0 {
		pct = int(100 * (1 - float64(bodyTokens)/float64(originalTokens)))
	}

	h := header(in) + fmt.Sprintf("/* compressed: %d%% */\n", pct)
	return h + strings.TrimSpace(body) + "\n"
}

func firstLastLines(content string, n int) string {
	lines := nonEmptyLines(content)
	if len(lines) <= 2*n {
		return strings.Join(lines, "\n")
	}
	var out []string
	out = append(out, lines[:n]...)
	out = append(out, "...")
	out = append(out, lines[len(lines)-n:]...)
	return strings.Join(out, "\n")
}

func firstMatch(re *regexp.Regexp, content string) string {
	m := re.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return strings.TrimSpace(g)
		}
	}
	return ""
}

// PerChunkBudget computes floor(totalBudget / selectedCount), the shared
// compression budget each selected chunk is compressed against.
func PerChunkBudget(totalBudget, selectedCount int) int {
	if selectedCount <= 0 {
		return totalBudget
	}
	return totalBudget / selectedCount
}
