package tokenizer

import (
	"math"
	"regexp"
	"strings"
)

var (
	urlPattern   = regexp.MustCompile(`https?://[^\s"'` + "`" + `)>\]]+`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	definitionKeywordPattern = regexp.MustCompile(`\b(func|function|def|class|interface|struct|impl|fn|void|public|private|protected|static|async|const|let|var)\b`)
	importExportPattern      = regexp.MustCompile(`\b(import|export|require|package|using|include|from)\b`)
	braceBlockPattern        = regexp.MustCompile(`\{[^{}]*\}`)
	bracketLiteralPattern    = regexp.MustCompile(`[\[\{]\s*['"\w]`)
	multiCharOperatorPattern = regexp.MustCompile(`(==|!=|<=|>=|&&|\|\||->|=>|::|\+=|-=|\*=|/=|\+\+|--)`)

	blockCommentPattern  = regexp.MustCompile(`/\*[\s\S]*?\*/`)
	lineCommentPattern   = regexp.MustCompile(`//[^\n]*|#[^\n]*`)
	stringLiteralPattern = regexp.MustCompile(strings.Join([]string{
		`"(?:[^"\\]|\\.)*"`,
		`'(?:[^'\\]|\\.)*'`,
		"`[^`]*`",
	}, "|"))

	// singleCharOperators are operator runes re-costed individually in code mode.
	singleCharOperators = map[rune]bool{
		'+': true, '-': true, '*': true, '/': true, '=': true,
		'<': true, '>': true, '!': true, '&': true, '|': true,
		'^': true, '%': true, '~': true,
	}
)

// Estimate returns a deterministic, non-negative token count for text.
//
// It classifies text as code or prose (two or more of five code-density
// patterns hit), then applies the corresponding estimation rule from the
// component design. Estimate is pure: no I/O, no randomness, O(n) in the
// length of text, and monotone in length for any fixed content family.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	if isCode(text) {
		return estimateCode(text)
	}
	return estimateProse(text)
}

// isCode reports whether text hits two or more of the five code-density
// patterns defined in the component design.
func isCode(text string) bool {
	hits := 0
	if definitionKeywordPattern.MatchString(text) {
		hits++
	}
	if importExportPattern.MatchString(text) {
		hits++
	}
	if braceBlockPattern.MatchString(text) {
		hits++
	}
	if bracketLiteralPattern.MatchString(text) {
		hits++
	}
	if multiCharOperatorPattern.MatchString(text) {
		hits++
	}
	return hits >= 2
}

// estimateProse implements ceil(chars/4) with URL and email overrides.
// Matched URL and email spans are substituted out of the char-based share
// and replaced by their own fixed cost.
func estimateProse(text string) int {
	consumed, tokens := 0, 0.0

	for _, span := range emailPattern.FindAllStringIndex(text, -1) {
		consumed += span[1] - span[0]
		tokens += 2
	}
	remaining := maskSpans(text, emailPattern.FindAllStringIndex(text, -1))
	for _, span := range urlPattern.FindAllStringIndex(remaining, -1) {
		length := span[1] - span[0]
		consumed += length
		tokens += math.Ceil(float64(length) / 20)
	}

	proseChars := len([]rune(text)) - consumed
	if proseChars < 0 {
		proseChars = 0
	}
	tokens += math.Ceil(float64(proseChars) / 4)

	return intFloor1(tokens)
}

// estimateCode implements ceil(chars/3) with keyword, operator, string, and
// comment corrections as described in the component design: the chars/3
// share of every matched span is subtracted and replaced with the span's
// corrected cost, then the total is floored at 1.
func estimateCode(text string) int {
	runes := []rune(text)
	total := float64(len(runes))
	tokens := math.Ceil(total / 3)

	// Comments first (highest precedence), then strings outside comments,
	// then keywords/operators outside both.
	commentSpans := blockCommentPattern.FindAllStringIndex(text, -1)
	commentSpans = append(commentSpans, lineCommentPattern.FindAllStringIndex(text, -1)...)
	commentSpans = mergeSpans(commentSpans)
	for _, sp := range commentSpans {
		tokens = recost(tokens, sp[1]-sp[0], math.Ceil(float64(sp[1]-sp[0])/4))
	}

	maskedForStrings := maskByteSpans(text, commentSpans)
	stringSpans := stringLiteralPattern.FindAllStringIndex(maskedForStrings, -1)
	for _, sp := range stringSpans {
		tokens = recost(tokens, sp[1]-sp[0], math.Ceil(float64(sp[1]-sp[0])/4))
	}

	maskedForTokens := maskByteSpans(maskedForStrings, stringSpans)
	for _, sp := range definitionKeywordPattern.FindAllStringIndex(maskedForTokens, -1) {
		tokens = recost(tokens, sp[1]-sp[0], 1)
	}
	for _, sp := range importExportPattern.FindAllStringIndex(maskedForTokens, -1) {
		tokens = recost(tokens, sp[1]-sp[0], 1)
	}
	for _, r := range maskedForTokens {
		if singleCharOperators[r] {
			tokens = recost(tokens, 1, 1)
		}
	}

	return intFloor1(tokens)
}

// recost subtracts the chars/3 share of a matched span and adds its
// corrected cost.
func recost(tokens float64, spanLen int, correctedCost float64) float64 {
	return tokens - math.Ceil(float64(spanLen)/3) + correctedCost
}

func intFloor1(tokens float64) int {
	rounded := int(math.Round(tokens))
	if rounded < 1 {
		return 1
	}
	return rounded
}

// maskSpans returns text with the given byte-offset spans removed, used to
// avoid double-matching (e.g. URLs embedded in already-matched emails).
func maskSpans(text string, spans [][]int) string {
	if len(spans) == 0 {
		return text
	}
	spans = mergeSpans(spans)
	out := make([]byte, 0, len(text))
	prev := 0
	for _, sp := range spans {
		out = append(out, text[prev:sp[0]]...)
		prev = sp[1]
	}
	out = append(out, text[prev:]...)
	return string(out)
}

// maskByteSpans replaces the given spans with spaces of the same byte length
// so subsequent regex passes don't re-match inside already-classified
// regions, while preserving byte offsets for later spans.
func maskByteSpans(text string, spans [][]int) string {
	if len(spans) == 0 {
		return text
	}
	b := []byte(text)
	for _, sp := range spans {
		for i := sp[0]; i < sp[1] && i < len(b); i++ {
			if b[i] != '\n' {
				b[i] = ' '
			}
		}
	}
	return string(b)
}

// mergeSpans sorts and merges overlapping byte-offset spans.
func mergeSpans(spans [][]int) [][]int {
	if len(spans) < 2 {
		return spans
	}
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j-1][0] > spans[j][0]; j-- {
			spans[j-1], spans[j] = spans[j], spans[j-1]
		}
	}
	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := merged[len(merged)-1]
		if sp[0] <= last[1] {
			if sp[1] > last[1] {
				merged[len(merged)-1][1] = sp[1]
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

