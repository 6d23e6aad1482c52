// Package tokenizer provides a deterministic, dependency-free token count
// heuristic for text and source code.
//
// Estimate classifies input as prose or code by counting hits across five
// code-density patterns, then applies a char-per-token ratio with targeted
// corrections for URLs, emails, keywords, operators, string literals, and
// comments. The estimator never performs I/O and produces identical output
// for identical input on any platform with IEEE-754 floating point.
package tokenizer
