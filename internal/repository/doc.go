// Package repository turns a working tree into index.Chunk values for the
// optimizer pipeline to search.
//
// GitChunkSource walks a directory, filters files by glob patterns and size
// limits, and segments each included file at its top-level declaration
// boundaries (falling back to one whole-file chunk when no boundary is
// found). It is a collaborator outside the core pipeline: callers build an
// index.Index or index.Backend from the chunks themselves.
//
// # Security
//
// The package implements defense-in-depth when walking a caller-supplied
// path:
//   - Path traversal prevention via filepath.Clean() and an existing-directory check
//   - File size limits (1MB default)
//   - Glob pattern matching for include/exclude filters
//   - Binary file detection (skips invalid UTF-8)
//
// # Usage
//
//	src := repository.NewGitChunkSource()
//	chunks, err := src.Chunks(ctx, "/path/to/repo", repository.IndexOptions{
//	    IncludePatterns: []string{"*.go", "*.md"},
//	    ExcludePatterns: []string{"vendor/**", "*_test.go"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("segmented %d chunks\n", len(chunks))
//
// # Pattern matching
//
// Include patterns specify which files to walk. If empty, all files are
// included (subject to exclude patterns). Exclude patterns take precedence
// over include patterns. Patterns use filepath.Match syntax, plus a
// "dir/**" convention for matching a directory recursively.
package repository
