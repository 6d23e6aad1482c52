package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"

	"github.com/fyrsmithlabs/ctxforge/internal/index"
)

// defaultSkipDirs are directories that should always be skipped during
// walking. These typically contain generated code, dependencies, or
// version control data.
var defaultSkipDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
	".cache":       true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"target":       true, // Rust/Java build output
}

// validatePath validates and cleans a file path, rejecting anything that
// is not an existing directory.
func validatePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path does not exist: %s", cleanPath)
		}
		return "", fmt.Errorf("stat path: %w", err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("path must be a directory: %s", cleanPath)
	}

	return cleanPath, nil
}

// detectGitBranch detects the current git branch for a path.
// Returns "unknown" if not a git repository or detection fails.
func detectGitBranch(path string) string {
	repo, err := git.PlainOpen(path)
	if err != nil {
		for parent := filepath.Dir(path); parent != "/" && parent != "."; parent = filepath.Dir(parent) {
			repo, err = git.PlainOpen(parent)
			if err == nil {
				break
			}
		}
		if err != nil {
			return "unknown"
		}
	}

	head, err := repo.Head()
	if err != nil {
		return "unknown"
	}

	if head.Name().IsBranch() {
		return head.Name().Short()
	}

	if head.Type() == plumbing.HashReference {
		return head.Hash().String()[:8]
	}

	return "unknown"
}

// shouldIncludeFile determines if a file should be walked, based on size
// limits and include/exclude glob patterns.
func shouldIncludeFile(relPath string, info os.FileInfo, opts IndexOptions) bool {
	basename := filepath.Base(relPath)

	if info.Size() > opts.MaxFileSize {
		return false
	}

	for _, pattern := range opts.ExcludePatterns {
		if matched, _ := filepath.Match(pattern, basename); matched {
			return false
		}
		if matched, _ := filepath.Match(pattern, relPath); matched {
			return false
		}
		if strings.Contains(pattern, "**") {
			prefix := strings.TrimSuffix(pattern, "/**")
			if strings.HasPrefix(relPath, prefix+string(filepath.Separator)) {
				return false
			}
		}
	}

	if len(opts.IncludePatterns) > 0 {
		included := false
		for _, pattern := range opts.IncludePatterns {
			if matched, _ := filepath.Match(pattern, basename); matched {
				included = true
				break
			}
			if matched, _ := filepath.Match(pattern, relPath); matched {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	return true
}

// ChunkSource produces index.Chunk values from a source of code, used by
// the CLI's index subcommand to populate a corpus the optimizer pipeline
// can search. This is a collaborator outside the core pipeline; the core
// never depends on it directly.
type ChunkSource interface {
	Chunks(ctx context.Context, path string, opts IndexOptions) ([]index.Chunk, error)
}

// GitChunkSource walks a git working tree at the current HEAD and segments
// each included file into one chunk per top-level function/class the
// line-based segmenter finds, falling back to a whole-file chunk.
type GitChunkSource struct{}

// NewGitChunkSource constructs a GitChunkSource.
func NewGitChunkSource() *GitChunkSource { return &GitChunkSource{} }

var topLevelDeclRe = regexp.MustCompile(`(?m)^(func|type|class|def|struct)\s`)

// Chunks walks path (validated and cleaned the same way IndexRepository
// does) and returns one index.Chunk per detected top-level declaration,
// or one whole-file chunk for files where no declaration boundary is
// found.
func (g *GitChunkSource) Chunks(ctx context.Context, path string, opts IndexOptions) ([]index.Chunk, error) {
	cleanPath, err := validatePath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if opts.MaxFileSize == 0 {
		opts.MaxFileSize = 1024 * 1024
	}

	branch := opts.Branch
	if branch == "" {
		branch = detectGitBranch(cleanPath)
	}

	var chunks []index.Chunk
	err = filepath.Walk(cleanPath, func(filePath string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			if defaultSkipDirs[filepath.Base(filePath)] {
				return filepath.SkipDir
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		relPath, err := filepath.Rel(cleanPath, filePath)
		if err != nil {
			return fmt.Errorf("computing relative path: %w", err)
		}
		if !shouldIncludeFile(relPath, info, opts) {
			return nil
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("reading file %s: %w", filePath, err)
		}
		if !utf8.Valid(content) {
			return nil
		}

		chunks = append(chunks, segmentFile(relPath, string(content))...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// segmentFile splits file content into chunks at top-level declaration
// boundaries, falling back to a single whole-file chunk.
func segmentFile(relPath, content string) []index.Chunk {
	lines := strings.Split(content, "\n")
	var starts []int
	for i, line := range lines {
		if topLevelDeclRe.MatchString(line) {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		return []index.Chunk{newChunk(relPath, "file", filepath.Base(relPath), 1, len(lines), content)}
	}

	chunks := make([]index.Chunk, 0, len(starts))
	for i, start := range starts {
		end := len(lines)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		body := strings.Join(lines[start:end], "\n")
		name := strings.TrimSpace(strings.Fields(lines[start])[len(strings.Fields(lines[start]))-1])
		chunks = append(chunks, newChunk(relPath, declKind(lines[start]), name, start+1, end, body))
	}
	return chunks
}

func declKind(line string) string {
	switch {
	case strings.HasPrefix(strings.TrimSpace(line), "type"), strings.HasPrefix(strings.TrimSpace(line), "struct"), strings.HasPrefix(strings.TrimSpace(line), "class"):
		return "type"
	default:
		return "function"
	}
}

func newChunk(relPath, kind, name string, startLine, endLine int, content string) index.Chunk {
	sum := sha256.Sum256([]byte(content))
	return index.Chunk{
		ID:        uuid.NewString(),
		FilePath:  relPath,
		Name:      name,
		Kind:      kind,
		Language:  languageFromExt(relPath),
		StartLine: startLine,
		EndLine:   endLine,
		Content:   content,
		Checksum:  hex.EncodeToString(sum[:]),
		CreatedAt: time.Now(),
	}
}

func languageFromExt(path string) string {
	switch filepath.Ext(path) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js":
		return "javascript"
	case ".ts":
		return "typescript"
	case ".md":
		return "markdown"
	default:
		return "text"
	}
}
