package repository

// IndexOptions configures repository indexing behavior.
type IndexOptions struct {
	// TenantID is the tenant identifier for multi-tenant isolation.
	// If empty, uses default from git user.name or OS username.
	TenantID string

	// Branch is the git branch to associate with indexed files.
	// If empty, auto-detects current branch from repository.
	Branch string

	// IncludePatterns are glob patterns for files to include (e.g., ["*.md", "*.go"]).
	// If empty, all files are included (subject to exclude patterns and size limit).
	IncludePatterns []string

	// ExcludePatterns are glob patterns for files to exclude (e.g., ["*.log", "node_modules/**"]).
	// Takes precedence over include patterns.
	ExcludePatterns []string

	// MaxFileSize is the maximum file size in bytes to index.
	// Default: 1MB (1048576), Maximum: 10MB (10485760).
	MaxFileSize int64
}
