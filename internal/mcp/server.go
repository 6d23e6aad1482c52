// Package mcp exposes reconstruct_prompt as a single MCP tool, calling the
// optimizer pipeline directly with no transport in between.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxforge/internal/embeddings"
	"github.com/fyrsmithlabs/ctxforge/internal/optimizer"
	"github.com/fyrsmithlabs/ctxforge/internal/repository"
)

// Server is a minimal MCP server wrapping the optimizer pipeline.
type Server struct {
	mcp          *mcp.Server
	orchestrator *optimizer.Orchestrator
	chunkSource  repository.ChunkSource
	embedder     embeddings.Provider
	logger       *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name.
	Name string

	// Version is the server version.
	Version string

	// Logger for structured logging.
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "ctxforge",
		Version: "0.1.0",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates a new MCP server around an orchestrator, chunk source,
// and embedding provider already wired by the caller.
func NewServer(cfg *Config, orchestrator *optimizer.Orchestrator, chunkSource repository.ChunkSource, embedder embeddings.Provider) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if chunkSource == nil {
		return nil, fmt.Errorf("chunk source is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, nil)

	s := &Server{
		mcp:          mcpServer,
		orchestrator: orchestrator,
		chunkSource:  chunkSource,
		embedder:     embedder,
		logger:       cfg.Logger,
	}

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Close releases the embedding provider's resources.
func (s *Server) Close() error {
	return s.embedder.Close()
}
