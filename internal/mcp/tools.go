package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/ctxforge/internal/index"
	"github.com/fyrsmithlabs/ctxforge/internal/optimizer"
	"github.com/fyrsmithlabs/ctxforge/internal/repository"
)

type reconstructPromptInput struct {
	Query        string   `json:"query" jsonschema:"required,Natural-language question about the repository"`
	RepoPath     string   `json:"repo_path" jsonschema:"required,Path to the repository to search"`
	Budget       int      `json:"budget,omitempty" jsonschema:"Token budget for the assembled prompt (default: 4000)"`
	CurrentFile  string   `json:"current_file,omitempty" jsonschema:"File the caller is currently editing, used for scope/recency scoring"`
	IncludeGlobs []string `json:"include_globs,omitempty" jsonschema:"Glob patterns of files to index (default: *.go, *.md)"`
}

type reconstructPromptOutput struct {
	Prompt            string  `json:"prompt" jsonschema:"Assembled prompt ready to send to a model"`
	TokensUsed        int     `json:"tokens_used" jsonschema:"Tokens consumed by the assembled prompt"`
	TokensSaved       int     `json:"tokens_saved" jsonschema:"Tokens saved versus sending the full retrieval set"`
	SavingsPercentage float64 `json:"savings_percentage" jsonschema:"Percentage of tokens saved"`
	Model             string  `json:"model" jsonschema:"Model tier chosen by the router"`
	Provider          string  `json:"provider" jsonschema:"Provider chosen by the router"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reconstruct_prompt",
		Description: "Retrieve and compress the most relevant code for a query, within a token budget, and route it to an appropriate model tier.",
	}, s.handleReconstructPrompt)
}

func (s *Server) handleReconstructPrompt(ctx context.Context, req *mcp.CallToolRequest, args reconstructPromptInput) (*mcp.CallToolResult, reconstructPromptOutput, error) {
	if args.Query == "" {
		return nil, reconstructPromptOutput{}, fmt.Errorf("query is required")
	}
	if args.RepoPath == "" {
		return nil, reconstructPromptOutput{}, fmt.Errorf("repo_path is required")
	}
	budget := args.Budget
	if budget <= 0 {
		budget = 4000
	}
	includeGlobs := args.IncludeGlobs
	if len(includeGlobs) == 0 {
		includeGlobs = []string{"*.go", "*.md"}
	}

	chunks, err := s.chunkSource.Chunks(ctx, args.RepoPath, repository.IndexOptions{IncludePatterns: includeGlobs})
	if err != nil {
		return nil, reconstructPromptOutput{}, fmt.Errorf("indexing %s: %w", args.RepoPath, err)
	}

	idx := index.New(s.embedder.Dimension())
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embedded, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, reconstructPromptOutput{}, fmt.Errorf("embedding chunks: %w", err)
	}
	for i, c := range chunks {
		c.Embedding = embedded[i]
		if err := idx.Insert(c); err != nil {
			return nil, reconstructPromptOutput{}, fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	queryEmbedding, err := s.embedder.EmbedQuery(ctx, args.Query)
	if err != nil {
		return nil, reconstructPromptOutput{}, fmt.Errorf("embedding query: %w", err)
	}

	result, err := s.orchestrator.ReconstructPrompt(ctx, args.Query, optimizer.Source{
		Index:          idx,
		QueryEmbedding: queryEmbedding,
	}, budget, optimizer.ScoringContext{CurrentFile: args.CurrentFile})
	if err != nil {
		return nil, reconstructPromptOutput{}, fmt.Errorf("reconstruct_prompt: %w", err)
	}

	out := reconstructPromptOutput{
		Prompt:            result.Prompt,
		TokensUsed:        result.TokensUsed,
		TokensSaved:       result.Savings.TokensSaved,
		SavingsPercentage: result.Savings.Percentage,
		Model:             string(result.Model),
		Provider:          result.Routing.Provider,
	}
	return nil, out, nil
}
