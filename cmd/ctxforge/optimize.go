package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ctxforge/internal/metrics"
	"github.com/fyrsmithlabs/ctxforge/internal/optimizer"
	"github.com/fyrsmithlabs/ctxforge/internal/repository"
)

func newOptimizeCmd() *cobra.Command {
	var repoPath string
	var budget int
	var currentFile string
	var includePatterns []string

	cmd := &cobra.Command{
		Use:   "optimize <query>",
		Short: "Run reconstruct_prompt against a repository for a natural-language query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			ctx := context.Background()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			embedder, err := newEmbedder(cmd, cfg)
			if err != nil {
				return fmt.Errorf("creating embedding provider: %w", err)
			}
			defer embedder.Close()

			src := repository.NewGitChunkSource()
			chunks, err := src.Chunks(ctx, repoPath, repository.IndexOptions{IncludePatterns: includePatterns})
			if err != nil {
				return fmt.Errorf("indexing %s: %w", repoPath, err)
			}

			idx, err := newBackend(ctx, cmd, cfg, embedder.Dimension(), embedder, repoPath)
			if err != nil {
				return fmt.Errorf("creating index backend: %w", err)
			}
			defer idx.Close()

			texts := make([]string, len(chunks))
			for i, c := range chunks {
				texts[i] = c.Content
			}
			embedded, err := embedder.EmbedDocuments(ctx, texts)
			if err != nil {
				return fmt.Errorf("embedding chunks: %w", err)
			}
			for i, c := range chunks {
				c.Embedding = embedded[i]
				if err := idx.Insert(c); err != nil {
					return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
				}
			}

			queryEmbedding, err := embedder.EmbedQuery(ctx, query)
			if err != nil {
				return fmt.Errorf("embedding query: %w", err)
			}

			logger := newLogger(cfg)
			orch := newOrchestrator(cfg, logger, metrics.New())

			result, err := orch.ReconstructPrompt(ctx, query, optimizer.Source{
				Index:          idx,
				QueryEmbedding: queryEmbedding,
			}, budget, optimizer.ScoringContext{CurrentFile: currentFile})
			if err != nil {
				return fmt.Errorf("reconstruct_prompt: %w", err)
			}

			fmt.Println(result.Prompt)
			fmt.Fprintf(cmd.ErrOrStderr(), "\n--- tokens_used=%d saved=%d (%.1f%%) model=%s provider=%s ---\n",
				result.TokensUsed, result.Savings.TokensSaved, result.Savings.Percentage, result.Model, result.Routing.Provider)
			return nil
		},
	}

	cmd.Flags().StringVar(&repoPath, "repo", ".", "repository path to index and search")
	cmd.Flags().IntVar(&budget, "budget", 4000, "token budget for the assembled prompt")
	cmd.Flags().StringVar(&currentFile, "current-file", "", "file the caller is currently editing, used for scope/recency scoring")
	cmd.Flags().StringSliceVar(&includePatterns, "include", []string{"*.go", "*.md"}, "glob patterns of files to index")
	return cmd
}
