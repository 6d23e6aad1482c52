package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ctxforge/internal/repository"
)

func newIndexCmd() *cobra.Command {
	var includePatterns []string
	var branch string

	cmd := &cobra.Command{
		Use:   "index <path>",
		Short: "Walk a repository and report the chunks that would populate the vector index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := repository.NewGitChunkSource()
			chunks, err := src.Chunks(context.Background(), args[0], repository.IndexOptions{
				Branch:          branch,
				IncludePatterns: includePatterns,
			})
			if err != nil {
				return fmt.Errorf("indexing %s: %w", args[0], err)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			embedder, err := newEmbedder(cmd, cfg)
			if err != nil {
				return fmt.Errorf("creating embedding provider: %w", err)
			}
			defer embedder.Close()

			idx, err := newBackend(context.Background(), cmd, cfg, embedder.Dimension(), embedder, args[0])
			if err != nil {
				return fmt.Errorf("creating index backend: %w", err)
			}
			defer idx.Close()

			texts := make([]string, len(chunks))
			for i, c := range chunks {
				texts[i] = c.Content
			}
			embedded, err := embedder.EmbedDocuments(context.Background(), texts)
			if err != nil {
				return fmt.Errorf("embedding chunks: %w", err)
			}
			for i, c := range chunks {
				c.Embedding = embedded[i]
				if err := idx.Insert(c); err != nil {
					return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
				}
			}

			stats := idx.Stats()
			fmt.Printf("indexed %d chunks from %s (%d bytes estimated)\n", stats.Total, args[0], stats.IndexSizeBytes)
			for lang, count := range stats.ByLanguage {
				fmt.Printf("  %s: %d\n", lang, count)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&includePatterns, "include", []string{"*.go", "*.md"}, "glob patterns of files to index")
	cmd.Flags().StringVar(&branch, "branch", "", "git branch to record (auto-detected if empty)")
	return cmd
}
