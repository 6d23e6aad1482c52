package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxforge/internal/compression"
	"github.com/fyrsmithlabs/ctxforge/internal/config"
	"github.com/fyrsmithlabs/ctxforge/internal/embeddings"
	"github.com/fyrsmithlabs/ctxforge/internal/index"
	"github.com/fyrsmithlabs/ctxforge/internal/logging"
	"github.com/fyrsmithlabs/ctxforge/internal/metrics"
	"github.com/fyrsmithlabs/ctxforge/internal/optimizer"
	"github.com/fyrsmithlabs/ctxforge/internal/router"
	"github.com/fyrsmithlabs/ctxforge/internal/sanitize"
	"github.com/fyrsmithlabs/ctxforge/internal/tenant"
	"github.com/fyrsmithlabs/ctxforge/internal/vectorstore"
)

// loadConfig resolves the --config flag through internal/config's
// security-hardened file loader.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.LoadWithFile(path)
}

// newEmbedder returns the fake provider under --offline, otherwise a real
// provider built from cfg.Embeddings.
func newEmbedder(cmd *cobra.Command, cfg *config.Config) (embeddings.Provider, error) {
	offline, _ := cmd.Flags().GetBool("offline")
	if offline {
		return embeddings.NewFake(), nil
	}
	return embeddings.NewProvider(embeddings.ProviderConfig{
		Provider: cfg.Embeddings.Provider,
		Model:    cfg.Embeddings.Model,
		BaseURL:  cfg.Embeddings.BaseURL,
		CacheDir: cfg.Embeddings.CacheDir,
	})
}

// newOrchestrator builds an Orchestrator from the loaded config, projecting
// OptimizerConfig's flat router fields into router.Thresholds. recorder is
// shared with the caller so it can expose the same counters elsewhere (e.g.
// the HTTP server's /metrics/summary).
func newOrchestrator(cfg *config.Config, logger *logging.Logger, recorder *metrics.Recorder) *optimizer.Orchestrator {
	localFreeTokens, cloudFreeTokens, cheapCloudTokens, balancedCloudTokens,
		localFreeComplexity, cloudFreeComplexity, cheapCloudComplexity := cfg.Optimizer.RouterThresholds()

	oc := optimizer.Config{
		SelectorOverageAllowance: cfg.Optimizer.SelectorOverageAllowance,
		RouterThresholds: router.Thresholds{
			LocalFreeTokens:      localFreeTokens,
			LocalFreeComplexity:  localFreeComplexity,
			CloudFreeTokens:      cloudFreeTokens,
			CloudFreeComplexity:  cloudFreeComplexity,
			CheapCloudTokens:     cheapCloudTokens,
			CheapCloudComplexity: cheapCloudComplexity,
			BalancedCloudTokens:  balancedCloudTokens,
		},
		CompressionOptions: compression.Options{
			PreserveImports: cfg.Optimizer.PreserveImports,
			PreserveTypes:   cfg.Optimizer.PreserveTypes,
		},
	}

	return optimizer.New(recorder, oc, logger)
}

// newBackend builds the index.Backend the --backend flag selects: the
// in-memory reference Index, or a persistent chromem/Qdrant store scoped to
// a tenant-and-project collection so separate repos never share vectors.
//
// repoPath is used only to derive the tenant id and collection name; it is
// not walked here.
func newBackend(ctx context.Context, cmd *cobra.Command, cfg *config.Config, dimension int, embedder embeddings.Provider, repoPath string) (index.Backend, error) {
	backend, _ := cmd.Flags().GetString("backend")
	if backend == "" {
		backend = cfg.VectorStore.Provider
	}

	tenantID := sanitize.Identifier(tenant.GetTenantIDForPath(repoPath))
	projectName := sanitize.Identifier(filepath.Base(repoPath))
	collection := sanitize.CollectionName(tenantID, projectName, "codebase")

	switch backend {
	case "", "memory":
		return index.New(dimension), nil

	case "chromem":
		store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
			Path:              cfg.VectorStore.Chromem.Path,
			Compress:          cfg.VectorStore.Chromem.Compress,
			DefaultCollection: cfg.VectorStore.Chromem.DefaultCollection,
			VectorSize:        dimension,
		}, embedder, zap.NewNop())
		if err != nil {
			return nil, fmt.Errorf("creating chromem store: %w", err)
		}
		return vectorstore.NewChromemBackend(ctx, store, collection, dimension)

	case "qdrant":
		store, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			Host:           cfg.Qdrant.Host,
			Port:           cfg.Qdrant.Port,
			CollectionName: cfg.Qdrant.CollectionName,
			VectorSize:     uint64(dimension),
		}, embedder)
		if err != nil {
			return nil, fmt.Errorf("creating qdrant store: %w", err)
		}
		return vectorstore.NewQdrantBackend(ctx, store, collection, dimension)

	default:
		return nil, fmt.Errorf("unsupported backend %q (supported: memory, chromem, qdrant)", backend)
	}
}

func newLogger(cfg *config.Config) *logging.Logger {
	logCfg := logging.NewDefaultConfig()
	l, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		return nil
	}
	return l
}
