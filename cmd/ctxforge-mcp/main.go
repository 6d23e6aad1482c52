// Command ctxforge-mcp exposes reconstruct_prompt as an MCP tool over stdio
// for code-assistant clients that speak the Model Context Protocol.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxforge/internal/config"
	"github.com/fyrsmithlabs/ctxforge/internal/compression"
	"github.com/fyrsmithlabs/ctxforge/internal/embeddings"
	"github.com/fyrsmithlabs/ctxforge/internal/logging"
	"github.com/fyrsmithlabs/ctxforge/internal/mcp"
	"github.com/fyrsmithlabs/ctxforge/internal/metrics"
	"github.com/fyrsmithlabs/ctxforge/internal/optimizer"
	"github.com/fyrsmithlabs/ctxforge/internal/repository"
	"github.com/fyrsmithlabs/ctxforge/internal/router"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	cfgPath := os.Getenv("CTXFORGE_CONFIG")
	cfg, err := config.LoadWithFile(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var embedder embeddings.Provider
	if os.Getenv("CTXFORGE_OFFLINE") == "true" {
		embedder = embeddings.NewFake()
	} else {
		embedder, err = embeddings.NewProvider(embeddings.ProviderConfig{
			Provider: cfg.Embeddings.Provider,
			Model:    cfg.Embeddings.Model,
			BaseURL:  cfg.Embeddings.BaseURL,
			CacheDir: cfg.Embeddings.CacheDir,
		})
		if err != nil {
			return fmt.Errorf("creating embedding provider: %w", err)
		}
	}

	logCfg := logging.NewDefaultConfig()
	appLogger, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		appLogger = nil
	}

	localFreeTokens, cloudFreeTokens, cheapCloudTokens, balancedCloudTokens,
		localFreeComplexity, cloudFreeComplexity, cheapCloudComplexity := cfg.Optimizer.RouterThresholds()

	orch := optimizer.New(metrics.New(), optimizer.Config{
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
	}, appLogger)

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    "ctxforge",
		Version: "0.1.0",
		Logger:  logger,
	}, orch, repository.NewGitChunkSource(), embedder)
	if err != nil {
		return fmt.Errorf("creating mcp server: %w", err)
	}
	defer srv.Close()

	return srv.Run(ctx)
}
