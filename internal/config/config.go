// Package config provides configuration loading for ctxforge.
//
// Configuration is loaded from environment variables with sensible defaults.
// This package supports server, observability, and pipeline-policy settings.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete ctxforge configuration.
type Config struct {
	Production    ProductionConfig
	Server        ServerConfig
	Observability ObservabilityConfig
	VectorStore   VectorStoreConfig
	Qdrant        QdrantConfig
	Embeddings    EmbeddingsConfig
	Repository    RepositoryConfig
	Optimizer     OptimizerConfig
}

// OptimizerConfig holds the core pipeline's overridable policy knobs. The
// relevance scorer's weights are fixed by the spec and never exposed here;
// these are the fields the ambient stack documents as config-driven rather
// than magic numbers.
type OptimizerConfig struct {
	// SelectorOverageAllowance is the fraction over budget a single
	// high-score chunk may still be admitted by (default 0.10).
	SelectorOverageAllowance float64 `koanf:"selector_overage_allowance"`

	// DefaultMinRelevance floors candidate relevance before selection
	// when an intent doesn't specify one (default 0.0).
	DefaultMinRelevance float64 `koanf:"default_min_relevance"`

	// Router tier thresholds. See internal/router.Thresholds.
	RouterLocalFreeTokens      int     `koanf:"router_local_free_tokens"`
	RouterLocalFreeComplexity  float64 `koanf:"router_local_free_complexity"`
	RouterCloudFreeTokens      int     `koanf:"router_cloud_free_tokens"`
	RouterCloudFreeComplexity  float64 `koanf:"router_cloud_free_complexity"`
	RouterCheapCloudTokens     int     `koanf:"router_cheap_cloud_tokens"`
	RouterCheapCloudComplexity float64 `koanf:"router_cheap_cloud_complexity"`
	RouterBalancedCloudTokens  int     `koanf:"router_balanced_cloud_tokens"`

	// PreserveImports and PreserveTypes are passed through to the
	// compressor's medium/aggressive passes.
	PreserveImports bool `koanf:"preserve_imports"`
	PreserveTypes   bool `koanf:"preserve_types"`
}

// RepositoryConfig holds repository indexing configuration.
type RepositoryConfig struct {
	// IgnoreFiles is a list of ignore file names to parse from project root.
	// Patterns from these files are used as exclude patterns during indexing.
	IgnoreFiles []string `koanf:"ignore_files"`

	// FallbackExcludes are used when no ignore files are found in the project.
	FallbackExcludes []string `koanf:"fallback_excludes"`
}

// VectorStoreConfig holds vectorstore provider configuration.
type VectorStoreConfig struct {
	Provider string         `koanf:"provider"` // "memory", "chromem", or "qdrant" (default: "memory")
	Chromem  ChromemConfig  `koanf:"chromem"`
	Fallback FallbackConfig `koanf:"fallback"`
}

// Validate validates VectorStoreConfig.
func (c *VectorStoreConfig) Validate() error {
	switch c.Provider {
	case "memory":
		return nil
	case "chromem":
		return c.Chromem.Validate()
	case "qdrant":
		return nil
	default:
		return fmt.Errorf("unsupported provider: %s (supported: memory, chromem, qdrant)", c.Provider)
	}
}

// ChromemConfig holds chromem-go embedded vector database configuration,
// used as an optional durable backend behind internal/index's Backend
// interface.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	Path string `koanf:"path"`

	// Compress enables gzip compression for stored data.
	Compress bool `koanf:"compress"`

	// DefaultCollection is the default collection name.
	DefaultCollection string `koanf:"default_collection"`

	// VectorSize is the expected embedding dimension. Must match the
	// embedder's output dimension.
	VectorSize int `koanf:"vector_size"`
}

// FallbackConfig holds configuration for fallback storage when the
// durable backend is unreachable.
type FallbackConfig struct {
	Enabled             bool   `koanf:"enabled"`
	LocalPath           string `koanf:"local_path"`
	SyncOnConnect       bool   `koanf:"sync_on_connect"`
	HealthCheckInterval string `koanf:"health_check_interval"`
	WALPath             string `koanf:"wal_path"`
	WALRetentionDays    int    `koanf:"wal_retention_days"`
}

// Validate validates ChromemConfig.
func (c *ChromemConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("vector_size must be positive, got %d", c.VectorSize)
	}
	return nil
}

// QdrantConfig holds Qdrant vector database configuration.
type QdrantConfig struct {
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	HTTPPort       int    `koanf:"http_port"`
	CollectionName string `koanf:"collection_name"`
	VectorSize     uint64 `koanf:"vector_size"`
	DataPath       string `koanf:"data_path"`
}

// EmbeddingsConfig holds embeddings service configuration.
type EmbeddingsConfig struct {
	Provider    string `koanf:"provider"` // "fastembed", "tei", or "fake"
	BaseURL     string `koanf:"base_url"` // TEI URL (if using TEI)
	Model       string `koanf:"model"`
	CacheDir    string `koanf:"cache_dir"`
	ONNXVersion string `koanf:"onnx_version"`
}

// ServerConfig holds HTTP server configuration for the `serve` subcommand.
type ServerConfig struct {
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry   bool   `koanf:"enable_telemetry"`
	ServiceName       string `koanf:"service_name"`
	OTLPEndpoint      string `koanf:"otlp_endpoint"`
	OTLPProtocol      string `koanf:"otlp_protocol"`
	OTLPInsecure      bool   `koanf:"otlp_insecure"`
	OTLPTLSSkipVerify bool   `koanf:"otlp_tls_skip_verify"`
}

// Load loads configuration from environment variables with defaults.
//
// Quick Start:
//
//   - CTXFORGE_VECTORSTORE_PROVIDER: memory (default), chromem, or qdrant
//   - EMBEDDINGS_PROVIDER: fastembed (default, local), tei (remote), or fake
//   - SERVER_PORT: HTTP server port for `serve` (default: 9090)
//   - CTXFORGE_PRODUCTION_MODE: enable production safety checks (default: false)
func Load() *Config {
	cfg := &Config{
		Production: ProductionConfig{
			Enabled:               getEnvBool("CTXFORGE_PRODUCTION_MODE", false),
			LocalModeAcknowledged: getEnvBool("CTXFORGE_LOCAL_MODE", false),
			RequireAuthentication: getEnvBool("CTXFORGE_REQUIRE_AUTH", false),
			RequireTLS:            getEnvBool("CTXFORGE_REQUIRE_TLS", false),
			AllowNoIsolation:      getEnvBool("CTXFORGE_ALLOW_NO_ISOLATION", false),
		},
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 9090),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Observability: ObservabilityConfig{
			EnableTelemetry: getEnvBool("OTEL_ENABLE", false),
			ServiceName:     getEnvString("OTEL_SERVICE_NAME", "ctxforge"),
		},
	}

	cfg.Qdrant = QdrantConfig{
		Host:           getEnvString("QDRANT_HOST", "localhost"),
		Port:           getEnvInt("QDRANT_PORT", 6334),
		HTTPPort:       getEnvInt("QDRANT_HTTP_PORT", 6333),
		CollectionName: getEnvString("QDRANT_COLLECTION", "ctxforge_default"),
		VectorSize:     uint64(getEnvInt("QDRANT_VECTOR_SIZE", 384)),
		DataPath:       getEnvString("CTXFORGE_DATA_PATH", "/data"),
	}

	cfg.Embeddings = EmbeddingsConfig{
		Provider:    getEnvString("EMBEDDINGS_PROVIDER", "fastembed"),
		BaseURL:     getEnvString("EMBEDDING_BASE_URL", "http://localhost:8080"),
		Model:       getEnvString("EMBEDDINGS_MODEL", "BAAI/bge-small-en-v1.5"),
		CacheDir:    getEnvString("EMBEDDINGS_CACHE_DIR", ""),
		ONNXVersion: getEnvString("EMBEDDINGS_ONNX_VERSION", ""),
	}

	cfg.Repository = RepositoryConfig{
		IgnoreFiles: getEnvStringSlice("REPOSITORY_IGNORE_FILES", []string{
			".gitignore",
			".dockerignore",
			".ctxforgeignore",
		}),
		FallbackExcludes: getEnvStringSlice("REPOSITORY_FALLBACK_EXCLUDES", []string{
			".git/**",
			"node_modules/**",
			"vendor/**",
			"__pycache__/**",
		}),
	}

	cfg.VectorStore = VectorStoreConfig{
		Provider: getEnvString("CTXFORGE_VECTORSTORE_PROVIDER", "memory"),
		Chromem: ChromemConfig{
			Path:              getEnvString("CTXFORGE_VECTORSTORE_CHROMEM_PATH", "~/.config/ctxforge/vectorstore"),
			Compress:          getEnvBool("CTXFORGE_VECTORSTORE_CHROMEM_COMPRESS", false),
			DefaultCollection: getEnvString("CTXFORGE_VECTORSTORE_CHROMEM_COLLECTION", "ctxforge_default"),
			VectorSize:        getEnvInt("CTXFORGE_VECTORSTORE_CHROMEM_VECTOR_SIZE", 384),
		},
		Fallback: FallbackConfig{
			Enabled:             getEnvBool("CTXFORGE_FALLBACK_ENABLED", false),
			LocalPath:           getEnvString("CTXFORGE_FALLBACK_LOCAL_PATH", ".ctxforge/store"),
			SyncOnConnect:       getEnvBool("CTXFORGE_FALLBACK_SYNC_ON_CONNECT", true),
			HealthCheckInterval: getEnvString("CTXFORGE_FALLBACK_HEALTH_INTERVAL", "30s"),
			WALPath:             getEnvString("CTXFORGE_FALLBACK_WAL_PATH", ".ctxforge/wal"),
			WALRetentionDays:    getEnvInt("CTXFORGE_FALLBACK_WAL_RETENTION_DAYS", 7),
		},
	}

	cfg.Optimizer = OptimizerConfig{
		SelectorOverageAllowance:   getEnvFloat("OPTIMIZER_SELECTOR_OVERAGE_ALLOWANCE", 0.10),
		DefaultMinRelevance:        getEnvFloat("OPTIMIZER_DEFAULT_MIN_RELEVANCE", 0.0),
		RouterLocalFreeTokens:      getEnvInt("OPTIMIZER_ROUTER_LOCAL_FREE_TOKENS", 8000),
		RouterLocalFreeComplexity:  getEnvFloat("OPTIMIZER_ROUTER_LOCAL_FREE_COMPLEXITY", 0.6),
		RouterCloudFreeTokens:      getEnvInt("OPTIMIZER_ROUTER_CLOUD_FREE_TOKENS", 50000),
		RouterCloudFreeComplexity:  getEnvFloat("OPTIMIZER_ROUTER_CLOUD_FREE_COMPLEXITY", 0.7),
		RouterCheapCloudTokens:     getEnvInt("OPTIMIZER_ROUTER_CHEAP_CLOUD_TOKENS", 50000),
		RouterCheapCloudComplexity: getEnvFloat("OPTIMIZER_ROUTER_CHEAP_CLOUD_COMPLEXITY", 0.6),
		RouterBalancedCloudTokens:  getEnvInt("OPTIMIZER_ROUTER_BALANCED_CLOUD_TOKENS", 100000),
		PreserveImports:            getEnvBool("OPTIMIZER_PRESERVE_IMPORTS", false),
		PreserveTypes:              getEnvBool("OPTIMIZER_PRESERVE_TYPES", false),
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	if err := validateHostname(c.Qdrant.Host); err != nil {
		return fmt.Errorf("invalid QDRANT_HOST: %w", err)
	}

	if err := validatePath(c.Qdrant.DataPath); err != nil {
		return fmt.Errorf("invalid CTXFORGE_DATA_PATH: %w", err)
	}

	if err := validatePath(c.VectorStore.Chromem.Path); err != nil {
		return fmt.Errorf("invalid CTXFORGE_VECTORSTORE_CHROMEM_PATH: %w", err)
	}

	if c.Embeddings.CacheDir != "" {
		if err := validatePath(c.Embeddings.CacheDir); err != nil {
			return fmt.Errorf("invalid EMBEDDINGS_CACHE_DIR: %w", err)
		}
	}

	if c.Embeddings.BaseURL != "" {
		if err := validateURL(c.Embeddings.BaseURL); err != nil {
			return fmt.Errorf("invalid EMBEDDING_BASE_URL: %w", err)
		}
	}

	if err := c.VectorStore.Validate(); err != nil {
		return err
	}

	if c.Optimizer.SelectorOverageAllowance < 0 {
		return errors.New("selector overage allowance must be non-negative")
	}

	if err := c.Production.Validate(); err != nil {
		return fmt.Errorf("production config validation failed: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := make([]string, 0)
		for _, part := range splitAndTrim(value, ",") {
			if part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		result = append(result, strings.TrimSpace(part))
	}
	return result
}

// ProductionConfig holds production deployment configuration.
type ProductionConfig struct {
	Enabled                  bool `koanf:"enabled"`
	LocalModeAcknowledged    bool `koanf:"local_mode_acknowledged"`
	RequireAuthentication    bool `koanf:"require_authentication"`
	AuthenticationConfigured bool `koanf:"authentication_configured"`
	RequireTLS               bool `koanf:"require_tls"`
	AllowNoIsolation         bool `koanf:"allow_no_isolation"`
}

// IsProduction returns true if running in production mode.
func (c *ProductionConfig) IsProduction() bool {
	return c.Enabled
}

// IsLocal returns true if local mode is acknowledged.
func (c *ProductionConfig) IsLocal() bool {
	return c.LocalModeAcknowledged
}

// Validate checks production configuration for security issues.
func (c *ProductionConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.AllowNoIsolation {
		return fmt.Errorf("SECURITY: NoIsolation mode cannot be enabled in production")
	}

	if c.RequireAuthentication && !c.AuthenticationConfigured {
		return fmt.Errorf("SECURITY: RequireAuthentication enabled but authentication not configured")
	}

	return nil
}

// validateHostname checks if a hostname is safe (no command injection attempts).
func validateHostname(host string) error {
	if host == "" {
		return nil
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	hostnameRegex := regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format: %s", host)
	}

	invalidChars := []string{";", "\n", "\r", "$", "`", "|", "&", "<", ">", "(", ")"}
	for _, char := range invalidChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("invalid hostname: contains forbidden character %q", char)
		}
	}
	return nil
}

// validatePath checks if a path is safe (no path traversal)
func validatePath(path string) error {
	if strings.Contains(path, "..") {
		return fmt.Errorf("path contains traversal sequence: %s", path)
	}

	if filepath.IsAbs(path) {
		clean := filepath.Clean(path)
		origDepth := strings.Count(path, string(filepath.Separator))
		cleanDepth := strings.Count(clean, string(filepath.Separator))

		if cleanDepth < origDepth-1 {
			return fmt.Errorf("path traversal detected: %s (resolves to %s)", path, clean)
		}
	}

	return nil
}

// validateURL checks if a URL uses allowed schemes (http/https only)
func validateURL(urlStr string) error {
	if !strings.HasPrefix(urlStr, "http://") && !strings.HasPrefix(urlStr, "https://") {
		return fmt.Errorf("URL must use http:// or https:// scheme, got: %s", urlStr)
	}
	return nil
}

// RouterThresholds projects the optimizer config's flat router fields into
// internal/router.Thresholds without internal/config importing internal/router.
func (c *OptimizerConfig) RouterThresholds() (localFreeTokens, cloudFreeTokens, cheapCloudTokens, balancedCloudTokens int, localFreeComplexity, cloudFreeComplexity, cheapCloudComplexity float64) {
	return c.RouterLocalFreeTokens, c.RouterCloudFreeTokens, c.RouterCheapCloudTokens, c.RouterBalancedCloudTokens,
		c.RouterLocalFreeComplexity, c.RouterCloudFreeComplexity, c.RouterCheapCloudComplexity
}
