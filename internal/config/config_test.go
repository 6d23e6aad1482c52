package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	original := saveEnv()
	defer restoreEnv(original)
	clearEnv()

	cfg := Load()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Observability.EnableTelemetry)
	assert.Equal(t, "ctxforge", cfg.Observability.ServiceName)
	assert.Equal(t, "memory", cfg.VectorStore.Provider)
	assert.Equal(t, "fastembed", cfg.Embeddings.Provider)
	assert.Equal(t, 0.10, cfg.Optimizer.SelectorOverageAllowance)
	assert.Equal(t, 8000, cfg.Optimizer.RouterLocalFreeTokens)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	original := saveEnv()
	defer restoreEnv(original)
	clearEnv()

	os.Setenv("SERVER_PORT", "9999")
	os.Setenv("OTEL_ENABLE", "true")
	os.Setenv("OTEL_SERVICE_NAME", "test-service")
	os.Setenv("CTXFORGE_VECTORSTORE_PROVIDER", "qdrant")
	os.Setenv("OPTIMIZER_SELECTOR_OVERAGE_ALLOWANCE", "0.25")

	cfg := Load()

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.True(t, cfg.Observability.EnableTelemetry)
	assert.Equal(t, "test-service", cfg.Observability.ServiceName)
	assert.Equal(t, "qdrant", cfg.VectorStore.Provider)
	assert.Equal(t, 0.25, cfg.Optimizer.SelectorOverageAllowance)
}

func TestConfig_Validate_RejectsBadPort(t *testing.T) {
	cfg := Load()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsUnsupportedVectorStoreProvider(t *testing.T) {
	cfg := Load()
	cfg.VectorStore.Provider = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsNegativeOverageAllowance(t *testing.T) {
	cfg := Load()
	cfg.Optimizer.SelectorOverageAllowance = -0.1
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_AcceptsDefaults(t *testing.T) {
	cfg := Load()
	assert.NoError(t, cfg.Validate())
}

var ctxforgeEnvKeys = []string{
	"SERVER_PORT", "SERVER_SHUTDOWN_TIMEOUT", "OTEL_ENABLE", "OTEL_SERVICE_NAME",
	"QDRANT_HOST", "QDRANT_PORT", "QDRANT_HTTP_PORT", "QDRANT_COLLECTION", "QDRANT_VECTOR_SIZE",
	"CTXFORGE_DATA_PATH", "EMBEDDINGS_PROVIDER", "EMBEDDING_BASE_URL", "EMBEDDINGS_MODEL",
	"EMBEDDINGS_CACHE_DIR", "EMBEDDINGS_ONNX_VERSION", "CTXFORGE_VECTORSTORE_PROVIDER",
	"CTXFORGE_VECTORSTORE_CHROMEM_PATH", "CTXFORGE_VECTORSTORE_CHROMEM_COMPRESS",
	"CTXFORGE_VECTORSTORE_CHROMEM_COLLECTION", "CTXFORGE_VECTORSTORE_CHROMEM_VECTOR_SIZE",
	"CTXFORGE_FALLBACK_ENABLED", "OPTIMIZER_SELECTOR_OVERAGE_ALLOWANCE",
	"OPTIMIZER_DEFAULT_MIN_RELEVANCE", "CTXFORGE_PRODUCTION_MODE", "CTXFORGE_LOCAL_MODE",
}

func saveEnv() map[string]string {
	saved := make(map[string]string, len(ctxforgeEnvKeys))
	for _, k := range ctxforgeEnvKeys {
		saved[k] = os.Getenv(k)
	}
	return saved
}

func restoreEnv(saved map[string]string) {
	for k, v := range saved {
		if v == "" {
			os.Unsetenv(k)
		} else {
			os.Setenv(k, v)
		}
	}
}

func clearEnv() {
	for _, k := range ctxforgeEnvKeys {
		os.Unsetenv(k)
	}
}
