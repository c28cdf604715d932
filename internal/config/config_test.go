package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "./documents", cfg.DocumentsDir)
	assert.Equal(t, "./.ragengine", cfg.DataDir)
	assert.Equal(t, 1500, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, ChunkingNormal, cfg.ChunkingStrategy)

	assert.Equal(t, 10, cfg.SimilarityTopK)
	assert.Equal(t, 0.0, cfg.SimilarityThreshold)

	assert.Equal(t, EmbeddingServiceOllama, cfg.EmbeddingService)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, 0, cfg.EmbeddingDimensions)
	assert.Equal(t, 32, cfg.EmbeddingBatchSize)

	assert.Equal(t, 0.6, cfg.HybridSemanticRatio)
	assert.Equal(t, 0.4, cfg.HybridKeywordRatio)
	assert.Equal(t, 20, cfg.HybridTotalResultsForReranking)
	assert.False(t, cfg.EnableLLMReranking)

	assert.Equal(t, "5m", cfg.SyncInterval)
	assert.Equal(t, "1h", cfg.SyncDeepInterval)
	assert.False(t, cfg.SyncAutoFix)

	assert.Equal(t, 10000, cfg.SearchPipelineTimeoutMS)
	assert.Equal(t, runtime.NumCPU(), cfg.MaxConcurrentProcessing)
	assert.Equal(t, 1000, cfg.MaxCacheSize)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, KeywordBackendSQLite, cfg.KeywordBackend)
}

func TestConfig_HybridRatiosSumToOne(t *testing.T) {
	cfg := NewConfig()
	assert.InDelta(t, 1.0, cfg.HybridSemanticRatio+cfg.HybridKeywordRatio, 0.01)
}

func TestConfig_DefaultsPassValidate(t *testing.T) {
	assert.NoError(t, NewConfig().Validate())
}

func TestLoad_NoProjectConfigUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, NewConfig().ChunkSize, cfg.ChunkSize)
}

func TestLoad_ProjectConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlContent := []byte("chunk_size: 800\nembedding_service: transformers\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ragengine.yaml"), yamlContent, 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, EmbeddingServiceTransformers, cfg.EmbeddingService)
}

func TestLoad_YmlFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ragengine.yml"), []byte("chunk_overlap: 50\n"), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.ChunkOverlap)
}

func TestApplyEnvOverrides_HighestPrecedence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ragengine.yaml"), []byte("chunk_size: 800\n"), 0644))

	t.Setenv("RAGENGINE_CHUNK_SIZE", "2000")
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.ChunkSize)
}

func TestApplyEnvOverrides_EmbeddingService(t *testing.T) {
	t.Setenv("RAGENGINE_EMBEDDING_SERVICE", "transformers")
	cfg := NewConfig()
	cfg.applyEnvOverrides()
	assert.Equal(t, EmbeddingServiceTransformers, cfg.EmbeddingService)
}

func TestGetUserConfigPath_UsesXDGWhenSet(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdgtest")
	assert.Equal(t, "/tmp/xdgtest/ragengine/config.yaml", GetUserConfigPath())
}

func TestWriteYAMLAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	cfg := NewConfig()
	cfg.ChunkSize = 999
	require.NoError(t, cfg.WriteYAML(path))

	reloaded := NewConfig()
	require.NoError(t, reloaded.loadYAML(path))
	assert.Equal(t, 999, reloaded.ChunkSize)
}
