package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Edge case tests for config loading, merging, and validation - scenarios
// that could cause silent failures or unexpected precedence behavior.

func TestLoadYAML_MalformedFile_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".ragengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: [not a number"), 0644))

	cfg := NewConfig()
	err := cfg.loadYAML(path)
	assert.Error(t, err)
}

func TestLoadYAML_EmptyFile_KeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".ragengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))

	cfg := NewConfig()
	require.NoError(t, cfg.loadYAML(path))
	assert.Equal(t, 1500, cfg.ChunkSize)
}

func TestLoadFromFile_PrefersYamlOverYml(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ragengine.yaml"), []byte("chunk_size: 111\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ragengine.yml"), []byte("chunk_size: 222\n"), 0644))

	cfg := NewConfig()
	require.NoError(t, cfg.loadFromFile(dir))
	assert.Equal(t, 111, cfg.ChunkSize)
}

func TestMergeWith_ZeroValuesDoNotOverrideDefaults(t *testing.T) {
	cfg := NewConfig()
	var empty Config
	cfg.mergeWith(&empty)
	assert.Equal(t, NewConfig().ChunkSize, cfg.ChunkSize)
	assert.Equal(t, NewConfig().EmbeddingService, cfg.EmbeddingService)
}

func TestMergeWith_BooleanTrueOverrides(t *testing.T) {
	cfg := NewConfig()
	cfg.mergeWith(&Config{SyncAutoFix: true, EnableLLMReranking: true})
	assert.True(t, cfg.SyncAutoFix)
	assert.True(t, cfg.EnableLLMReranking)
}

func TestValidate_RejectsChunkOverlapEqualToChunkSize(t *testing.T) {
	cfg := NewConfig()
	cfg.ChunkOverlap = cfg.ChunkSize
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownEmbeddingService(t *testing.T) {
	cfg := NewConfig()
	cfg.EmbeddingService = "mlx"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsHybridRatiosNotSummingToOne(t *testing.T) {
	cfg := NewConfig()
	cfg.HybridSemanticRatio = 0.9
	cfg.HybridKeywordRatio = 0.9
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNegativeSimilarityThreshold(t *testing.T) {
	cfg := NewConfig()
	cfg.SimilarityThreshold = -0.1
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownKeywordBackend(t *testing.T) {
	cfg := NewConfig()
	cfg.KeywordBackend = "elasticsearch"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownChunkingStrategy(t *testing.T) {
	cfg := NewConfig()
	cfg.ChunkingStrategy = "semantic"
	assert.Error(t, cfg.Validate())
}

func TestApplyEnvOverrides_InvalidNumberIsIgnored(t *testing.T) {
	t.Setenv("RAGENGINE_CHUNK_SIZE", "not-a-number")
	cfg := NewConfig()
	cfg.applyEnvOverrides()
	assert.Equal(t, NewConfig().ChunkSize, cfg.ChunkSize)
}

func TestApplyEnvOverrides_BoolAcceptsOneAndTrue(t *testing.T) {
	t.Setenv("RAGENGINE_SYNC_AUTO_FIX", "1")
	cfg := NewConfig()
	cfg.applyEnvOverrides()
	assert.True(t, cfg.SyncAutoFix)
}

func TestUserConfigExists_FalseWhenAbsent(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	assert.False(t, UserConfigExists())
}

func TestLoadUserConfig_NilWhenAbsent(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg)
}
