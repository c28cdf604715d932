package embed

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	orig, had := os.LookupEnv(key)
	if value == "" {
		os.Unsetenv(key)
	} else {
		os.Setenv(key, value)
	}
	t.Cleanup(func() {
		if had {
			os.Setenv(key, orig)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestParseProvider(t *testing.T) {
	cases := map[string]ProviderType{
		"ollama":       ProviderOllama,
		"transformers": ProviderTransformers,
		"static":       ProviderStatic,
		"":             ProviderOllama,
		"nonsense":     ProviderOllama,
	}
	for input, want := range cases {
		assert.Equal(t, want, ParseProvider(input), "ParseProvider(%q)", input)
	}
}

func TestIsValidProvider(t *testing.T) {
	assert.True(t, IsValidProvider("ollama"))
	assert.True(t, IsValidProvider("TRANSFORMERS"))
	assert.True(t, IsValidProvider("static"))
	assert.False(t, IsValidProvider("mlx"))
}

func TestNewEmbedder_StaticProvider_NeverFails(t *testing.T) {
	embedder, err := NewEmbedder(context.Background(), ProviderStatic, "")
	require.NoError(t, err)
	assert.Equal(t, ProviderStatic.String(), "static")
	assert.Greater(t, embedder.Dimensions(), 0)
}

func TestNewEmbedder_EnvOverridesProviderArgument(t *testing.T) {
	withEnv(t, "RAGENGINE_EMBEDDER", "static")
	embedder, err := NewEmbedder(context.Background(), ProviderOllama, "")
	require.NoError(t, err)
	assert.Equal(t, StaticDimensions, embedder.Dimensions())
}

func TestNewEmbedder_OllamaUnavailable_ReturnsError(t *testing.T) {
	withEnv(t, "RAGENGINE_EMBEDDER", "")
	withEnv(t, "RAGENGINE_OLLAMA_HOST", "http://localhost:59999")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewEmbedder(ctx, ProviderOllama, "")
	require.Error(t, err)
}

func TestNewEmbedder_TransformersUnavailable_ReturnsError(t *testing.T) {
	withEnv(t, "RAGENGINE_EMBEDDER", "")
	withEnv(t, "RAGENGINE_TRANSFORMERS_HOST", "http://localhost:59998")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewEmbedder(ctx, ProviderTransformers, "")
	require.Error(t, err)
}

func TestNewEmbedder_CacheDisabledByEnv(t *testing.T) {
	withEnv(t, "RAGENGINE_EMBEDDER", "static")
	withEnv(t, "RAGENGINE_EMBED_CACHE", "false")

	embedder, err := NewEmbedder(context.Background(), ProviderStatic, "")
	require.NoError(t, err)

	_, isCached := embedder.(*CachedEmbedder)
	assert.False(t, isCached, "embedder should not be wrapped when cache is disabled")
}

func TestNewEmbedder_CacheEnabledByDefault(t *testing.T) {
	withEnv(t, "RAGENGINE_EMBEDDER", "static")
	withEnv(t, "RAGENGINE_EMBED_CACHE", "")

	embedder, err := NewEmbedder(context.Background(), ProviderStatic, "")
	require.NoError(t, err)

	_, isCached := embedder.(*CachedEmbedder)
	assert.True(t, isCached)
}

func TestGetInfo_UnwrapsCachedEmbedder(t *testing.T) {
	inner := NewStaticEmbedder()
	cached := NewCachedEmbedderWithDefaults(inner)

	info := GetInfo(context.Background(), cached)
	assert.Equal(t, ProviderStatic, info.Provider)
}

func TestMustNewEmbedder_PanicsOnFailure(t *testing.T) {
	withEnv(t, "RAGENGINE_EMBEDDER", "")
	withEnv(t, "RAGENGINE_OLLAMA_HOST", "http://localhost:59997")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Panics(t, func() {
		MustNewEmbedder(ctx, ProviderOllama, "")
	})
}
