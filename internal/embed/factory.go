package embed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// ProviderType represents an embedding provider.
type ProviderType string

const (
	// ProviderOllama uses Ollama's HTTP API for embeddings.
	ProviderOllama ProviderType = "ollama"

	// ProviderTransformers uses a text-embeddings-inference HTTP server.
	ProviderTransformers ProviderType = "transformers"

	// ProviderStatic uses hash-based embeddings (fallback when no service is reachable).
	ProviderStatic ProviderType = "static"
)

// NewEmbedder creates an embedder for the given provider, with the
// RAGENGINE_EMBEDDER environment variable taking precedence over the
// provider argument when set.
//
// Query embedding caching is enabled by default (saves 50-200ms per
// repeated query). Set RAGENGINE_EMBED_CACHE=false to disable it.
func NewEmbedder(ctx context.Context, provider ProviderType, model string) (Embedder, error) {
	var embedder Embedder
	var err error

	if envProvider := os.Getenv("RAGENGINE_EMBEDDER"); envProvider != "" {
		switch strings.ToLower(envProvider) {
		case "transformers":
			embedder, err = newTransformersEmbedder(ctx, model)
		case "ollama":
			embedder, err = newOllamaEmbedder(ctx, model)
		case "static":
			embedder, err = NewStaticEmbedder(), nil
		}
	}

	if embedder == nil && err == nil {
		switch provider {
		case ProviderTransformers:
			embedder, err = newTransformersEmbedder(ctx, model)
		case ProviderOllama:
			embedder, err = newOllamaEmbedder(ctx, model)
		case ProviderStatic:
			embedder, err = NewStaticEmbedder(), nil
		default:
			embedder, err = newOllamaEmbedder(ctx, model)
		}
	}

	if err != nil {
		return nil, err
	}

	if !isCacheDisabled() {
		embedder = NewCachedEmbedderWithDefaults(embedder)
	}

	return embedder, nil
}

// isCacheDisabled checks if embedding cache is disabled via environment.
func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("RAGENGINE_EMBED_CACHE"))
	return v == "false" || v == "0" || v == "off" || v == "disabled"
}

// newTransformersEmbedder builds a transformers embedder, applying
// environment overrides on top of the supplied model hint.
func newTransformersEmbedder(ctx context.Context, model string) (Embedder, error) {
	cfg := DefaultTransformersConfig()
	if model != "" {
		cfg.Model = model
	}
	if host := os.Getenv("RAGENGINE_TRANSFORMERS_HOST"); host != "" {
		cfg.Host = host
	}
	if timeoutStr := os.Getenv("RAGENGINE_TRANSFORMERS_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			cfg.Timeout = timeout
		}
	}

	embedder, err := NewTransformersEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("transformers server unavailable: %w\n\nTo fix:\n  1. Start a text-embeddings-inference server at %s\n  2. Or switch embedding_service to ollama\n  3. Or use the static backend for keyword-only search", err, cfg.Host)
	}
	return embedder, nil
}

// newOllamaEmbedder builds an Ollama embedder, applying environment
// overrides on top of the supplied model hint.
func newOllamaEmbedder(ctx context.Context, model string) (Embedder, error) {
	cfg := DefaultOllamaConfig()
	if model != "" {
		cfg.Model = model
	}
	if host := os.Getenv("RAGENGINE_OLLAMA_HOST"); host != "" {
		cfg.Host = host
	}
	if modelOverride := os.Getenv("RAGENGINE_OLLAMA_MODEL"); modelOverride != "" {
		cfg.Model = modelOverride
	}
	if timeoutStr := os.Getenv("RAGENGINE_OLLAMA_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			cfg.Timeout = timeout
		}
	}
	if delayStr := os.Getenv("RAGENGINE_INTER_BATCH_DELAY"); delayStr != "" {
		if delay, err := time.ParseDuration(delayStr); err == nil && delay >= 0 && delay <= MaxInterBatchDelay {
			cfg.InterBatchDelay = delay
		}
	}

	embedder, err := NewOllamaEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ollama unavailable: %w\n\nTo fix:\n  1. Start Ollama: ollama serve\n  2. Or switch embedding_service to transformers\n  3. Or use the static backend for keyword-only search", err)
	}
	return embedder, nil
}

// ParseProvider converts a string to a ProviderType, defaulting to Ollama
// for unrecognized input.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(s) {
	case "transformers":
		return ProviderTransformers
	case "ollama":
		return ProviderOllama
	case "static":
		return ProviderStatic
	default:
		return ProviderOllama
	}
}

// String returns the string representation of ProviderType.
func (p ProviderType) String() string {
	return string(p)
}

// ValidProviders returns all valid provider names.
func ValidProviders() []string {
	return []string{
		string(ProviderTransformers),
		string(ProviderOllama),
		string(ProviderStatic),
	}
}

// IsValidProvider checks if a provider name is valid.
func IsValidProvider(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range ValidProviders() {
		if lower == p {
			return true
		}
	}
	return false
}

// EmbedderInfo describes a constructed embedder.
type EmbedderInfo struct {
	Provider   ProviderType
	Model      string
	Dimensions int
	Available  bool
}

// GetInfo returns information about an embedder, unwrapping a cache
// wrapper to identify the underlying provider.
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	info := EmbedderInfo{
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
	}

	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.inner
	}

	switch inner.(type) {
	case *TransformersEmbedder:
		info.Provider = ProviderTransformers
	case *OllamaEmbedder:
		info.Provider = ProviderOllama
	default:
		info.Provider = ProviderStatic
	}

	return info
}

// MustNewEmbedder creates an embedder and panics on failure.
// Use only in tests or initialization code where failure is fatal.
func MustNewEmbedder(ctx context.Context, provider ProviderType, model string) Embedder {
	embedder, err := NewEmbedder(ctx, provider, model)
	if err != nil {
		panic(fmt.Sprintf("failed to create embedder: %v", err))
	}
	return embedder
}
