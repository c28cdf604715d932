package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// TransformersEmbedder generates embeddings via an HTTP text-embeddings
// inference server (the HuggingFace TEI wire shape: POST /embed with
// {"inputs": ...} returning a bare array of vectors).
type TransformersEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    TransformersConfig
	modelName string
	dims      int

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*TransformersEmbedder)(nil)

// NewTransformersEmbedder creates a new transformers embedder.
func NewTransformersEmbedder(ctx context.Context, cfg TransformersConfig) (*TransformersEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultTransformersHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultTransformersModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = TransformersConnectTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = TransformersPoolSize
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		MaxConnsPerHost:     cfg.PoolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}

	// No client-level Timeout: per-request context timeouts are applied in
	// doEmbedWithRetry, matching the ollama embedder's approach.
	client := &http.Client{Transport: transport}

	e := &TransformersEmbedder{
		client:    client,
		transport: transport,
		config:    cfg,
		modelName: cfg.Model,
		dims:      cfg.Dimensions,
	}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, DefaultColdTimeout)
		defer cancel()

		modelName, err := e.fetchModelInfo(checkCtx)
		if err != nil {
			transport.CloseIdleConnections()
			return nil, fmt.Errorf("failed to connect to transformers server: %w", err)
		}
		if modelName != "" {
			e.modelName = modelName
		}

		if cfg.Dimensions == 0 {
			dims, err := e.detectDimensions(checkCtx)
			if err != nil {
				transport.CloseIdleConnections()
				return nil, fmt.Errorf("failed to detect embedding dimensions: %w", err)
			}
			e.dims = dims
		}
	}

	if e.dims == 0 {
		e.dims = DefaultDimensions
	}

	return e, nil
}

// fetchModelInfo calls GET /info to confirm the server is reachable and to
// learn which model it actually has loaded.
func (e *TransformersEmbedder) fetchModelInfo(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.Host+"/info", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to connect: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var info transformersInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to decode /info response: %w", err)
	}

	return info.ModelID, nil
}

// detectDimensions auto-detects embedding dimensions from a probe call.
func (e *TransformersEmbedder) detectDimensions(ctx context.Context) (int, error) {
	embeddings, err := e.doEmbed(ctx, []string{"dimension detection"})
	if err != nil {
		return 0, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return 0, fmt.Errorf("empty embedding returned")
	}
	return len(embeddings[0]), nil
}

// Embed generates an embedding for a single text.
func (e *TransformersEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, e.dims), nil
	}

	embeddings, err := e.doEmbedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts, chunked by BatchSize.
func (e *TransformersEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	type indexedText struct {
		idx  int
		text string
	}
	var nonEmpty []indexedText
	results := make([][]float32, len(texts))

	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, e.dims)
		} else {
			nonEmpty = append(nonEmpty, indexedText{i, text})
		}
	}
	if len(nonEmpty) == 0 {
		return results, nil
	}

	for start := 0; start < len(nonEmpty); start += e.config.BatchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := start + e.config.BatchSize
		if end > len(nonEmpty) {
			end = len(nonEmpty)
		}

		batch := nonEmpty[start:end]
		batchTexts := make([]string, len(batch))
		for i, it := range batch {
			batchTexts[i] = it.text
		}

		embeddings, err := e.doEmbedWithRetry(ctx, batchTexts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch: %w", err)
		}
		for i, emb := range embeddings {
			results[batch[i].idx] = emb
		}

		if e.config.ProgressFunc != nil {
			e.config.ProgressFunc(end, len(nonEmpty))
		}
	}

	return results, nil
}

// doEmbedWithRetry wraps doEmbed with exponential backoff, sharing the
// retry/backoff shape used for model downloads.
func (e *TransformersEmbedder) doEmbedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	retryCfg := RetryConfig{
		MaxRetries:   e.config.MaxRetries - 1,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}
	if retryCfg.MaxRetries < 0 {
		retryCfg.MaxRetries = 0
	}

	var embeddings [][]float32
	err := DownloadWithRetry(ctx, retryCfg, func() error {
		timeoutCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()

		var embedErr error
		embeddings, embedErr = e.doEmbed(timeoutCtx, texts)
		return embedErr
	})
	if err != nil {
		return nil, err
	}
	return embeddings, nil
}

// doEmbed performs a single /embed request and normalizes the result.
func (e *TransformersEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	var inputs any
	if len(texts) == 1 {
		inputs = texts[0]
	} else {
		inputs = texts
	}

	reqBody := transformersEmbedRequest{Inputs: inputs}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Host+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var raw [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	embeddings := make([][]float32, len(raw))
	for i, emb := range raw {
		embeddings[i] = normalizeVector(emb)
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *TransformersEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the model identifier reported by the server.
func (e *TransformersEmbedder) ModelName() string {
	return e.modelName
}

// Available checks whether the transformers server is reachable.
func (e *TransformersEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return false
	}
	e.mu.RUnlock()

	_, err := e.fetchModelInfo(ctx)
	return err == nil
}

// SetBatchIndex is a no-op; the transformers backend has no progressive
// timeout scheme tied to batch position.
func (e *TransformersEmbedder) SetBatchIndex(int) {}

// SetFinalBatch is a no-op; see SetBatchIndex.
func (e *TransformersEmbedder) SetFinalBatch(bool) {}

// Close releases pooled connections.
func (e *TransformersEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if e.transport != nil {
		e.transport.CloseIdleConnections()
	}
	return nil
}
