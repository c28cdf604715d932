package embed

import "time"

// Transformers API constants. The transformers backend targets a
// HuggingFace text-embeddings-inference style HTTP server.
const (
	// DefaultTransformersHost is the default transformers server endpoint.
	DefaultTransformersHost = "http://localhost:8080"

	// DefaultTransformersModel is reported back by the server's /info
	// endpoint and is informational only; the server, not the client,
	// decides which model actually runs.
	DefaultTransformersModel = "BAAI/bge-small-en-v1.5"

	// TransformersConnectTimeout is the default for
	// TransformersConfig.ConnectTimeout. The startup health check itself is
	// bounded by DefaultColdTimeout.
	TransformersConnectTimeout = 5 * time.Second

	// TransformersPoolSize is the HTTP connection pool size.
	TransformersPoolSize = 4
)

// TransformersConfig configures the transformers embedder.
type TransformersConfig struct {
	// Host is the inference server endpoint.
	Host string

	// Model is used only to label results; the server's loaded model wins.
	Model string

	// Dimensions overrides auto-detection when non-zero.
	Dimensions int

	// BatchSize bounds how many texts go in one /embed call.
	BatchSize int

	// Timeout bounds each API request.
	Timeout time.Duration

	// ConnectTimeout is defaulted but not read by TransformersEmbedder: the
	// startup health check and dimension probe are bounded by
	// DefaultColdTimeout.
	ConnectTimeout time.Duration

	// MaxRetries bounds retry attempts on transient failures.
	MaxRetries int

	// PoolSize sizes the HTTP connection pool.
	PoolSize int

	// SkipHealthCheck skips the startup health check and dimension probe,
	// for use in tests against a fake server or no server at all.
	SkipHealthCheck bool

	// ProgressFunc is called after each batch with (completed, total) counts.
	ProgressFunc func(completed, total int)
}

// DefaultTransformersConfig returns sensible defaults.
func DefaultTransformersConfig() TransformersConfig {
	return TransformersConfig{
		Host:           DefaultTransformersHost,
		Model:          DefaultTransformersModel,
		Dimensions:     0,
		BatchSize:      DefaultBatchSize,
		Timeout:        DefaultTimeout,
		ConnectTimeout: TransformersConnectTimeout,
		MaxRetries:     DefaultMaxRetries,
		PoolSize:       TransformersPoolSize,
	}
}

// transformersEmbedRequest is the /embed request body. The server accepts
// either a single string or a batch.
type transformersEmbedRequest struct {
	Inputs any `json:"inputs"`
}

// transformersInfoResponse is the /info response used to identify the
// loaded model.
type transformersInfoResponse struct {
	ModelID        string `json:"model_id"`
	MaxInputLength int    `json:"max_input_length"`
}
