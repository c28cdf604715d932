package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeTransformersServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(transformersInfoResponse{ModelID: "fake/test-model", MaxInputLength: 512})
	})
	mux.HandleFunc("/embed", func(w http.ResponseWriter, r *http.Request) {
		var req transformersEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var n int
		switch v := req.Inputs.(type) {
		case string:
			n = 1
		case []any:
			n = len(v)
		default:
			n = 1
		}

		out := make([][]float32, n)
		for i := range out {
			vec := make([]float32, dims)
			vec[0] = 1
			out[i] = vec
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	return httptest.NewServer(mux)
}

func TestNewTransformersEmbedder_DetectsDimensions(t *testing.T) {
	srv := newFakeTransformersServer(t, 384)
	defer srv.Close()

	cfg := DefaultTransformersConfig()
	cfg.Host = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	embedder, err := NewTransformersEmbedder(ctx, cfg)
	require.NoError(t, err)
	defer embedder.Close()

	assert.Equal(t, 384, embedder.Dimensions())
	assert.Equal(t, "fake/test-model", embedder.ModelName())
}

func TestTransformersEmbedder_EmbedAndBatch(t *testing.T) {
	srv := newFakeTransformersServer(t, 8)
	defer srv.Close()

	cfg := DefaultTransformersConfig()
	cfg.Host = srv.URL

	embedder, err := NewTransformersEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer embedder.Close()

	vec, err := embedder.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Len(t, vec, 8)

	batch, err := embedder.EmbedBatch(context.Background(), []string{"a", "", "b"})
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Len(t, batch[1], 8)
	for _, v := range batch[1] {
		assert.Zero(t, v)
	}
}

func TestTransformersEmbedder_EmptyTextShortCircuits(t *testing.T) {
	srv := newFakeTransformersServer(t, 4)
	defer srv.Close()

	cfg := DefaultTransformersConfig()
	cfg.Host = srv.URL
	cfg.Dimensions = 4

	embedder, err := NewTransformersEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer embedder.Close()

	vec, err := embedder.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 4), vec)
}

func TestNewTransformersEmbedder_UnreachableServerErrors(t *testing.T) {
	cfg := DefaultTransformersConfig()
	cfg.Host = "http://127.0.0.1:1"
	cfg.ConnectTimeout = 200 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewTransformersEmbedder(ctx, cfg)
	require.Error(t, err)
}

func TestTransformersEmbedder_AvailableReflectsServerState(t *testing.T) {
	srv := newFakeTransformersServer(t, 4)

	cfg := DefaultTransformersConfig()
	cfg.Host = srv.URL

	embedder, err := NewTransformersEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer embedder.Close()

	assert.True(t, embedder.Available(context.Background()))

	srv.Close()
	assert.False(t, embedder.Available(context.Background()))
}

func TestTransformersEmbedder_CloseIsIdempotent(t *testing.T) {
	srv := newFakeTransformersServer(t, 4)
	defer srv.Close()

	cfg := DefaultTransformersConfig()
	cfg.Host = srv.URL

	embedder, err := NewTransformersEmbedder(context.Background(), cfg)
	require.NoError(t, err)

	require.NoError(t, embedder.Close())
	require.NoError(t, embedder.Close())

	_, err = embedder.Embed(context.Background(), "text")
	assert.Error(t, err)
}
