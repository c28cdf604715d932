package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrag/ragengine/internal/embed"
	"github.com/localrag/ragengine/internal/model"
	"github.com/localrag/ragengine/internal/store"
)

func setupEngine(t *testing.T) *Engine {
	t.Helper()

	embedder := embed.NewStaticEmbedder()
	t.Cleanup(func() { _ = embedder.Close() })

	vs, err := store.NewVectorStore(store.VectorStoreOptions{
		DataDir:    t.TempDir(),
		Dimensions: embedder.Dimensions(),
		Metric:     "cos",
		Embedder:   embedder,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vs.Close() })

	ctx := context.Background()
	docs := []struct {
		id   string
		text string
	}{
		{"doc1", "the quick brown fox jumps over the lazy dog"},
		{"doc2", "go programming language concurrency goroutines channels"},
		{"doc3", "search engines rank documents by relevance score"},
	}
	for _, d := range docs {
		vec, err := embedder.Embed(ctx, d.text)
		require.NoError(t, err)
		require.NoError(t, vs.Add(ctx, []*model.VectorRecord{{
			DocID: d.id, ChunkID: 0, Vector: vec, Text: d.text, ContextualText: d.text,
			ModelName: embedder.ModelName(), Metadata: map[string]string{"file_type": "txt"},
		}}))
	}

	return NewEngine(vs)
}

func TestSemanticSearchReturnsHits(t *testing.T) {
	e := setupEngine(t)
	results, err := e.Search(context.Background(), "fox jumping", Options{Mode: ModeSemantic, TopK: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestKeywordSearchMatchesTerm(t *testing.T) {
	e := setupEngine(t)
	results, err := e.Search(context.Background(), "goroutines", Options{Mode: ModeKeyword, TopK: 3})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "doc2", results[0].DocID)
}

func TestHybridSearchMergesBothLegs(t *testing.T) {
	e := setupEngine(t)
	results, err := e.Search(context.Background(), "concurrency in go", Options{Mode: ModeHybrid, TopK: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestSearchTimeoutReturnsStructuredError(t *testing.T) {
	e := setupEngine(t)
	_, err := e.Search(context.Background(), "anything", Options{Mode: ModeSemantic, TopK: 3, Timeout: time.Nanosecond})
	require.Error(t, err)
}
