package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrag/ragengine/internal/chunk"
	"github.com/localrag/ragengine/internal/embed"
	"github.com/localrag/ragengine/internal/store"
)

func setupPipeline(t *testing.T) (*Pipeline, string) {
	t.Helper()

	docsDir := t.TempDir()
	dataDir := t.TempDir()

	metadata, err := store.NewSQLiteMetadataStore(filepath.Join(dataDir, "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = metadata.Close() })

	embedder := embed.NewStaticEmbedder()
	t.Cleanup(func() { _ = embedder.Close() })

	vectors, err := store.NewVectorStore(store.VectorStoreOptions{
		DataDir:    dataDir,
		Dimensions: embedder.Dimensions(),
		Metric:     "cos",
		Embedder:   embedder,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })

	dispatcher := chunk.NewDispatcher(chunk.DefaultOptions(), nil)

	p := New(Config{
		DocumentsDir: docsDir,
		Metadata:     metadata,
		Vectors:      vectors,
		Embedder:     embedder,
		Chunker:      dispatcher,
	})
	return p, docsDir
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestProcessIndexesNewFile(t *testing.T) {
	p, docsDir := setupPipeline(t)
	writeDoc(t, docsDir, "note.txt", "the quick brown fox jumps over the lazy dog")

	ctx := context.Background()
	require.NoError(t, p.Process(ctx, "note.txt"))
	assert.Equal(t, StateDone, p.State("note.txt"))

	file, err := p.cfg.Metadata.GetFileByPath(ctx, "note.txt")
	require.NoError(t, err)
	require.NotNil(t, file)

	count, err := p.cfg.Vectors.CountByDocID(ctx, file.FileID)
	require.NoError(t, err)
	assert.Greater(t, count, 0)
}

func TestProcessIsIdempotentOnUnchangedContent(t *testing.T) {
	p, docsDir := setupPipeline(t)
	writeDoc(t, docsDir, "note.txt", "stable content that does not change")

	ctx := context.Background()
	require.NoError(t, p.Process(ctx, "note.txt"))

	file, err := p.cfg.Metadata.GetFileByPath(ctx, "note.txt")
	require.NoError(t, err)
	firstIndexedAt := file.IndexedAt

	require.NoError(t, p.Process(ctx, "note.txt"))

	file2, err := p.cfg.Metadata.GetFileByPath(ctx, "note.txt")
	require.NoError(t, err)
	assert.Equal(t, firstIndexedAt, file2.IndexedAt, "re-processing unchanged content should be a no-op")
}

func TestProcessReindexesOnContentChange(t *testing.T) {
	p, docsDir := setupPipeline(t)
	writeDoc(t, docsDir, "note.txt", "version one of the document")

	ctx := context.Background()
	require.NoError(t, p.Process(ctx, "note.txt"))

	file, err := p.cfg.Metadata.GetFileByPath(ctx, "note.txt")
	require.NoError(t, err)
	hash1 := file.ContentHash

	writeDoc(t, docsDir, "note.txt", "version two of the document, now with different content entirely")
	require.NoError(t, p.Process(ctx, "note.txt"))

	file2, err := p.cfg.Metadata.GetFileByPath(ctx, "note.txt")
	require.NoError(t, err)
	assert.NotEqual(t, hash1, file2.ContentHash)
}

func TestRemoveDeletesFileAndVectors(t *testing.T) {
	p, docsDir := setupPipeline(t)
	writeDoc(t, docsDir, "note.txt", "content to be removed later")

	ctx := context.Background()
	require.NoError(t, p.Process(ctx, "note.txt"))

	file, err := p.cfg.Metadata.GetFileByPath(ctx, "note.txt")
	require.NoError(t, err)
	require.NotNil(t, file)

	require.NoError(t, p.Remove(ctx, "note.txt"))

	gone, err := p.cfg.Metadata.GetFileByPath(ctx, "note.txt")
	require.NoError(t, err)
	assert.Nil(t, gone)

	count, err := p.cfg.Vectors.CountByDocID(ctx, file.FileID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestProcessSkipsUnsupportedExtension(t *testing.T) {
	p, docsDir := setupPipeline(t)
	writeDoc(t, docsDir, "binary.exe", "not really a document")

	ctx := context.Background()
	require.NoError(t, p.Process(ctx, "binary.exe"))
	assert.Equal(t, StateDone, p.State("binary.exe"))

	file, err := p.cfg.Metadata.GetFileByPath(ctx, "binary.exe")
	require.NoError(t, err)
	assert.Nil(t, file)
}

func TestGenerateFileIDIsStableAndPathScoped(t *testing.T) {
	id1 := generateFileID("docs/readme.md")
	id2 := generateFileID("docs/readme.md")
	id3 := generateFileID("docs/other.md")
	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3)
}
