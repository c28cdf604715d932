package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrag/ragengine/internal/chunk"
	"github.com/localrag/ragengine/internal/embed"
	ragerrors "github.com/localrag/ragengine/internal/errors"
	"github.com/localrag/ragengine/internal/ingest"
	"github.com/localrag/ragengine/internal/store"
)

type harness struct {
	dir      string
	metadata *store.SQLiteMetadataStore
	vectors  *store.VectorStore
	pipeline *ingest.Pipeline
	manager  *Manager
}

func setupHarness(t *testing.T) *harness {
	t.Helper()

	docsDir := t.TempDir()
	dataDir := t.TempDir()

	embedder := embed.NewStaticEmbedder()
	t.Cleanup(func() { _ = embedder.Close() })

	ms, err := store.NewSQLiteMetadataStore(filepath.Join(dataDir, "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ms.Close() })

	vs, err := store.NewVectorStore(store.VectorStoreOptions{
		DataDir:    dataDir,
		Dimensions: embedder.Dimensions(),
		Metric:     "cos",
		Embedder:   embedder,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vs.Close() })

	pipeline := ingest.New(ingest.Config{
		DocumentsDir: docsDir,
		Metadata:     ms,
		Vectors:      vs,
		Embedder:     embedder,
		Chunker:      chunk.NewDispatcher(chunk.DefaultOptions(), nil),
	})

	manager := NewManager(docsDir, ".ragengine", ms, vs, pipeline)

	return &harness{dir: docsDir, metadata: ms, vectors: vs, pipeline: pipeline, manager: manager}
}

func writeDoc(t *testing.T, h *harness, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, name), []byte(content), 0o644))
}

func TestGenerateSyncReportDetectsNewFile(t *testing.T) {
	h := setupHarness(t)
	writeDoc(t, h, "a.md", "some content about cats and dogs")

	report, err := h.manager.GenerateSyncReport(context.Background(), false, true, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.IssueCounts[ragerrors.IntegrityNewFile])
}

func TestGenerateSyncReportAutoFixIngestsNewFile(t *testing.T) {
	h := setupHarness(t)
	writeDoc(t, h, "a.md", "some content about cats and dogs")

	report, err := h.manager.GenerateSyncReport(context.Background(), false, true, true)
	require.NoError(t, err)
	require.NotEmpty(t, report.Fixed)
	assert.True(t, report.Fixed[0].Applied)

	f, err := h.metadata.GetFileByPath(context.Background(), "a.md")
	require.NoError(t, err)
	require.NotNil(t, f)
}

func TestGenerateSyncReportDetectsMissingFile(t *testing.T) {
	h := setupHarness(t)
	writeDoc(t, h, "b.md", "gone soon")
	require.NoError(t, h.pipeline.Process(context.Background(), "b.md"))
	require.NoError(t, os.Remove(filepath.Join(h.dir, "b.md")))

	report, err := h.manager.GenerateSyncReport(context.Background(), false, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.IssueCounts[ragerrors.IntegrityMissingFile])
}

func TestGenerateSyncReportDeepDetectsHashMismatch(t *testing.T) {
	h := setupHarness(t)
	writeDoc(t, h, "c.md", "original content here")
	require.NoError(t, h.pipeline.Process(context.Background(), "c.md"))

	writeDoc(t, h, "c.md", "totally different content now")
	f, err := h.metadata.GetFileByPath(context.Background(), "c.md")
	require.NoError(t, err)
	f.ContentHash = "stale"
	require.NoError(t, h.metadata.UpsertFile(context.Background(), f))

	report, err := h.manager.GenerateSyncReport(context.Background(), true, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.IssueCounts[ragerrors.IntegrityHashMismatch])
}

func TestGenerateSyncReportDetectsOrphanedVector(t *testing.T) {
	h := setupHarness(t)
	writeDoc(t, h, "d.md", "indexed then orphaned")
	require.NoError(t, h.pipeline.Process(context.Background(), "d.md"))

	f, err := h.metadata.GetFileByPath(context.Background(), "d.md")
	require.NoError(t, err)
	require.NoError(t, h.metadata.DeleteFileCascadingChunks(context.Background(), f.FileID))

	report, err := h.manager.GenerateSyncReport(context.Background(), false, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.IssueCounts[ragerrors.IntegrityOrphanedVector])
}

func TestApplyFixesDeletesOrphanedVector(t *testing.T) {
	h := setupHarness(t)
	writeDoc(t, h, "e.md", "will be orphaned")
	require.NoError(t, h.pipeline.Process(context.Background(), "e.md"))
	f, err := h.metadata.GetFileByPath(context.Background(), "e.md")
	require.NoError(t, err)
	require.NoError(t, h.metadata.DeleteFileCascadingChunks(context.Background(), f.FileID))

	results, err := h.manager.ApplyFixes(context.Background(), []Issue{{Kind: ragerrors.IntegrityOrphanedVector, FileID: f.FileID}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Applied)

	count, err := h.vectors.CountByDocID(context.Background(), f.FileID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
