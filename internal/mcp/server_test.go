package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrag/ragengine/internal/chunk"
	"github.com/localrag/ragengine/internal/embed"
	"github.com/localrag/ragengine/internal/ingest"
	"github.com/localrag/ragengine/internal/search"
	"github.com/localrag/ragengine/internal/store"
	syncmgr "github.com/localrag/ragengine/internal/sync"
)

func setupServer(t *testing.T) (*Server, *ingest.Pipeline, string) {
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

	pipeline := ingest.New(ingest.Config{
		DocumentsDir: docsDir,
		Metadata:     metadata,
		Vectors:      vectors,
		Embedder:     embedder,
		Chunker:      dispatcher,
	})

	engine := search.NewEngine(vectors)
	syncManager := syncmgr.NewManager(docsDir, filepath.Base(dataDir), metadata, vectors, pipeline)

	server := NewServer(metadata, vectors, engine, syncManager, embedder)
	return server, pipeline, docsDir
}

func writeAndIndex(t *testing.T, pipeline *ingest.Pipeline, docsDir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, name), []byte(content), 0o644))
	require.NoError(t, pipeline.Process(context.Background(), name))
}

func TestHandleSearch_RejectsEmptyQuery(t *testing.T) {
	server, _, _ := setupServer(t)

	_, env, err := server.handleSearch(context.Background(), nil, SearchInput{Query: "  "})
	require.NoError(t, err)
	assert.False(t, env.OK)
	assert.Equal(t, "ValidationError", env.ErrorCode)
}

func TestHandleSearch_RejectsUnknownSearchType(t *testing.T) {
	server, _, _ := setupServer(t)

	_, env, err := server.handleSearch(context.Background(), nil, SearchInput{Query: "fox", SearchType: "fuzzy"})
	require.NoError(t, err)
	assert.False(t, env.OK)
	assert.Contains(t, env.Message, "unknown searchType")
}

func TestHandleSearch_FindsIndexedContent(t *testing.T) {
	server, pipeline, docsDir := setupServer(t)
	writeAndIndex(t, pipeline, docsDir, "fox.txt", "the quick brown fox jumps over the lazy dog")

	_, env, err := server.handleSearch(context.Background(), nil, SearchInput{Query: "fox", SearchType: "keyword"})
	require.NoError(t, err)
	require.True(t, env.OK)

	out, ok := env.Data.(SearchOutput)
	require.True(t, ok)
	assert.NotEmpty(t, out.Results)
	assert.Equal(t, "fox.txt", out.Results[0].Source.Filename)
}

func TestHandleListSources_ListsIndexedFiles(t *testing.T) {
	server, pipeline, docsDir := setupServer(t)
	writeAndIndex(t, pipeline, docsDir, "a.txt", "alpha content")
	writeAndIndex(t, pipeline, docsDir, "b.txt", "beta content")

	_, env, err := server.handleListSources(context.Background(), nil, ListSourcesInput{})
	require.NoError(t, err)
	require.True(t, env.OK)

	out := env.Data.(ListSourcesOutput)
	assert.Equal(t, 2, out.Total)
}

func TestHandleListSources_FiltersByType(t *testing.T) {
	server, pipeline, docsDir := setupServer(t)
	writeAndIndex(t, pipeline, docsDir, "a.txt", "alpha content")
	writeAndIndex(t, pipeline, docsDir, "b.md", "# beta heading\n\nbeta body")

	_, env, err := server.handleListSources(context.Background(), nil, ListSourcesInput{SourceTypeFilter: "txt"})
	require.NoError(t, err)
	out := env.Data.(ListSourcesOutput)
	assert.Equal(t, 1, out.Total)
}

func TestHandleExtractInformation_RejectsEmptyQuestion(t *testing.T) {
	server, _, _ := setupServer(t)

	_, env, err := server.handleExtractInformation(context.Background(), nil, ExtractInformationInput{Question: ""})
	require.NoError(t, err)
	assert.False(t, env.OK)
}

func TestHandleExtractInformation_GathersContext(t *testing.T) {
	server, pipeline, docsDir := setupServer(t)
	writeAndIndex(t, pipeline, docsDir, "doc.txt", "ragengine indexes documents and answers questions about them")

	_, env, err := server.handleExtractInformation(context.Background(), nil, ExtractInformationInput{
		Question:     "what does ragengine index",
		SearchMethod: "keyword",
	})
	require.NoError(t, err)
	require.True(t, env.OK)

	out := env.Data.(ExtractInformationOutput)
	assert.NotEmpty(t, out.Context)
}

func TestHandleSyncCheck_CleanIndexReportsNoIssues(t *testing.T) {
	server, pipeline, docsDir := setupServer(t)
	writeAndIndex(t, pipeline, docsDir, "a.txt", "alpha content")

	_, env, err := server.handleSyncCheck(context.Background(), nil, SyncCheckInput{IncludeNew: true})
	require.NoError(t, err)
	require.True(t, env.OK)

	out := env.Data.(SyncCheckOutput)
	assert.Equal(t, 1, out.FilesChecked)
	assert.Empty(t, out.IssueCounts)
}

func TestHandleSyncCheck_DetectsMissingFile(t *testing.T) {
	server, pipeline, docsDir := setupServer(t)
	writeAndIndex(t, pipeline, docsDir, "a.txt", "alpha content")
	require.NoError(t, os.Remove(filepath.Join(docsDir, "a.txt")))

	_, env, err := server.handleSyncCheck(context.Background(), nil, SyncCheckInput{})
	require.NoError(t, err)
	require.True(t, env.OK)

	out := env.Data.(SyncCheckOutput)
	assert.Equal(t, 1, out.IssueCounts["missing_file"])
}

func TestHandleCleanupOrphaned_DryRunDoesNotDelete(t *testing.T) {
	server, pipeline, docsDir := setupServer(t)
	writeAndIndex(t, pipeline, docsDir, "a.txt", "alpha content")
	require.NoError(t, os.Remove(filepath.Join(docsDir, "a.txt")))

	_, env, err := server.handleCleanupOrphaned(context.Background(), nil, CleanupOrphanedInput{DryRun: true})
	require.NoError(t, err)
	require.True(t, env.OK)

	out := env.Data.(CleanupOrphanedOutput)
	assert.True(t, out.DryRun)
	assert.Equal(t, 0, out.Removed)
}

func TestHandleForceSync_RequiresConfirmation(t *testing.T) {
	server, _, _ := setupServer(t)

	_, env, err := server.handleForceSync(context.Background(), nil, ForceSyncInput{Confirm: false})
	require.NoError(t, err)
	assert.False(t, env.OK)
	assert.Contains(t, env.Message, "confirm=true")
}

func TestHandleForceSync_ReingestsFiles(t *testing.T) {
	server, pipeline, docsDir := setupServer(t)
	writeAndIndex(t, pipeline, docsDir, "a.txt", "alpha content")

	_, env, err := server.handleForceSync(context.Background(), nil, ForceSyncInput{Confirm: true})
	require.NoError(t, err)
	require.True(t, env.OK)

	out := env.Data.(ForceSyncOutput)
	assert.Equal(t, 1, out.Reingested)
	assert.Equal(t, 0, out.Failed)
}

func TestHandleIntegrityReport_RejectsUnknownFormat(t *testing.T) {
	server, _, _ := setupServer(t)

	_, env, err := server.handleIntegrityReport(context.Background(), nil, IntegrityReportInput{Format: "xml"})
	require.NoError(t, err)
	assert.False(t, env.OK)
}

func TestHandleIntegrityReport_SummaryReportsCleanState(t *testing.T) {
	server, pipeline, docsDir := setupServer(t)
	writeAndIndex(t, pipeline, docsDir, "a.txt", "alpha content")

	_, env, err := server.handleIntegrityReport(context.Background(), nil, IntegrityReportInput{})
	require.NoError(t, err)
	require.True(t, env.OK)

	out := env.Data.(IntegrityReportOutput)
	assert.Equal(t, "summary", out.Format)
	assert.Contains(t, out.Summary, "no drift detected")
}

func TestHandleVectorDBInfo_ReportsStats(t *testing.T) {
	server, pipeline, docsDir := setupServer(t)
	writeAndIndex(t, pipeline, docsDir, "a.txt", "alpha content")

	_, env, err := server.handleVectorDBInfo(context.Background(), nil, VectorDBInfoInput{})
	require.NoError(t, err)
	require.True(t, env.OK)

	out := env.Data.(VectorDBInfoOutput)
	assert.Equal(t, 1, out.TotalFiles)
	assert.Greater(t, out.TotalVectors, int64(0))
}

func TestHandleForceSync_UnconfirmedReturnsValidationError(t *testing.T) {
	_, env, err := (&Server{}).handleForceSync(context.Background(), nil, ForceSyncInput{Confirm: false})
	require.NoError(t, err)
	assert.Equal(t, "ValidationError", env.ErrorCode)
}
