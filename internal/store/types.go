// Package store provides the two persistence backends of the engine: the
// metadata store (SQLite tables for files, chunks, embedding generations)
// and the vector store (HNSW ANN index + SQLite-backed record table +
// FTS5/bleve keyword index).
package store

import (
	"context"
	"fmt"

	"github.com/localrag/ragengine/internal/model"
)

// State keys for the metadata store's key-value table.
const (
	StateKeyActiveGeneration = "active_generation_id"
	StateKeyLastSyncTime     = "last_sync_time"
)

// CurrentSchemaVersion is the current metadata database schema version.
const CurrentSchemaVersion = 1

// MetadataStore persists file, chunk, and embedding-generation records in
// SQLite. All mutating operations are atomic with respect to readers.
type MetadataStore interface {
	// File operations.
	UpsertFile(ctx context.Context, f *model.File) error
	GetFileByPath(ctx context.Context, path string) (*model.File, error)
	GetFileByID(ctx context.Context, fileID string) (*model.File, error)
	ListFiles(ctx context.Context) ([]*model.File, error) // ordered by indexed_at desc (IndexedAt)
	DeleteFileCascadingChunks(ctx context.Context, fileID string) error

	// Chunk operations. ReplaceChunksForFile deletes all prior chunks for
	// fileID and inserts the new set atomically.
	ReplaceChunksForFile(ctx context.Context, fileID string, chunks []*model.Chunk) error
	GetChunksByFile(ctx context.Context, fileID string) ([]*model.Chunk, error)

	// Embedding generation operations. Exactly one generation is active.
	UpsertGeneration(ctx context.Context, g *model.EmbeddingGeneration) error
	DeactivateAllGenerations(ctx context.Context) error
	GetActiveGeneration(ctx context.Context) (*model.EmbeddingGeneration, error)
	ListGenerations(ctx context.Context) ([]*model.EmbeddingGeneration, error)

	// State is a small key-value table for runtime bookkeeping (last sync
	// time, etc).
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	Close() error
}

// BM25Result represents a single keyword search result.
type BM25Result struct {
	DocID        string // composite "fileID#chunkID"
	Score        float64
	MatchedTerms []string
}

// IndexStats provides statistics about a keyword index.
type IndexStats struct {
	DocumentCount int
}

// KeywordIndex provides full-text search over vector-record text.
type KeywordIndex interface {
	Index(ctx context.Context, id string, text string) error
	Delete(ctx context.Context, ids []string) error
	Search(ctx context.Context, query string, limit int, candidateIDs map[string]struct{}) ([]*BM25Result, error)
	AllIDs() ([]string, error)
	Stats() *IndexStats
	Save(path string) error
	Load(path string) error
	Close() error
}

// VectorResult represents a single ANN search result.
type VectorResult struct {
	ID       string  // composite "fileID#chunkID"
	Distance float32 // lower is more similar
	Score    float32 // normalized similarity in [0,1]
}

// VectorStoreConfig configures the ANN backend.
type VectorStoreConfig struct {
	Dimensions     int
	Metric         string // "cos" | "l2"
	M              int
	EfConstruction int
	EfSearch       int
}

// DefaultVectorStoreConfig returns sensible defaults.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:     dimensions,
		Metric:         "cos",
		M:              16,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// ANNIndex is the narrow interface the HNSW backend satisfies. It is
// composed into VectorStore along with the record table and keyword index.
type ANNIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Delete(ctx context.Context, ids []string) error
	AllIDs() []string
	Contains(id string) bool
	Count() int
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch indicates a vector's dimensionality does not match
// the active generation's. VectorStore.Add reports it as an IntegrityError
// of kind dimension_mismatch that wraps this value.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// VectorKey builds the composite ID the ANN index and keyword index use to
// key a chunk's vector record.
func VectorKey(docID string, chunkID int) string {
	return fmt.Sprintf("%s#%d", docID, chunkID)
}
