// Package model defines the core data types shared across the metadata
// store, vector store, ingestion pipeline, search service, and sync
// manager: file records, chunk records, embedding generation records, and
// vector records.
package model

import "time"

// File is a durable record of one ingested file, owned exclusively by the
// metadata store.
type File struct {
	FileID      string    // stable identifier derived from the path relative to documents_dir
	Path        string    // path relative to documents_dir
	Name        string    // base name
	Size        int64     // bytes, at IndexedAt
	ContentHash string    // sha256 of file bytes
	MTime       time.Time // filesystem modification time
	FileType    string    // lowercased extension, without the dot
	IndexedAt   time.Time
}

// Chunk is one retrievable fragment of a file, owned exclusively by the
// metadata store. ChunkID is 0-based and contiguous within a file.
type Chunk struct {
	FileID      string
	ChunkID     int
	Content     string
	EmbeddingID string // set once a vector record exists for this chunk
}

// EmbeddingGeneration names a (model, config) pair. Vectors produced under
// one generation are comparable to each other; across generations they are
// not. Exactly one generation is active at a time.
type EmbeddingGeneration struct {
	GenerationID string
	ModelName    string
	Service      string // "transformers" | "ollama"
	Dimensions   int
	ConfigHash   string
	Active       bool
	ChunkCount   int64
	VectorCount  int64
	CreatedAt    time.Time
	LastUsedAt   time.Time
}

// VectorRecord is one entry in the vector store: a unit-normalized
// embedding plus the text it was derived from and a metadata bag. The
// vector store owns this record exclusively; the metadata store has no
// pointer into it.
type VectorRecord struct {
	DocID          string // == File.FileID
	ChunkID        int
	Vector         []float32 // L2-normalized, length == active generation's Dimensions
	Text           string    // chunk content
	ContextualText string    // text the embedding was actually computed from; equals Text unless contextual chunking is used
	ModelName      string
	Metadata       map[string]string // path, file_type, size, hash, mtime_unix, plus chunker keys; an optional comma-joined "tags" key feeds the tag filter
}

// Filter is the predicate accepted by semantic_search and keyword_search.
// Categories compose with logical AND; Tags composes internally with
// logical OR.
type Filter struct {
	FileTypes   []string // e.g. "md", "pdf"
	DocIDs      []string
	Tags        []string
	ModifiedFrom time.Time
	ModifiedTo   time.Time
}

// IsZero reports whether the filter constrains nothing.
func (f Filter) IsZero() bool {
	return len(f.FileTypes) == 0 && len(f.DocIDs) == 0 && len(f.Tags) == 0 &&
		f.ModifiedFrom.IsZero() && f.ModifiedTo.IsZero()
}

// VectorHit is one ranked result from semantic_search, before enrichment.
type VectorHit struct {
	DocID   string
	ChunkID int
	Score   float64 // cosine similarity in [0,1]
}

// KeywordHit is one ranked result from keyword_search, before enrichment.
type KeywordHit struct {
	DocID        string
	ChunkID      int
	Score        float64
	MatchedTerms []string
}

// VectorStoreStats summarizes the vector store for get_vectordb_info.
type VectorStoreStats struct {
	TotalVectors int64
	Dimensions   int
	LastUpdated  time.Time
}
