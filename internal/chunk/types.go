// Package chunk splits file content into ordered, bounded-size fragments
// ready for embedding: character-budgeted sliding windows for plain text,
// header-aware splitting for markdown, and element/entry splitting for
// JSON.
package chunk

import "context"

// Options configures a Chunker. ChunkSize and ChunkOverlap are measured in
// characters, not tokens or bytes.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	// Contextual, when true, additionally produces a ContextualText per
	// chunk (the chunk prefixed with a short document/section summary) for
	// the embedder to embed instead of the raw content.
	Contextual bool
}

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultOptions returns the engine's default chunk sizing.
func DefaultOptions() Options {
	return Options{ChunkSize: DefaultChunkSize, ChunkOverlap: DefaultChunkOverlap}
}

// Chunk is one ordered fragment of a file, prior to embedding.
type Chunk struct {
	ChunkID        int
	Content        string
	ContextualText string // equals Content unless Contextual mode produced a prefix
	Metadata       map[string]string
}

// FileInput is what the reader hands to the chunker.
type FileInput struct {
	Path     string
	Content  string
	FileType string // lowercased extension, without the dot
}

// Chunker splits file content into ordered chunks.
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error)
	SupportedFileTypes() []string
}
