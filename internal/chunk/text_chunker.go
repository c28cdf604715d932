package chunk

import "context"

// TextChunker is the fallback chunker for plain text and any reader output
// without a more specific structure: a character-budgeted sliding window.
type TextChunker struct {
	opts Options
}

func NewTextChunker(opts Options) *TextChunker {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkOverlap <= 0 {
		opts.ChunkOverlap = DefaultChunkOverlap
	}
	return &TextChunker{opts: opts}
}

func (c *TextChunker) SupportedFileTypes() []string {
	return []string{"txt", "html", "xml", "csv", "pdf", "docx", "doc", "rtf"}
}

func (c *TextChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	windows := slidingWindow(file.Content, c.opts.ChunkSize, c.opts.ChunkOverlap)
	chunks := make([]*Chunk, 0, len(windows))
	for i, w := range windows {
		chunks = append(chunks, &Chunk{ChunkID: i, Content: w, Metadata: map[string]string{}})
	}
	return chunks, nil
}
