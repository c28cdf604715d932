package chunk

import "context"

// Dispatcher routes a file to the chunker registered for its file type,
// falling back to plain-text sliding-window chunking for anything else.
type Dispatcher struct {
	opts      Options
	byType    map[string]Chunker
	fallback  Chunker
	context   ContextGenerator // nil unless opts.Contextual
}

// NewDispatcher builds the chunker used by the ingestion pipeline.
func NewDispatcher(opts Options, ctxGen ContextGenerator) *Dispatcher {
	markdown := NewMarkdownChunker(opts)
	jsonChunker := NewJSONChunker(opts)
	text := NewTextChunker(opts)

	byType := make(map[string]Chunker)
	for _, ext := range markdown.SupportedFileTypes() {
		byType[ext] = markdown
	}
	for _, ext := range jsonChunker.SupportedFileTypes() {
		byType[ext] = jsonChunker
	}
	for _, ext := range text.SupportedFileTypes() {
		byType[ext] = text
	}

	d := &Dispatcher{opts: opts, byType: byType, fallback: text}
	if opts.Contextual {
		if ctxGen != nil {
			d.context = ctxGen
		} else {
			d.context = NewHeuristicContextGenerator()
		}
	}
	return d
}

func (d *Dispatcher) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	chunker, ok := d.byType[file.FileType]
	if !ok {
		chunker = d.fallback
	}

	chunks, err := chunker.Chunk(ctx, file)
	if err != nil {
		return nil, err
	}

	for i, c := range chunks {
		c.ChunkID = i
		if d.context != nil {
			c.ContextualText = d.context.Generate(file, c, i, len(chunks))
		} else {
			c.ContextualText = c.Content
		}
	}
	return chunks, nil
}

func (d *Dispatcher) SupportedFileTypes() []string {
	types := make([]string, 0, len(d.byType))
	for ext := range d.byType {
		types = append(types, ext)
	}
	return types
}
