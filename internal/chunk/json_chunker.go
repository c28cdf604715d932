package chunk

import (
	"context"
	"encoding/json"
	"fmt"
)

// JSONChunker treats each top-level array element, or each top-level
// object entry, as a candidate chunk; oversized candidates fall back to a
// sliding window over their serialized form.
type JSONChunker struct {
	opts Options
}

func NewJSONChunker(opts Options) *JSONChunker {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkOverlap <= 0 {
		opts.ChunkOverlap = DefaultChunkOverlap
	}
	return &JSONChunker{opts: opts}
}

func (c *JSONChunker) SupportedFileTypes() []string { return []string{"json"} }

func (c *JSONChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	if collapseWhitespace(file.Content) == "" {
		return nil, nil
	}

	var raw any
	if err := json.Unmarshal([]byte(file.Content), &raw); err != nil {
		// Not valid JSON despite the extension; treat as plain text so the
		// file still gets indexed rather than dropped.
		return NewTextChunker(c.opts).Chunk(ctx, file)
	}

	var candidates []struct {
		content string
		path    string
	}

	switch v := raw.(type) {
	case []any:
		for i, elem := range v {
			text, err := marshalCompact(elem)
			if err != nil {
				continue
			}
			candidates = append(candidates, struct {
				content string
				path    string
			}{text, fmt.Sprintf("[%d]", i)})
		}
	case map[string]any:
		for key, val := range v {
			text, err := marshalCompact(val)
			if err != nil {
				continue
			}
			candidates = append(candidates, struct {
				content string
				path    string
			}{text, key})
		}
	default:
		text, _ := marshalCompact(v)
		candidates = append(candidates, struct {
			content string
			path    string
		}{text, ""})
	}

	var chunks []*Chunk
	for _, cand := range candidates {
		if collapseWhitespace(cand.content) == "" {
			continue
		}
		if len([]rune(cand.content)) <= c.opts.ChunkSize {
			chunks = append(chunks, &Chunk{
				Content:  cand.content,
				Metadata: map[string]string{"json_path": cand.path},
			})
			continue
		}
		for _, window := range slidingWindow(cand.content, c.opts.ChunkSize, c.opts.ChunkOverlap) {
			chunks = append(chunks, &Chunk{
				Content:  window,
				Metadata: map[string]string{"json_path": cand.path},
			})
		}
	}

	for i, ch := range chunks {
		ch.ChunkID = i
	}
	return chunks, nil
}

func marshalCompact(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
