package chunk

import (
	"fmt"
	"strings"
)

// ContextGenerator produces the short document/section summary prefixed
// onto a chunk's contextual text in contextual chunking mode. The engine
// treats this as a pluggable seam: a future LLM-backed generator can
// satisfy the same interface without touching the chunkers above.
type ContextGenerator interface {
	Generate(file *FileInput, c *Chunk, index, total int) string
}

// HeuristicContextGenerator builds a context prefix from the file path and
// any header_path metadata the chunker attached, with no model call.
type HeuristicContextGenerator struct{}

func NewHeuristicContextGenerator() *HeuristicContextGenerator {
	return &HeuristicContextGenerator{}
}

func (h *HeuristicContextGenerator) Generate(file *FileInput, c *Chunk, index, total int) string {
	var summary string
	if headerPath, ok := c.Metadata["header_path"]; ok && headerPath != "" {
		summary = fmt.Sprintf("From %s, section %s (part %d of %d):", file.Path, headerPath, index+1, total)
	} else {
		summary = fmt.Sprintf("From %s (part %d of %d):", file.Path, index+1, total)
	}
	return strings.TrimSpace(summary) + "\n\n" + c.Content
}
