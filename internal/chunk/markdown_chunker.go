package chunk

import (
	"context"
	"regexp"
	"strings"
)

// Matches headers: # Title, ## Title, etc.
var headerPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// MarkdownChunker splits before each header ("split-before-section"):
// sections under the character budget remain whole chunks; oversized
// sections fall back to a sliding window.
type MarkdownChunker struct {
	opts Options
}

func NewMarkdownChunker(opts Options) *MarkdownChunker {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkOverlap <= 0 {
		opts.ChunkOverlap = DefaultChunkOverlap
	}
	return &MarkdownChunker{opts: opts}
}

func (c *MarkdownChunker) SupportedFileTypes() []string { return []string{"md", "markdown", "mdx"} }

func (c *MarkdownChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	if collapseWhitespace(file.Content) == "" {
		return nil, nil
	}

	sections := splitMarkdownSections(file.Content)

	var pieces []struct {
		content    string
		headerPath string
	}
	for _, sec := range sections {
		trimmed := strings.TrimSpace(sec.content)
		if collapseWhitespace(trimmed) == "" {
			continue
		}
		if len([]rune(trimmed)) <= c.opts.ChunkSize {
			pieces = append(pieces, struct {
				content    string
				headerPath string
			}{trimmed, sec.headerPath})
			continue
		}
		for _, window := range slidingWindow(trimmed, c.opts.ChunkSize, c.opts.ChunkOverlap) {
			pieces = append(pieces, struct {
				content    string
				headerPath string
			}{window, sec.headerPath})
		}
	}

	chunks := make([]*Chunk, 0, len(pieces))
	for i, p := range pieces {
		chunks = append(chunks, &Chunk{
			ChunkID: i,
			Content: p.content,
			Metadata: map[string]string{
				"header_path": p.headerPath,
			},
		})
	}
	return chunks, nil
}

type markdownSection struct {
	headerLevel int
	headerPath  string
	content     string
}

// splitMarkdownSections groups content under each header (and any leading
// content before the first header) into sections, tracking header
// hierarchy for a breadcrumb path ("Intro > Setup").
func splitMarkdownSections(content string) []*markdownSection {
	lines := strings.Split(content, "\n")
	headerStack := make([]string, 6)

	var sections []*markdownSection
	var current *markdownSection
	var builder strings.Builder

	flush := func() {
		if current != nil {
			current.content = builder.String()
			sections = append(sections, current)
			builder.Reset()
		}
	}

	for _, line := range lines {
		if match := headerPattern.FindStringSubmatch(line); match != nil {
			flush()

			level := len(match[1])
			title := strings.TrimSpace(match[2])
			headerStack[level-1] = title
			for i := level; i < 6; i++ {
				headerStack[i] = ""
			}

			var parts []string
			for i := 0; i < level; i++ {
				if headerStack[i] != "" {
					parts = append(parts, headerStack[i])
				}
			}

			current = &markdownSection{headerLevel: level, headerPath: strings.Join(parts, " > ")}
		}
		builder.WriteString(line)
		builder.WriteString("\n")
	}
	flush()

	if len(sections) == 0 && builder.Len() > 0 {
		sections = append(sections, &markdownSection{content: builder.String()})
	}

	return sections
}
