package chunk

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// collapseWhitespace normalizes runs of whitespace to single spaces, used
// both to decide whether a candidate chunk is empty and to satisfy the
// round-trip-modulo-whitespace reconstruction invariant.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// slidingWindow splits text into chunks of at most size characters with
// overlap characters of repetition between adjacent chunks, breaking on a
// word boundary near the target cut point when one is available. Empty
// (whitespace-only) windows are dropped.
func slidingWindow(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Prefer to end on a word boundary within the last 10% of the
			// window so C_i doesn't split a word mid-token.
			boundary := lastWordBoundary(runes, start, end)
			if boundary > start {
				end = boundary
			}
		}

		piece := string(runes[start:end])
		if collapseWhitespace(piece) != "" {
			chunks = append(chunks, piece)
		}

		if end >= len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// lastWordBoundary looks backward from end (within the final 10% of the
// [start,end) window) for whitespace, returning its index so the split
// lands between words rather than inside one.
func lastWordBoundary(runes []rune, start, end int) int {
	searchFrom := start + (end-start)*9/10
	if searchFrom < start {
		searchFrom = start
	}
	for i := end - 1; i > searchFrom; i-- {
		if isSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
