package read

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/ledongthuc/pdf"
)

// readPDF extracts the document's plain text stream and records the page
// count. Password-protected or malformed PDFs surface as an error rather
// than panicking the caller's batch.
func readPDF(data []byte) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	pageCount := reader.NumPage()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	text, err := io.ReadAll(textReader)
	if err != nil {
		return nil, fmt.Errorf("read pdf text stream: %w", err)
	}

	return &Result{
		Text:     string(text),
		FileType: "pdf",
		Metadata: map[string]string{"page_count": strconv.Itoa(pageCount)},
	}, nil
}
