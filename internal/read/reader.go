// Package read extracts plain text from a file's raw bytes, dispatching on
// file extension. Each extractor is isolated: a failure to parse one file
// (a malformed PDF, an XML file with a bad entity) is reported back as an
// error to the caller rather than aborting a batch.
package read

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SupportedExtensions lists every extension the reader can dispatch,
// normalized without the leading dot.
var SupportedExtensions = []string{
	"txt", "md", "markdown", "mdx", "json", "html", "htm", "xml", "csv",
	"pdf", "docx", "doc", "rtf",
}

// Result is the output of extracting a file's text content, plus whatever
// structural metadata the extractor could pull out along the way (page
// count for PDF, row count for CSV).
type Result struct {
	Text     string
	FileType string
	Metadata map[string]string
}

// Extension returns the normalized (lowercase, no dot) extension for path,
// or "" if it has none.
func Extension(path string) string {
	ext := filepath.Ext(path)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsSupported reports whether ext is one of SupportedExtensions.
func IsSupported(ext string) bool {
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Read extracts text from raw file content, dispatching on the file's
// extension. The caller supplies path only to determine file type and for
// error context; content is read from the data byte slice already loaded
// into memory.
func Read(path string, data []byte) (*Result, error) {
	ext := Extension(path)

	var res *Result
	var err error

	switch ext {
	case "md", "markdown", "mdx":
		res, err = readPlainText(data, ext)
	case "json":
		res, err = readPlainText(data, ext)
	case "txt", "rtf":
		res, err = readPlainText(data, "txt")
	case "html", "htm":
		res, err = readHTML(data)
	case "xml":
		res, err = readXML(data)
	case "csv":
		res, err = readCSV(data)
	case "pdf":
		res, err = readPDF(data)
	case "docx", "doc":
		res, err = readDOCX(path, data)
	default:
		return nil, fmt.Errorf("unsupported file type %q for %s", ext, path)
	}

	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return res, nil
}

func readPlainText(data []byte, fileType string) (*Result, error) {
	return &Result{Text: string(data), FileType: fileType, Metadata: map[string]string{}}, nil
}
