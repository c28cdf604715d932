package read

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// readDOCX extracts text from a .docx package's document.xml. Legacy
// binary .doc files aren't a zip/XML package at all; nguyenthenguyen/docx
// can't open them, so a .doc falls back to best-effort printable-byte
// extraction rather than failing the whole file.
func readDOCX(path string, data []byte) (*Result, error) {
	if strings.HasSuffix(strings.ToLower(path), ".doc") {
		return readLegacyDoc(data)
	}

	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	raw := r.Editable().GetContent()
	xmlResult, err := readXML([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("parse docx content: %w", err)
	}

	return &Result{Text: xmlResult.Text, FileType: "docx", Metadata: map[string]string{}}, nil
}

// readLegacyDoc strips non-printable bytes from a binary .doc file, which
// is the best text extraction possible without an OLE2/CFB parser.
func readLegacyDoc(data []byte) (*Result, error) {
	var b strings.Builder
	for _, r := range string(data) {
		if r == '\n' || r == '\t' || (r >= 0x20 && r < 0x7f) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return &Result{Text: strings.TrimSpace(b.String()), FileType: "doc", Metadata: map[string]string{}}, nil
}
