package read

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// readXML extracts character data, skipping markup, in document order.
func readXML(data []byte) (*Result, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}
		if cd, ok := tok.(xml.CharData); ok {
			text := strings.TrimSpace(string(cd))
			if text != "" {
				b.WriteString(text)
				b.WriteString(" ")
			}
		}
	}

	return &Result{Text: strings.TrimSpace(b.String()), FileType: "xml", Metadata: map[string]string{}}, nil
}
