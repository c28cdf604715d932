package read

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readCSV renders each row as a pipe-joined line and records the row count,
// so the chunker sees readable text rather than raw comma-separated bytes.
func readCSV(data []byte) (*Result, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var b strings.Builder
	rows := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		b.WriteString(strings.Join(record, " | "))
		b.WriteString("\n")
		rows++
	}

	return &Result{
		Text:     strings.TrimSpace(b.String()),
		FileType: "csv",
		Metadata: map[string]string{"row_count": strconv.Itoa(rows)},
	}, nil
}
