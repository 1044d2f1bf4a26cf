package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"datalab/domain/dataset"
)

// readCSV parses delimited text. The delimiter is sniffed from the
// header line among comma, semicolon, and tab.
func (r *Reader) readCSV(src io.Reader) (*dataset.Table, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	raw, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode delimited text: %w", err)
	}

	return buildTable(raw), nil
}

// sniffDelimiter counts candidate separators on the header line and
// picks the most frequent, defaulting to comma.
func sniffDelimiter(data []byte) rune {
	line := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		line = data[:idx]
	}

	best := ','
	bestCount := bytes.Count(line, []byte{','})
	for _, candidate := range []byte{';', '\t'} {
		if count := bytes.Count(line, []byte{candidate}); count > bestCount {
			best = rune(candidate)
			bestCount = count
		}
	}
	return best
}
