package ports

import (
	"context"
	"io"

	"datalab/domain/dataset"
)

// TabularReader parses an uploaded file into a typed cell table.
// Implementations dispatch on the filename extension and enforce the
// configured size limit before reading.
type TabularReader interface {
	// Read parses the named payload. Size is the declared byte length,
	// checked against the upload limit up front.
	Read(ctx context.Context, filename string, r io.Reader, size int64) (*dataset.Table, error)

	// Supports reports whether the filename's extension is parseable
	Supports(filename string) bool
}
