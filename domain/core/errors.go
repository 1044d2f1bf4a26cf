package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrDatasetNotFound = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrVersionNotFound = fmt.Errorf("%w: dataset version", ErrNotFound)
	ErrColumnNotFound  = fmt.Errorf("%w: column", ErrNotFound)

	// Precondition errors
	ErrNoDataset = errors.New("no dataset loaded")

	// Input format errors
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyFile           = errors.New("file is empty")
	ErrFileTooLarge        = errors.New("file exceeds size limit")
	ErrMalformedFile       = errors.New("file could not be parsed")
	ErrLegacyExcelFormat   = errors.New("legacy .xls workbooks are not readable; re-save as .xlsx")
	ErrEmptySheet          = errors.New("worksheet contains no data rows")

	// Analysis errors
	ErrInsufficientData     = errors.New("insufficient data for analysis")
	ErrUnsupportedAnalysis  = errors.New("unsupported analysis type")
	ErrUnsupportedOperation = errors.New("unsupported cleaning operation")
	ErrNotContinuous        = errors.New("variable is not continuous")
	ErrNotCategorical       = errors.New("variable is not categorical")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewColumnNotFoundError(name string) error {
	return fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

func NewUnsupportedFileTypeError(ext string, supported []string) error {
	return fmt.Errorf("%w: %q (supported: %v)", ErrUnsupportedFileType, ext, supported)
}

func NewFileTooLargeError(size, limit int64) error {
	return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, limit)
}

func NewParseError(filename string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrMalformedFile, filename, err)
}

func NewInsufficientDataError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInsufficientData, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsNoDatasetError(err error) bool {
	return errors.Is(err, ErrNoDataset)
}

func IsInputFormatError(err error) bool {
	return errors.Is(err, ErrUnsupportedFileType) ||
		errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrMalformedFile) ||
		errors.Is(err, ErrLegacyExcelFormat)
}

func IsInsufficientDataError(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}
