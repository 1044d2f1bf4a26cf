package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	DatasetID  ID
	AnalysisID ID
	// VersionTag names a snapshot in a dataset's cleaning history (v1_raw, v2_cleaned, ...)
	VersionTag string
)

// Well-known tags in the cleaning lifecycle. Further snapshots may use
// any tag; these two are the ones the workflow saves automatically.
const (
	VersionRaw     VersionTag = "v1_raw"
	VersionCleaned VersionTag = "v2_cleaned"
)

// String conversions for domain IDs
func (id DatasetID) String() string  { return ID(id).String() }
func (id AnalysisID) String() string { return ID(id).String() }
func (v VersionTag) String() string  { return string(v) }

// ParseDatasetID parses a string into DatasetID
func ParseDatasetID(s string) (DatasetID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("dataset ID cannot be empty")
	}
	return DatasetID(s), nil
}

// ParseAnalysisID parses a string into AnalysisID
func ParseAnalysisID(s string) (AnalysisID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("analysis ID cannot be empty")
	}
	return AnalysisID(s), nil
}
