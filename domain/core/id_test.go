package core

import (
	"errors"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDString tests ID string conversion
func TestIDString(t *testing.T) {
	id := ID("test-123")
	if id.String() != "test-123" {
		t.Errorf("Expected String() to return 'test-123', got '%s'", id.String())
	}
}

// TestParseDatasetID tests dataset ID parsing
func TestParseDatasetID(t *testing.T) {
	tests := []struct {
		input    string
		expected DatasetID
		hasError bool
	}{
		{"valid-id", DatasetID("valid-id"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, test := range tests {
		result, err := ParseDatasetID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

// TestHashStringsSeparation verifies the field separator keeps adjacent
// fields from colliding.
func TestHashStringsSeparation(t *testing.T) {
	a := HashStrings("ab", "c")
	b := HashStrings("a", "bc")
	if a.Equals(b) {
		t.Error("Expected distinct hashes for different field boundaries")
	}
	if !HashStrings("x", "y").Equals(HashStrings("x", "y")) {
		t.Error("Expected identical input to hash identically")
	}
}

// TestErrorHelpers tests the errors.Is-based classification helpers
func TestErrorHelpers(t *testing.T) {
	if !IsNotFoundError(ErrDatasetNotFound) {
		t.Error("ErrDatasetNotFound should classify as not-found")
	}
	if !IsInputFormatError(NewUnsupportedFileTypeError(".txt", []string{".csv"})) {
		t.Error("unsupported file type should classify as input format error")
	}
	if !IsInsufficientDataError(NewInsufficientDataError("need 2 variables")) {
		t.Error("wrapped insufficient-data error should classify correctly")
	}
	if IsNoDatasetError(errors.New("unrelated")) {
		t.Error("unrelated error should not classify as no-dataset")
	}
}
