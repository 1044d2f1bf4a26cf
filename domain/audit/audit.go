// Package audit models the transformation trail kept for the held
// dataset. Every cleaning operation appends one Entry; the trail renders
// as a methods-appendix document for write-ups.
package audit

import (
	"fmt"
	"sort"
	"strings"

	"datalab/domain/core"
)

// DefaultActor is recorded on entries logged without an explicit user
const DefaultActor = "system"

// Action identifies one kind of recorded transformation
type Action string

const (
	ActionRemoveDuplicates Action = "remove_duplicates"
	ActionHandleMissing    Action = "handle_missing"
	ActionWinsorize        Action = "winsorize_outliers"
	ActionRecode           Action = "recode_values"
	ActionStandardize      Action = "standardize"
	ActionLogTransform     Action = "log_transform"
	ActionReverseCode      Action = "reverse_code"
	ActionCreateCategories Action = "create_categories"
	ActionRestoreVersion   Action = "restore_version"
)

// Entry records one transformation applied to the held dataset. Seq is
// assigned by the store, starting at 1.
type Entry struct {
	Seq       int            `json:"entry_number"`
	Timestamp core.Timestamp `json:"timestamp"`
	Action    Action         `json:"action"`
	Details   map[string]any `json:"details"`
	Actor     string         `json:"user"`
}

// Trail is the ordered transformation history for one dataset
type Trail struct {
	DatasetID core.DatasetID `json:"dataset_id"`
	CreatedAt core.Timestamp `json:"created_at"`
	Total     int            `json:"total_entries"`
	Entries   []Entry        `json:"entries"`
}

// Summary aggregates a trail into counts per action
type Summary struct {
	DatasetID core.DatasetID `json:"dataset_id"`
	Total     int            `json:"total_transformations"`
	ByAction  map[Action]int `json:"transformation_counts"`
	First     string         `json:"first_transformation,omitempty"`
	Last      string         `json:"last_transformation,omitempty"`
}

// Summarize rolls the trail up for display
func (t *Trail) Summarize() Summary {
	s := Summary{
		DatasetID: t.DatasetID,
		Total:     len(t.Entries),
		ByAction:  make(map[Action]int, len(t.Entries)),
	}
	for _, e := range t.Entries {
		s.ByAction[e.Action]++
	}
	if len(t.Entries) > 0 {
		s.First = t.Entries[0].Timestamp.String()
		s.Last = t.Entries[len(t.Entries)-1].Timestamp.String()
	}
	return s
}

// Markdown renders the trail as the appendix document
func (t *Trail) Markdown() string {
	var b strings.Builder
	b.WriteString("# Data Transformation Audit Trail\n\n")
	fmt.Fprintf(&b, "**Dataset ID:** %s\n", t.DatasetID)
	fmt.Fprintf(&b, "**Created:** %s\n", t.CreatedAt.Time().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Total Transformations:** %d\n\n---\n\n", len(t.Entries))

	for _, e := range t.Entries {
		fmt.Fprintf(&b, "## Transformation %d: %s\n", e.Seq, e.Action)
		fmt.Fprintf(&b, "**Timestamp:** %s\n", e.Timestamp)
		fmt.Fprintf(&b, "**Performed by:** %s\n\n", e.Actor)
		b.WriteString("**Details:**\n")
		for _, k := range sortedKeys(e.Details) {
			fmt.Fprintf(&b, "- %s: %v\n", k, e.Details[k])
		}
		b.WriteString("\n---\n\n")
	}
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
