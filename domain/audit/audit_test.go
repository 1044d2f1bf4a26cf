package audit

import (
	"encoding/json"
	"strings"
	"testing"

	"datalab/domain/core"
)

func sampleTrail(actions ...Action) *Trail {
	t := &Trail{DatasetID: "ds-1", CreatedAt: core.Now()}
	for i, a := range actions {
		t.Entries = append(t.Entries, Entry{
			Seq:       i + 1,
			Timestamp: core.Now(),
			Action:    a,
			Actor:     DefaultActor,
		})
	}
	t.Total = len(t.Entries)
	return t
}

func TestSummarizeCountsActions(t *testing.T) {
	trail := sampleTrail(ActionRemoveDuplicates, ActionHandleMissing, ActionHandleMissing)

	s := trail.Summarize()
	if s.DatasetID != "ds-1" {
		t.Errorf("dataset id = %q, want ds-1", s.DatasetID)
	}
	if s.Total != 3 {
		t.Errorf("total = %d, want 3", s.Total)
	}
	if s.ByAction[ActionHandleMissing] != 2 || s.ByAction[ActionRemoveDuplicates] != 1 {
		t.Errorf("counts = %v", s.ByAction)
	}
	if s.First == "" || s.Last == "" {
		t.Errorf("first/last timestamps missing: %q / %q", s.First, s.Last)
	}
}

func TestSummarizeEmptyTrail(t *testing.T) {
	s := sampleTrail().Summarize()
	if s.Total != 0 || s.First != "" || s.Last != "" {
		t.Errorf("empty summary = %+v", s)
	}
}

func TestMarkdownAppendix(t *testing.T) {
	trail := sampleTrail(ActionRemoveDuplicates, ActionStandardize)
	trail.Entries[0].Details = map[string]any{"rows_removed": 2, "keep": "first"}
	trail.Entries[1].Details = map[string]any{"method": "zscore"}

	md := trail.Markdown()
	for _, want := range []string{
		"# Data Transformation Audit Trail",
		"**Dataset ID:** ds-1",
		"**Total Transformations:** 2",
		"## Transformation 1: remove_duplicates",
		"## Transformation 2: standardize",
		"**Performed by:** system",
		"- keep: first",
		"- rows_removed: 2",
		"- method: zscore",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Index(md, "- keep: first") > strings.Index(md, "- rows_removed: 2") {
		t.Error("detail keys are not sorted")
	}
}

func TestTrailJSONRoundTrip(t *testing.T) {
	trail := sampleTrail(ActionWinsorize)
	trail.Entries[0].Details = map[string]any{"column": "score"}

	raw, err := json.Marshal(trail)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"entry_number":1`) {
		t.Errorf("entry_number key missing from %s", raw)
	}
	if !strings.Contains(string(raw), `"total_entries":1`) {
		t.Errorf("total_entries key missing from %s", raw)
	}

	var back Trail
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.DatasetID != "ds-1" || back.Total != 1 || len(back.Entries) != 1 {
		t.Errorf("round trip = %+v", back)
	}
	if back.Entries[0].Action != ActionWinsorize {
		t.Errorf("action = %q", back.Entries[0].Action)
	}
}
