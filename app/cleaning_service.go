package app

import (
	"context"
	"fmt"
	"log"

	"datalab/domain/audit"
	"datalab/domain/core"
	"datalab/domain/dataset"
	"datalab/internal/cleaning"
	"datalab/internal/errors"
	"datalab/ports"
)

// CleaningService applies transformations to the held dataset. Each
// successful operation updates the slot, re-snapshots the cleaned
// version, and logs a trail entry; when a durable sink is configured the
// entry is also recorded there. Sink failures are logged, never fatal.
type CleaningService struct {
	store       ports.DatasetRepository
	trail       ports.AuditRepository
	sink        ports.AuditSink
	transformer *cleaning.Transformer
}

// CleanRequest names the operation and its parameters. Parameter keys
// follow the transformation they configure: column, method, fill_value,
// subset, keep, lower_percentile, upper_percentile, mapping, columns,
// constant, new_column.
type CleanRequest struct {
	Operation string         `json:"operation"`
	Params    map[string]any `json:"params"`
}

// CleanResult reports one applied transformation
type CleanResult struct {
	Dataset   *dataset.Dataset `json:"dataset"`
	Operation audit.Action     `json:"operation"`
	Summary   string           `json:"summary"`
	Detail    map[string]any   `json:"detail"`
	Version   *dataset.Version `json:"version"`
	Entry     audit.Entry      `json:"audit_entry"`
}

// NewCleaningService creates a cleaning service. sink may be nil when no
// durable audit store is configured.
func NewCleaningService(store ports.DatasetRepository, trail ports.AuditRepository, sink ports.AuditSink) *CleaningService {
	return &CleaningService{
		store:       store,
		trail:       trail,
		sink:        sink,
		transformer: cleaning.NewTransformer(),
	}
}

// Apply runs one cleaning operation against the held dataset
func (s *CleaningService) Apply(ctx context.Context, req CleanRequest) (*CleanResult, error) {
	ds, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.dispatch(ds, req)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateTable(ctx, result.Dataset.Table, result.Dataset.Types)
	if err != nil {
		return nil, errors.Wrap(err, "update dataset")
	}
	version, err := s.store.SaveVersion(ctx, core.VersionCleaned, result.Summary)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot cleaned version")
	}
	entry, err := s.trail.LogAction(ctx, result.Operation, result.Detail)
	if err != nil {
		return nil, errors.Wrap(err, "log audit entry")
	}
	s.record(ctx, updated.ID, entry)

	return &CleanResult{
		Dataset:   updated,
		Operation: result.Operation,
		Summary:   result.Summary,
		Detail:    result.Detail,
		Version:   version,
		Entry:     entry,
	}, nil
}

// RestoreVersion rolls the slot back to a saved snapshot and logs the
// rollback on the trail.
func (s *CleaningService) RestoreVersion(ctx context.Context, tag string) (*dataset.Dataset, error) {
	restored, err := s.store.RestoreVersion(ctx, core.VersionTag(tag))
	if err != nil {
		return nil, err
	}
	entry, err := s.trail.LogAction(ctx, audit.ActionRestoreVersion, map[string]any{
		"version": tag,
		"rows":    restored.RowCount,
		"columns": restored.ColumnCount,
	})
	if err != nil {
		return nil, errors.Wrap(err, "log audit entry")
	}
	s.record(ctx, restored.ID, entry)
	log.Printf("[Cleaning] Restored version %s of dataset %s", tag, restored.ID)
	return restored, nil
}

// record forwards one entry to the durable sink when one is configured
func (s *CleaningService) record(ctx context.Context, id core.DatasetID, entry audit.Entry) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Record(ctx, id, entry); err != nil {
		log.Printf("[Cleaning] Audit sink failed for entry %d: %v", entry.Seq, err)
	}
}

// dispatch decodes the request parameters and runs the named operation
func (s *CleaningService) dispatch(ds *dataset.Dataset, req CleanRequest) (*cleaning.Result, error) {
	p := req.Params
	switch audit.Action(req.Operation) {
	case audit.ActionRemoveDuplicates:
		return s.transformer.RemoveDuplicates(ds, stringsParam(p, "subset"), stringParam(p, "keep", "first") == "last")
	case audit.ActionHandleMissing:
		return s.transformer.HandleMissing(ds, stringParam(p, "column", ""), stringParam(p, "method", "drop"), valueParam(p, "fill_value"))
	case audit.ActionWinsorize:
		return s.transformer.WinsorizeOutliers(ds, stringParam(p, "column", ""), floatParam(p, "lower_percentile"), floatParam(p, "upper_percentile"))
	case audit.ActionRecode:
		return s.transformer.RecodeValues(ds, stringParam(p, "column", ""), mappingParam(p, "mapping"), stringParam(p, "new_column", ""))
	case audit.ActionStandardize:
		return s.transformer.Standardize(ds, stringsParam(p, "columns"), stringParam(p, "method", "zscore"))
	case audit.ActionLogTransform:
		return s.transformer.LogTransform(ds, stringParam(p, "column", ""), floatParam(p, "constant"), stringParam(p, "new_column", ""))
	case audit.ActionReverseCode:
		return s.transformer.ReverseCode(ds, stringParam(p, "column", ""), stringParam(p, "new_column", ""))
	case audit.ActionCreateCategories:
		return s.transformer.CreateCategories(ds, stringParam(p, "column", ""), stringParam(p, "new_column", ""))
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown cleaning operation %q", req.Operation))
	}
}

func stringParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// floatParam returns 0 when absent; operations with defaults treat 0 as
// unset.
func floatParam(params map[string]any, key string) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func stringsParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func mappingParam(params map[string]any, key string) map[string]string {
	switch v := params[key].(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			out[k] = fmt.Sprint(item)
		}
		return out
	}
	return nil
}

// valueParam coerces a JSON scalar parameter into a cell value
func valueParam(params map[string]any, key string) dataset.Value {
	switch v := params[key].(type) {
	case float64:
		return dataset.Number(v)
	case int:
		return dataset.Number(float64(v))
	case bool:
		return dataset.Bool(v)
	case string:
		return dataset.Coerce(v)
	}
	return dataset.Missing
}
