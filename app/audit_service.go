package app

import (
	"context"
	"log"

	"datalab/domain/audit"
	"datalab/ports"
)

// AuditService exposes the transformation trail of the held dataset
type AuditService struct {
	trail ports.AuditRepository
}

// NewAuditService creates an audit service over the trail repository
func NewAuditService(trail ports.AuditRepository) *AuditService {
	return &AuditService{trail: trail}
}

// Trail returns the full trail
func (s *AuditService) Trail(ctx context.Context) (*audit.Trail, error) {
	return s.trail.Trail(ctx)
}

// Summary aggregates the trail into per-action counts
func (s *AuditService) Summary(ctx context.Context) (*audit.Summary, error) {
	trail, err := s.trail.Trail(ctx)
	if err != nil {
		return nil, err
	}
	summary := trail.Summarize()
	return &summary, nil
}

// Markdown renders the trail as the appendix document
func (s *AuditService) Markdown(ctx context.Context) (string, error) {
	trail, err := s.trail.Trail(ctx)
	if err != nil {
		return "", err
	}
	return trail.Markdown(), nil
}

// Undo removes the most recent trail entry. Returns nil when the trail
// is empty.
func (s *AuditService) Undo(ctx context.Context) (*audit.Entry, error) {
	entry, err := s.trail.UndoLast(ctx)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		log.Printf("[Audit] Undid entry %d (%s)", entry.Seq, entry.Action)
	}
	return entry, nil
}
