package policy

import (
	"context"
	"log/slog"
	"sync"

	"github.com/quorumsec/trustd/internal/trust/domain"
)

// AuditSink receives one record per authorization decision. Implementations
// must not block the decision path; failures are logged, never surfaced to
// the caller being authorized.
type AuditSink interface {
	Record(ctx context.Context, record domain.DecisionRecord)
}

// SlogAuditSink emits decision records as structured log entries.
type SlogAuditSink struct {
	log *slog.Logger
}

func NewSlogAuditSink(log *slog.Logger) *SlogAuditSink {
	return &SlogAuditSink{log: log}
}

func (s *SlogAuditSink) Record(ctx context.Context, record domain.DecisionRecord) {
	s.log.LogAttrs(ctx, slog.LevelInfo, "authorization decision",
		slog.String("decision_id", record.ID),
		slog.String("user_id", record.UserID),
		slog.String("action", string(record.Action)),
		slog.String("resource_type", record.Resource.Type),
		slog.String("resource_id", record.Resource.ID),
		slog.Bool("allow", record.Allow),
		slog.String("reason", record.Reason),
		slog.String("source", string(record.Source)),
		slog.Time("at", record.At),
	)
}

// MemoryAuditSink retains records in memory, oldest first. Used in tests and
// for the recent-decisions view.
type MemoryAuditSink struct {
	mu      sync.Mutex
	records []domain.DecisionRecord
	limit   int
}

// NewMemoryAuditSink keeps at most limit records, discarding the oldest.
// A non-positive limit keeps everything.
func NewMemoryAuditSink(limit int) *MemoryAuditSink {
	return &MemoryAuditSink{limit: limit}
}

func (s *MemoryAuditSink) Record(_ context.Context, record domain.DecisionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
	if s.limit > 0 && len(s.records) > s.limit {
		s.records = s.records[len(s.records)-s.limit:]
	}
}

// Records returns a copy of the retained records.
func (s *MemoryAuditSink) Records() []domain.DecisionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.DecisionRecord, len(s.records))
	copy(out, s.records)
	return out
}
