// Package report answers read-only questions about letters and their audit
// trail: status summaries, listings, trail verification and export.
package report

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/heartmarshall/lettertrack/internal/domain"
	"github.com/heartmarshall/lettertrack/internal/service/letter"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type letterReader interface {
	Get(ctx context.Context, id int64) (*domain.Letter, error)
	List(ctx context.Context, filter domain.LetterFilter) iter.Seq2[*domain.Letter, error]
}

type summaryRepo interface {
	StatusSummary(ctx context.Context) ([]domain.StatusCount, error)
}

type auditReader interface {
	Query(ctx context.Context, filter domain.AuditFilter) iter.Seq2[domain.AuditEntry, error]
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service provides reporting over the letter store and audit log.
type Service struct {
	log     *slog.Logger
	letters letterReader
	summary summaryRepo
	audit   auditReader
}

// NewService creates a new report Service.
func NewService(logger *slog.Logger, letters letterReader, summary summaryRepo, audit auditReader) *Service {
	return &Service{
		log:     logger.With("service", "report"),
		letters: letters,
		summary: summary,
		audit:   audit,
	}
}

// StatusSummary returns one row per status that has letters, in lifecycle
// order.
func (s *Service) StatusSummary(ctx context.Context) ([]domain.StatusCount, error) {
	counts, err := s.summary.StatusSummary(ctx)
	if err != nil {
		return nil, domain.NewPersistenceError("status summary", err)
	}
	order := domain.Statuses()
	slices.SortFunc(counts, func(a, b domain.StatusCount) int {
		return cmp.Compare(slices.Index(order, a.Status), slices.Index(order, b.Status))
	})
	return counts, nil
}

// LettersForSponsee returns every letter written by one sponsee.
func (s *Service) LettersForSponsee(ctx context.Context, index int64) ([]*domain.Letter, error) {
	return letter.Collect(s.letters.List(ctx, domain.LetterFilter{SponseeIndex: &index}))
}

// LettersInRange returns letters whose dateField lies within [from, to].
func (s *Service) LettersInRange(ctx context.Context, dateField domain.LetterField, from, to time.Time) ([]*domain.Letter, error) {
	return letter.Collect(s.letters.List(ctx, domain.LetterFilter{DateField: dateField, From: &from, To: &to}))
}

// AuditTrail returns the entries of one letter in log order.
func (s *Service) AuditTrail(ctx context.Context, letterID int64) ([]domain.AuditEntry, error) {
	if _, err := s.letters.Get(ctx, letterID); err != nil {
		return nil, err
	}
	var out []domain.AuditEntry
	for e, err := range s.audit.Query(ctx, domain.AuditFilter{LetterID: &letterID}) {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Discrepancy is a field whose history does not account for its value.
type Discrepancy struct {
	Field    domain.LetterField `json:"field"`
	LogID    int64              `json:"log_id,omitempty"`
	Expected string             `json:"expected"`
	Actual   string             `json:"actual"`
	Problem  string             `json:"problem"`
}

// TrailReport is the result of replaying a letter's audit trail.
type TrailReport struct {
	LetterID      int64         `json:"letter_id"`
	Entries       int           `json:"entries"`
	Discrepancies []Discrepancy `json:"discrepancies"`
}

// OK reports whether the trail fully accounts for the current record.
func (r *TrailReport) OK() bool { return len(r.Discrepancies) == 0 }

// VerifyTrail replays the audit trail of one letter. Every field entry must
// start from the value the previous entry left, and the last logged value of
// each field must equal the current value.
func (s *Service) VerifyTrail(ctx context.Context, letterID int64) (*TrailReport, error) {
	current, err := s.letters.Get(ctx, letterID)
	if err != nil {
		return nil, err
	}

	report := &TrailReport{LetterID: letterID, Discrepancies: []Discrepancy{}}
	replayed := make(map[domain.LetterField]string)
	created := false

	for e, err := range s.audit.Query(ctx, domain.AuditFilter{LetterID: &letterID}) {
		if err != nil {
			return nil, err
		}
		report.Entries++
		if e.Action == domain.AuditActionLetterAdded && e.Field == "" {
			created = true
			continue
		}
		if e.Field == "" {
			continue
		}
		if prev := replayed[e.Field]; e.Action != domain.AuditActionLetterAdded && prev != e.OldValue {
			report.Discrepancies = append(report.Discrepancies, Discrepancy{
				Field:    e.Field,
				LogID:    e.LogID,
				Expected: prev,
				Actual:   e.OldValue,
				Problem:  "old value does not match previous entry",
			})
		}
		replayed[e.Field] = e.NewValue
	}

	if !created {
		report.Discrepancies = append(report.Discrepancies, Discrepancy{Problem: "no letter_added entry"})
	}
	for _, f := range domain.MutableFields() {
		if got := current.Value(f); replayed[f] != got {
			report.Discrepancies = append(report.Discrepancies, Discrepancy{
				Field:    f,
				Expected: replayed[f],
				Actual:   got,
				Problem:  "current value not explained by the trail",
			})
		}
	}

	if !report.OK() {
		s.log.WarnContext(ctx, "audit trail mismatch",
			slog.Int64("letter_id", letterID),
			slog.Int("discrepancies", len(report.Discrepancies)),
		)
	}
	return report, nil
}

// AuditRecord is the exported form of one audit entry.
type AuditRecord struct {
	LogID     int64     `json:"log_id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	LetterID  *int64    `json:"letter_id"`
	Field     string    `json:"field,omitempty"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	Details   string    `json:"details,omitempty"`
	Actor     string    `json:"actor"`
}

// NewAuditRecord converts a domain entry to its exported form.
func NewAuditRecord(e domain.AuditEntry) AuditRecord {
	return AuditRecord{
		LogID:     e.LogID,
		Timestamp: e.Timestamp.UTC(),
		Action:    e.Action.String(),
		LetterID:  e.LetterID,
		Field:     e.Field.String(),
		OldValue:  e.OldValue,
		NewValue:  e.NewValue,
		Details:   e.Details,
		Actor:     e.Actor,
	}
}

// ExportAudit writes the entries selected by filter to w as JSON Lines and
// returns how many were written.
func (s *Service) ExportAudit(ctx context.Context, w io.Writer, filter domain.AuditFilter) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	n := 0
	for e, err := range s.audit.Query(ctx, filter) {
		if err != nil {
			return n, err
		}
		if err := enc.Encode(NewAuditRecord(e)); err != nil {
			return n, fmt.Errorf("export audit entry %d: %w", e.LogID, err)
		}
		n++
	}
	return n, nil
}
