package sqlite

import (
	"strings"
	"time"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// timestampLayout keeps a fixed width so that stored timestamps sort
// lexically in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := domain.FormatDate(*t)
	return &s
}

func parseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(domain.DateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}

var letterColumns = []string{
	"letter_id", "sponsee_index", "sponsee_code",
	"step_work", "envelope_image_path", "letter_pages_image_path",
	"date_picked_up", "date_scanned", "date_postmarked", "date_response_started", "date_response_finished",
	"ocr_text", "ocr_confidence", "return_address", "raw_ocr_artifact_path",
	"status", "processor_notes", "created_at", "updated_at",
}

type letterRow struct {
	LetterID             int64    `db:"letter_id"`
	SponseeIndex         int64    `db:"sponsee_index"`
	SponseeCode          string   `db:"sponsee_code"`
	StepWork             *string  `db:"step_work"`
	EnvelopeImagePath    *string  `db:"envelope_image_path"`
	LetterPagesImagePath *string  `db:"letter_pages_image_path"`
	DatePickedUp         *string  `db:"date_picked_up"`
	DateScanned          *string  `db:"date_scanned"`
	DatePostmarked       *string  `db:"date_postmarked"`
	DateResponseStarted  *string  `db:"date_response_started"`
	DateResponseFinished *string  `db:"date_response_finished"`
	OCRText              *string  `db:"ocr_text"`
	OCRConfidence        *float64 `db:"ocr_confidence"`
	ReturnAddress        *string  `db:"return_address"`
	RawOCRArtifactPath   *string  `db:"raw_ocr_artifact_path"`
	Status               string   `db:"status"`
	ProcessorNotes       *string  `db:"processor_notes"`
	CreatedAt            string   `db:"created_at"`
	UpdatedAt            string   `db:"updated_at"`
}

func letterFromDomain(l *domain.Letter) letterRow {
	return letterRow{
		LetterID:             l.ID,
		SponseeIndex:         l.SponseeIndex,
		SponseeCode:          l.SponseeCode,
		StepWork:             l.StepWork,
		EnvelopeImagePath:    l.EnvelopeImagePath,
		LetterPagesImagePath: l.LetterPagesImagePath,
		DatePickedUp:         formatDate(l.DatePickedUp),
		DateScanned:          formatDate(l.DateScanned),
		DatePostmarked:       formatDate(l.DatePostmarked),
		DateResponseStarted:  formatDate(l.DateResponseStarted),
		DateResponseFinished: formatDate(l.DateResponseFinished),
		OCRText:              l.OCRText,
		OCRConfidence:        l.OCRConfidence,
		ReturnAddress:        l.ReturnAddress,
		RawOCRArtifactPath:   l.RawOCRArtifactPath,
		Status:               l.Status.String(),
		ProcessorNotes:       l.ProcessorNotes,
		CreatedAt:            formatTimestamp(l.CreatedAt),
		UpdatedAt:            formatTimestamp(l.UpdatedAt),
	}
}

// values returns the column values in the order of letterColumns[1:].
func (r letterRow) values() []any {
	return []any{
		r.SponseeIndex, r.SponseeCode,
		r.StepWork, r.EnvelopeImagePath, r.LetterPagesImagePath,
		r.DatePickedUp, r.DateScanned, r.DatePostmarked, r.DateResponseStarted, r.DateResponseFinished,
		r.OCRText, r.OCRConfidence, r.ReturnAddress, r.RawOCRArtifactPath,
		r.Status, r.ProcessorNotes, r.CreatedAt, r.UpdatedAt,
	}
}

func (r letterRow) toDomain() *domain.Letter {
	return &domain.Letter{
		ID:                   r.LetterID,
		SponseeIndex:         r.SponseeIndex,
		SponseeCode:          r.SponseeCode,
		StepWork:             r.StepWork,
		EnvelopeImagePath:    r.EnvelopeImagePath,
		LetterPagesImagePath: r.LetterPagesImagePath,
		DatePickedUp:         parseDate(r.DatePickedUp),
		DateScanned:          parseDate(r.DateScanned),
		DatePostmarked:       parseDate(r.DatePostmarked),
		DateResponseStarted:  parseDate(r.DateResponseStarted),
		DateResponseFinished: parseDate(r.DateResponseFinished),
		OCRText:              r.OCRText,
		OCRConfidence:        r.OCRConfidence,
		ReturnAddress:        r.ReturnAddress,
		RawOCRArtifactPath:   r.RawOCRArtifactPath,
		Status:               domain.Status(r.Status),
		ProcessorNotes:       r.ProcessorNotes,
		CreatedAt:            parseTimestamp(r.CreatedAt),
		UpdatedAt:            parseTimestamp(r.UpdatedAt),
	}
}

var auditColumns = []string{
	"log_id", "timestamp", "action", "letter_id", "field_changed",
	"old_value", "new_value", "details", "actor",
}

type auditRow struct {
	LogID        int64   `db:"log_id"`
	Timestamp    string  `db:"timestamp"`
	Action       string  `db:"action"`
	LetterID     *int64  `db:"letter_id"`
	FieldChanged *string `db:"field_changed"`
	OldValue     string  `db:"old_value"`
	NewValue     string  `db:"new_value"`
	Details      string  `db:"details"`
	Actor        string  `db:"actor"`
}

func (r auditRow) toDomain() domain.AuditEntry {
	e := domain.AuditEntry{
		LogID:     r.LogID,
		Timestamp: parseTimestamp(r.Timestamp),
		Action:    domain.AuditAction(r.Action),
		LetterID:  r.LetterID,
		OldValue:  r.OldValue,
		NewValue:  r.NewValue,
		Details:   r.Details,
		Actor:     r.Actor,
	}
	if r.FieldChanged != nil {
		e.Field = domain.LetterField(*r.FieldChanged)
	}
	return e
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
