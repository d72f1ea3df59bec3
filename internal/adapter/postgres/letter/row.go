package letter

import (
	"strings"
	"time"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// letterRow mirrors the letters table.
type letterRow struct {
	LetterID             int64      `db:"letter_id"`
	SponseeIndex         int64      `db:"sponsee_index"`
	SponseeCode          string     `db:"sponsee_code"`
	StepWork             *string    `db:"step_work"`
	EnvelopeImagePath    *string    `db:"envelope_image_path"`
	LetterPagesImagePath *string    `db:"letter_pages_image_path"`
	DatePickedUp         *time.Time `db:"date_picked_up"`
	DateScanned          *time.Time `db:"date_scanned"`
	DatePostmarked       *time.Time `db:"date_postmarked"`
	DateResponseStarted  *time.Time `db:"date_response_started"`
	DateResponseFinished *time.Time `db:"date_response_finished"`
	OCRText              *string    `db:"ocr_text"`
	OCRConfidence        *float64   `db:"ocr_confidence"`
	ReturnAddress        *string    `db:"return_address"`
	RawOCRArtifactPath   *string    `db:"raw_ocr_artifact_path"`
	Status               string     `db:"status"`
	ProcessorNotes       *string    `db:"processor_notes"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

func fromDomain(l *domain.Letter) letterRow {
	return letterRow{
		LetterID:             l.ID,
		SponseeIndex:         l.SponseeIndex,
		SponseeCode:          l.SponseeCode,
		StepWork:             l.StepWork,
		EnvelopeImagePath:    l.EnvelopeImagePath,
		LetterPagesImagePath: l.LetterPagesImagePath,
		DatePickedUp:         l.DatePickedUp,
		DateScanned:          l.DateScanned,
		DatePostmarked:       l.DatePostmarked,
		DateResponseStarted:  l.DateResponseStarted,
		DateResponseFinished: l.DateResponseFinished,
		OCRText:              l.OCRText,
		OCRConfidence:        l.OCRConfidence,
		ReturnAddress:        l.ReturnAddress,
		RawOCRArtifactPath:   l.RawOCRArtifactPath,
		Status:               l.Status.String(),
		ProcessorNotes:       l.ProcessorNotes,
		CreatedAt:            l.CreatedAt,
		UpdatedAt:            l.UpdatedAt,
	}
}

// values returns the column values in the order of columns[1:].
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
		DatePickedUp:         utcDate(r.DatePickedUp),
		DateScanned:          utcDate(r.DateScanned),
		DatePostmarked:       utcDate(r.DatePostmarked),
		DateResponseStarted:  utcDate(r.DateResponseStarted),
		DateResponseFinished: utcDate(r.DateResponseFinished),
		OCRText:              r.OCRText,
		OCRConfidence:        r.OCRConfidence,
		ReturnAddress:        r.ReturnAddress,
		RawOCRArtifactPath:   r.RawOCRArtifactPath,
		Status:               domain.Status(r.Status),
		ProcessorNotes:       r.ProcessorNotes,
		CreatedAt:            r.CreatedAt.UTC(),
		UpdatedAt:            r.UpdatedAt.UTC(),
	}
}

func utcDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.TruncateDate(*t)
	return &d
}

func joinColumns() string {
	return strings.Join(columns, ", ")
}
