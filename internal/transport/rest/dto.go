package rest

import (
	"time"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

type letterResponse struct {
	ID                   int64    `json:"letter_id"`
	SponseeIndex         int64    `json:"sponsee_index"`
	SponseeCode          string   `json:"sponsee_code"`
	StepWork             *string  `json:"step_work"`
	EnvelopeImagePath    *string  `json:"envelope_image_path"`
	LetterPagesImagePath *string  `json:"letter_pages_image_path"`
	DatePickedUp         *string  `json:"date_picked_up"`
	DateScanned          *string  `json:"date_scanned"`
	DatePostmarked       *string  `json:"date_postmarked"`
	DateResponseStarted  *string  `json:"date_response_started"`
	DateResponseFinished *string  `json:"date_response_finished"`
	OCRText              *string  `json:"ocr_text"`
	OCRConfidence        *float64 `json:"ocr_confidence"`
	ReturnAddress        *string  `json:"return_address"`
	RawOCRArtifactPath   *string  `json:"raw_ocr_artifact_path"`
	Status               string   `json:"status"`
	ProcessorNotes       *string  `json:"processor_notes"`
	// NextStatuses lists the statuses a transition may target from here.
	NextStatuses []string  `json:"next_statuses"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toLetterResponse(l *domain.Letter) letterResponse {
	next := make([]string, 0, 1)
	for _, s := range domain.NextStatuses(l.Status) {
		next = append(next, s.String())
	}
	return letterResponse{
		ID:                   l.ID,
		SponseeIndex:         l.SponseeIndex,
		SponseeCode:          l.SponseeCode,
		StepWork:             l.StepWork,
		EnvelopeImagePath:    l.EnvelopeImagePath,
		LetterPagesImagePath: l.LetterPagesImagePath,
		DatePickedUp:         dateString(l.DatePickedUp),
		DateScanned:          dateString(l.DateScanned),
		DatePostmarked:       dateString(l.DatePostmarked),
		DateResponseStarted:  dateString(l.DateResponseStarted),
		DateResponseFinished: dateString(l.DateResponseFinished),
		OCRText:              l.OCRText,
		OCRConfidence:        l.OCRConfidence,
		ReturnAddress:        l.ReturnAddress,
		RawOCRArtifactPath:   l.RawOCRArtifactPath,
		Status:               l.Status.String(),
		ProcessorNotes:       l.ProcessorNotes,
		NextStatuses:         next,
		CreatedAt:            l.CreatedAt.UTC(),
		UpdatedAt:            l.UpdatedAt.UTC(),
	}
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := domain.FormatDate(*t)
	return &s
}

type letterListResponse struct {
	Letters []letterResponse `json:"letters"`
	// NextAfter is the cursor for the following page; zero when exhausted.
	NextAfter int64 `json:"next_after,omitempty"`
}

type statusCountResponse struct {
	Status       string  `json:"status"`
	Count        int     `json:"count"`
	EarliestScan *string `json:"earliest_scan"`
	LatestScan   *string `json:"latest_scan"`
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

type ocrRequest struct {
	Text                   string  `json:"text"`
	Confidence             float64 `json:"confidence"`
	ExtractedReturnAddress *string `json:"extracted_return_address"`
	ArtifactPath           string  `json:"artifact_path"`
	ExtractedID            *string `json:"extracted_id"`
}

type ingestRequest struct {
	EnvelopeImagePath    string     `json:"envelope_image_path"`
	LetterPagesImagePath *string    `json:"letter_pages_image_path"`
	DatePickedUp         *string    `json:"date_picked_up"`
	DatePostmarked       *string    `json:"date_postmarked"`
	StepWork             *string    `json:"step_work"`
	SponseeIndex         *int64     `json:"sponsee_index"`
	OCR                  ocrRequest `json:"ocr"`
}

type fieldUpdateRequest struct {
	// Value null clears the field.
	Value  *string `json:"value"`
	Reason string  `json:"reason"`
}

type transitionRequest struct {
	To      string             `json:"to"`
	Changes map[string]*string `json:"changes"`
	Reason  string             `json:"reason"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type archiveRequest struct {
	Reason string `json:"reason"`
}
