package domain

import "strings"

// Status is the processing stage of a letter.
type Status string

const (
	StatusPickedUp        Status = "picked_up"
	StatusScanned         Status = "scanned"
	StatusProcessing      Status = "processing"
	StatusResponseStarted Status = "response_started"
	StatusResponded       Status = "responded"
	StatusMailed          Status = "mailed"
	StatusArchived        Status = "archived"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPickedUp, StatusScanned, StatusProcessing, StatusResponseStarted,
		StatusResponded, StatusMailed, StatusArchived:
		return true
	}
	return false
}

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusPickedUp, StatusScanned, StatusProcessing, StatusResponseStarted,
		StatusResponded, StatusMailed, StatusArchived,
	}
}

// legacyStatuses maps labels written by older tooling onto the current enum.
var legacyStatuses = map[string]Status{
	"sent":               StatusMailed,
	"reviewed":           StatusProcessing,
	"response_completed": StatusResponded,
	"printed":            StatusResponded,
}

// ParseStatus accepts current and legacy status labels (case-insensitive).
func ParseStatus(raw string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if s := Status(v); s.IsValid() {
		return s, nil
	}
	if s, ok := legacyStatuses[v]; ok {
		return s, nil
	}
	return "", NewValidationError("status", "unknown status "+raw)
}

// AuditAction is the kind of change recorded in the audit log.
type AuditAction string

const (
	AuditActionLetterAdded   AuditAction = "letter_added"
	AuditActionFieldUpdated  AuditAction = "field_updated"
	AuditActionStatusChanged AuditAction = "status_changed"
)

func (a AuditAction) String() string { return string(a) }

func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionLetterAdded, AuditActionFieldUpdated, AuditActionStatusChanged:
		return true
	}
	return false
}

// LetterField names a column of the letter record. The values double as the
// field_changed column of the audit log.
type LetterField string

const (
	FieldLetterID             LetterField = "letter_id"
	FieldSponseeIndex         LetterField = "sponsee_index"
	FieldSponseeCode          LetterField = "sponsee_code"
	FieldStepWork             LetterField = "step_work"
	FieldEnvelopeImagePath    LetterField = "envelope_image_path"
	FieldLetterPagesImagePath LetterField = "letter_pages_image_path"
	FieldDatePickedUp         LetterField = "date_picked_up"
	FieldDateScanned          LetterField = "date_scanned"
	FieldDatePostmarked       LetterField = "date_postmarked"
	FieldDateResponseStarted  LetterField = "date_response_started"
	FieldDateResponseFinished LetterField = "date_response_finished"
	FieldOCRText              LetterField = "ocr_text"
	FieldOCRConfidence        LetterField = "ocr_confidence"
	FieldReturnAddress        LetterField = "return_address"
	FieldRawOCRArtifactPath   LetterField = "raw_ocr_artifact_path"
	FieldStatus               LetterField = "status"
	FieldProcessorNotes       LetterField = "processor_notes"
	FieldCreatedAt            LetterField = "created_at"
	FieldUpdatedAt            LetterField = "updated_at"
)

func (f LetterField) String() string { return string(f) }

func (f LetterField) IsValid() bool {
	switch f {
	case FieldLetterID, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return f.IsMutable()
}

// IsMutable reports whether the field may change after creation.
func (f LetterField) IsMutable() bool {
	for _, m := range MutableFields() {
		if m == f {
			return true
		}
	}
	return false
}

// IsDate reports whether the field holds a calendar date.
func (f LetterField) IsDate() bool {
	switch f {
	case FieldDatePickedUp, FieldDateScanned, FieldDatePostmarked,
		FieldDateResponseStarted, FieldDateResponseFinished:
		return true
	}
	return false
}

// MutableFields lists the editable fields in canonical order. Audit entries
// for a multi-field change are written in this order.
func MutableFields() []LetterField {
	return []LetterField{
		FieldSponseeIndex,
		FieldSponseeCode,
		FieldStepWork,
		FieldEnvelopeImagePath,
		FieldLetterPagesImagePath,
		FieldDatePickedUp,
		FieldDateScanned,
		FieldDatePostmarked,
		FieldDateResponseStarted,
		FieldDateResponseFinished,
		FieldOCRText,
		FieldOCRConfidence,
		FieldReturnAddress,
		FieldRawOCRArtifactPath,
		FieldStatus,
		FieldProcessorNotes,
	}
}
