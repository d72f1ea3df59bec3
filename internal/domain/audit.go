package domain

import "time"

// AuditEntry is one immutable line of the change log.
type AuditEntry struct {
	LogID     int64
	Timestamp time.Time
	Action    AuditAction
	LetterID  *int64
	// Field is empty for entries that describe the whole record.
	Field    LetterField
	OldValue string
	NewValue string
	Details  string
	Actor    string
}

// AuditFilter selects audit entries. Results are always ordered by LogID.
type AuditFilter struct {
	LetterID   *int64
	Action     *AuditAction
	Field      *LetterField
	Actor      *string
	AfterLogID int64
	Since      *time.Time
	Until      *time.Time
	Limit      int
}

// Validate checks the filter fields.
func (f AuditFilter) Validate() error {
	var errs []FieldError
	if f.Action != nil && !f.Action.IsValid() {
		errs = append(errs, FieldError{Field: "action", Message: "unknown action"})
	}
	if f.Field != nil && !f.Field.IsValid() {
		errs = append(errs, FieldError{Field: "field", Message: "unknown field"})
	}
	if f.Limit < 0 {
		errs = append(errs, FieldError{Field: "limit", Message: "must be >= 0"})
	}
	if f.Since != nil && f.Until != nil && f.Until.Before(*f.Since) {
		errs = append(errs, FieldError{Field: "until", Message: "must not precede since"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

// Matches reports whether e satisfies the filter. Engines that cannot push the
// filter down to a query use it directly.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if e.LogID <= f.AfterLogID {
		return false
	}
	if f.LetterID != nil && (e.LetterID == nil || *e.LetterID != *f.LetterID) {
		return false
	}
	if f.Action != nil && e.Action != *f.Action {
		return false
	}
	if f.Field != nil && e.Field != *f.Field {
		return false
	}
	if f.Actor != nil && e.Actor != *f.Actor {
		return false
	}
	if f.Since != nil && e.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !e.Timestamp.Before(*f.Until) {
		return false
	}
	return true
}
