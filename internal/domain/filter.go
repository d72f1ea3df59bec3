package domain

import (
	"slices"
	"time"
)

// LetterFilter contains filtering/pagination parameters for letter listings.
// From and To bound DateField inclusively.
type LetterFilter struct {
	Statuses     []Status
	SponseeIndex *int64
	DateField    LetterField
	From         *time.Time
	To           *time.Time
	AfterID      int64
	Limit        int
}

// Validate checks the filter fields.
func (f LetterFilter) Validate() error {
	var errs []FieldError
	for _, s := range f.Statuses {
		if !s.IsValid() {
			errs = append(errs, FieldError{Field: "status", Message: "unknown status " + s.String()})
		}
	}
	if (f.From != nil || f.To != nil) && !f.DateField.IsDate() {
		errs = append(errs, FieldError{Field: "date_field", Message: "must name a date field"})
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		errs = append(errs, FieldError{Field: "to", Message: "must not precede from"})
	}
	if f.Limit < 0 {
		errs = append(errs, FieldError{Field: "limit", Message: "must be >= 0"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

// Matches reports whether l satisfies the filter.
func (f LetterFilter) Matches(l *Letter) bool {
	if l.ID <= f.AfterID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, l.Status) {
		return false
	}
	if f.SponseeIndex != nil && l.SponseeIndex != *f.SponseeIndex {
		return false
	}
	if f.From != nil || f.To != nil {
		d, _ := l.DateField(f.DateField)
		if d == nil {
			return false
		}
		if f.From != nil && d.Before(TruncateDate(*f.From)) {
			return false
		}
		if f.To != nil && d.After(TruncateDate(*f.To)) {
			return false
		}
	}
	return true
}

// StatusCount summarizes the letters sharing one status.
type StatusCount struct {
	Status       Status
	Count        int
	EarliestScan *time.Time
	LatestScan   *time.Time
}
