package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Letter is one physical letter received from a sponsee.
type Letter struct {
	ID           int64
	SponseeIndex int64
	SponseeCode  string

	StepWork             *string
	EnvelopeImagePath    *string
	LetterPagesImagePath *string

	DatePickedUp         *time.Time
	DateScanned          *time.Time
	DatePostmarked       *time.Time
	DateResponseStarted  *time.Time
	DateResponseFinished *time.Time

	OCRText            *string
	OCRConfidence      *float64
	ReturnAddress      *string
	RawOCRArtifactPath *string

	Status         Status
	ProcessorNotes *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of l.
func (l *Letter) Clone() *Letter {
	if l == nil {
		return nil
	}
	c := *l
	c.StepWork = cloneString(l.StepWork)
	c.EnvelopeImagePath = cloneString(l.EnvelopeImagePath)
	c.LetterPagesImagePath = cloneString(l.LetterPagesImagePath)
	c.DatePickedUp = cloneTime(l.DatePickedUp)
	c.DateScanned = cloneTime(l.DateScanned)
	c.DatePostmarked = cloneTime(l.DatePostmarked)
	c.DateResponseStarted = cloneTime(l.DateResponseStarted)
	c.DateResponseFinished = cloneTime(l.DateResponseFinished)
	c.OCRText = cloneString(l.OCRText)
	c.ReturnAddress = cloneString(l.ReturnAddress)
	c.RawOCRArtifactPath = cloneString(l.RawOCRArtifactPath)
	c.ProcessorNotes = cloneString(l.ProcessorNotes)
	if l.OCRConfidence != nil {
		v := *l.OCRConfidence
		c.OCRConfidence = &v
	}
	return &c
}

// Value returns the textual snapshot of a field as written to the audit log.
// Null values render as "".
func (l *Letter) Value(f LetterField) string {
	switch f {
	case FieldLetterID:
		return strconv.FormatInt(l.ID, 10)
	case FieldSponseeIndex:
		return strconv.FormatInt(l.SponseeIndex, 10)
	case FieldSponseeCode:
		return l.SponseeCode
	case FieldStatus:
		return l.Status.String()
	case FieldOCRConfidence:
		if l.OCRConfidence == nil {
			return ""
		}
		return strconv.FormatFloat(*l.OCRConfidence, 'f', -1, 64)
	case FieldCreatedAt:
		return l.CreatedAt.UTC().Format(time.RFC3339Nano)
	case FieldUpdatedAt:
		return l.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	if f.IsDate() {
		if d := *l.datePtr(f); d != nil {
			return FormatDate(*d)
		}
		return ""
	}
	if p := l.textPtr(f); p != nil && *p != nil {
		return **p
	}
	return ""
}

// Set assigns a field from its textual form; nil (or "") clears a nullable
// field. Immutable fields are rejected with ImmutableFieldError.
func (l *Letter) Set(f LetterField, raw *string) error {
	if !f.IsValid() {
		return NewValidationError("field", fmt.Sprintf("unknown field %q", f))
	}
	if !f.IsMutable() {
		return &ImmutableFieldError{Field: f}
	}

	var v string
	isNull := raw == nil || *raw == ""
	if !isNull {
		v = *raw
	}

	switch f {
	case FieldSponseeIndex:
		if isNull {
			return NewValidationError(f.String(), "required")
		}
		idx, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || idx <= 0 {
			return NewValidationError(f.String(), "must be a positive integer")
		}
		l.SponseeIndex = idx
		return nil
	case FieldSponseeCode:
		if isNull {
			return NewValidationError(f.String(), "required")
		}
		l.SponseeCode = v
		return nil
	case FieldStatus:
		if isNull {
			return NewValidationError(f.String(), "required")
		}
		s, err := ParseStatus(v)
		if err != nil {
			return err
		}
		l.Status = s
		return nil
	case FieldOCRConfidence:
		if isNull {
			l.OCRConfidence = nil
			return nil
		}
		c, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return NewValidationError(f.String(), "must be a number")
		}
		if err := ValidateConfidence(c); err != nil {
			return err
		}
		l.OCRConfidence = &c
		return nil
	}

	if f.IsDate() {
		dst := l.datePtr(f)
		if isNull {
			*dst = nil
			return nil
		}
		d, err := ParseDate(v)
		if err != nil {
			return NewValidationError(f.String(), "unrecognized date "+v)
		}
		*dst = &d
		return nil
	}

	dst := l.textPtr(f)
	if isNull {
		*dst = nil
		return nil
	}
	*dst = &v
	return nil
}

// Changed lists the mutable fields whose textual value differs between l and
// other, in canonical order.
func (l *Letter) Changed(other *Letter) []LetterField {
	var out []LetterField
	for _, f := range MutableFields() {
		if l.Value(f) != other.Value(f) {
			out = append(out, f)
		}
	}
	return out
}

// Populated lists the mutable fields holding a non-null value, in canonical
// order.
func (l *Letter) Populated() []LetterField {
	var out []LetterField
	for _, f := range MutableFields() {
		if l.Value(f) != "" {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks the record-level invariants that must hold after every
// accepted mutation.
func (l *Letter) Validate() error {
	var errs []FieldError

	if l.SponseeIndex <= 0 {
		errs = append(errs, FieldError{Field: FieldSponseeIndex.String(), Message: "required"})
	}
	if strings.TrimSpace(l.SponseeCode) == "" {
		errs = append(errs, FieldError{Field: FieldSponseeCode.String(), Message: "required"})
	}
	if !l.Status.IsValid() {
		errs = append(errs, FieldError{Field: FieldStatus.String(), Message: "invalid status"})
	}
	if l.OCRConfidence != nil {
		if err := ValidateConfidence(*l.OCRConfidence); err != nil {
			errs = append(errs, FieldError{Field: FieldOCRConfidence.String(), Message: "must be within [0, 1]"})
		}
	}
	if !l.CreatedAt.IsZero() && l.UpdatedAt.Before(l.CreatedAt) {
		errs = append(errs, FieldError{Field: FieldUpdatedAt.String(), Message: "must not precede created_at"})
	}
	for _, f := range StatusRequirements(l.Status) {
		if *l.datePtr(f) == nil {
			errs = append(errs, FieldError{
				Field:   f.String(),
				Message: fmt.Sprintf("required while status is %s", l.Status),
			})
		}
	}

	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

// ValidateConfidence checks that an OCR confidence lies within [0, 1].
func ValidateConfidence(c float64) error {
	if math.IsNaN(c) || c < 0 || c > 1 {
		return NewValidationError(FieldOCRConfidence.String(), "must be within [0, 1]")
	}
	return nil
}

func (l *Letter) datePtr(f LetterField) **time.Time {
	switch f {
	case FieldDatePickedUp:
		return &l.DatePickedUp
	case FieldDateScanned:
		return &l.DateScanned
	case FieldDatePostmarked:
		return &l.DatePostmarked
	case FieldDateResponseStarted:
		return &l.DateResponseStarted
	case FieldDateResponseFinished:
		return &l.DateResponseFinished
	}
	panic("domain: not a date field: " + string(f))
}

func (l *Letter) textPtr(f LetterField) **string {
	switch f {
	case FieldStepWork:
		return &l.StepWork
	case FieldEnvelopeImagePath:
		return &l.EnvelopeImagePath
	case FieldLetterPagesImagePath:
		return &l.LetterPagesImagePath
	case FieldOCRText:
		return &l.OCRText
	case FieldReturnAddress:
		return &l.ReturnAddress
	case FieldRawOCRArtifactPath:
		return &l.RawOCRArtifactPath
	case FieldProcessorNotes:
		return &l.ProcessorNotes
	}
	return nil
}

// DateField returns the value of a date field; ok is false for non-date fields.
func (l *Letter) DateField(f LetterField) (*time.Time, bool) {
	if !f.IsDate() {
		return nil, false
	}
	return *l.datePtr(f), true
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
