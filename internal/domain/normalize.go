package domain

import (
	"strings"
	"time"
	"unicode"
)

// NormalizeIdentifier prepares a sponsee identifier (e.g. a CDCR number) for
// hashing:
//   - trims leading/trailing whitespace
//   - converts to uppercase
//   - drops inner whitespace and hyphens
//
// "ab 123-45" and "AB12345" normalize to the same value.
func NormalizeIdentifier(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Date layouts. DateLayout is the storage and audit form; DisplayDateLayout
// is the compact form printed on envelopes and reports ("21Sep2025").
const (
	DateLayout        = "2006-01-02"
	DisplayDateLayout = "02Jan2006"
)

// ParseDate reads a calendar date in ISO form, the compact display form or a
// full RFC 3339 timestamp. The result is midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{DateLayout, DisplayDateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return TruncateDate(t), nil
		}
	}
	return time.Time{}, NewValidationError("date", "unrecognized date "+raw)
}

// TruncateDate drops the time of day, keeping the calendar date as seen in
// t's own location.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date in storage form.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DisplayDate renders a nullable date in display form; nil renders as "".
func DisplayDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DisplayDateLayout)
}
