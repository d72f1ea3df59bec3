package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// letterView is the JSON shape of a letter. Null fields are left out of
// Fields.
type letterView struct {
	ID           int64             `json:"letter_id"`
	SponseeIndex int64             `json:"sponsee_index"`
	SponseeCode  string            `json:"sponsee_code"`
	Status       string            `json:"status"`
	Fields       map[string]string `json:"fields"`
	NextStatuses []string          `json:"next_statuses"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
}

func newLetterView(l *domain.Letter) letterView {
	v := letterView{
		ID:           l.ID,
		SponseeIndex: l.SponseeIndex,
		SponseeCode:  l.SponseeCode,
		Status:       l.Status.String(),
		Fields:       make(map[string]string),
		NextStatuses: make([]string, 0),
		CreatedAt:    l.Value(domain.FieldCreatedAt),
		UpdatedAt:    l.Value(domain.FieldUpdatedAt),
	}
	for _, f := range l.Populated() {
		switch f {
		case domain.FieldSponseeIndex, domain.FieldSponseeCode, domain.FieldStatus:
			continue
		}
		v.Fields[f.String()] = l.Value(f)
	}
	for _, s := range domain.NextStatuses(l.Status) {
		v.NextStatuses = append(v.NextStatuses, s.String())
	}
	return v
}

func printLetter(w io.Writer, l *domain.Letter) {
	rows := [][]string{{domain.FieldLetterID.String(), strconv.FormatInt(l.ID, 10)}}
	for _, f := range domain.MutableFields() {
		rows = append(rows, []string{f.String(), l.Value(f)})
	}
	rows = append(rows,
		[]string{domain.FieldCreatedAt.String(), l.CreatedAt.UTC().Format(time.DateTime)},
		[]string{domain.FieldUpdatedAt.String(), l.UpdatedAt.UTC().Format(time.DateTime)},
	)
	fmt.Fprintln(w, renderTable(w, []string{"FIELD", "VALUE"}, rows, nil))

	next := domain.NextStatuses(l.Status)
	if len(next) == 0 {
		return
	}
	names := make([]string, len(next))
	for i, s := range next {
		names[i] = s.String()
	}
	fmt.Fprintf(w, "Next: %s\n", strings.Join(names, ", "))
}

func printLetterList(w io.Writer, letters []*domain.Letter) {
	if len(letters) == 0 {
		fmt.Fprintln(w, "No letters found")
		return
	}
	rows := make([][]string, 0, len(letters))
	for _, l := range letters {
		rows = append(rows, []string{
			strconv.FormatInt(l.ID, 10),
			strconv.FormatInt(l.SponseeIndex, 10),
			l.SponseeCode,
			l.Status.String(),
			domain.DisplayDate(l.DateScanned),
			l.Value(domain.FieldStepWork),
			l.UpdatedAt.UTC().Format(time.DateTime),
		})
	}
	fmt.Fprintln(w, renderTable(w,
		[]string{"ID", "SPONSEE", "CODE", "STATUS", "SCANNED", "STEP WORK", "UPDATED"},
		rows,
		[]columnAlignment{alignRight, alignRight},
	))
}

func parseLetterID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("letter_id", "must be a positive integer")
	}
	return id, nil
}

func optionalDate(name, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "unrecognized date "+raw)
	}
	return &d, nil
}

func optionalString(raw string) *string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return &raw
}
