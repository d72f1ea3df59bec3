package letter

import (
	"fmt"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// Change assigns a field from its textual form. A nil Value clears the field.
type Change struct {
	Field domain.LetterField
	Value *string
}

// Derive computes changes from the locked current record, for updates whose
// new value depends on the old one.
type Derive func(current *domain.Letter) ([]Change, error)

// Guard inspects the locked current record and the proposed next record and
// rejects the mutation by returning an error.
type Guard func(current, next *domain.Letter) error

// CreateInput holds the parameters for creating a letter.
type CreateInput struct {
	SponseeIndex int64
	Fields       []Change
	Actor        domain.Actor
	Details      string
}

// Validate checks all fields and collects all errors.
func (i *CreateInput) Validate() error {
	var errs []domain.FieldError

	if i.SponseeIndex <= 0 {
		errs = append(errs, domain.FieldError{Field: "sponsee_index", Message: "required"})
	}
	if i.Actor.ID == "" {
		errs = append(errs, domain.FieldError{Field: "actor", Message: "required"})
	}
	for _, c := range i.Fields {
		if !c.Field.IsValid() {
			errs = append(errs, domain.FieldError{Field: "fields", Message: fmt.Sprintf("unknown field %q", c.Field)})
		}
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// ApplyInput holds a multi-field mutation of one letter.
type ApplyInput struct {
	LetterID int64
	Changes  []Change
	Derive   Derive
	Actor    domain.Actor
	// Guard replaces the default lifecycle check when set.
	Guard Guard
	// Reason is written to the details of every audit entry.
	Reason string
}

// Validate checks all fields and collects all errors.
func (i *ApplyInput) Validate() error {
	var errs []domain.FieldError

	if i.LetterID <= 0 {
		errs = append(errs, domain.FieldError{Field: "letter_id", Message: "required"})
	}
	if len(i.Changes) == 0 && i.Derive == nil {
		errs = append(errs, domain.FieldError{Field: "changes", Message: "at least one change required"})
	}
	if i.Actor.ID == "" {
		errs = append(errs, domain.FieldError{Field: "actor", Message: "required"})
	}
	seen := make(map[domain.LetterField]bool, len(i.Changes))
	for _, c := range i.Changes {
		if seen[c.Field] {
			errs = append(errs, domain.FieldError{Field: c.Field.String(), Message: "changed more than once"})
		}
		seen[c.Field] = true
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// UpdateFieldInput holds a single field update.
type UpdateFieldInput struct {
	LetterID int64
	Field    domain.LetterField
	Value    *string
	Actor    domain.Actor
	Reason   string
}
