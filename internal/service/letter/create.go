package letter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// Create stores a new letter. The status defaults to scanned when
// date_scanned is given and to picked_up otherwise. One whole-record
// letter_added entry and one letter_added entry per populated field are
// logged with the record.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Letter, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	l := &domain.Letter{SponseeIndex: input.SponseeIndex}
	statusGiven := false
	for _, c := range input.Fields {
		if c.Field == domain.FieldLetterID || c.Field == domain.FieldCreatedAt || c.Field == domain.FieldUpdatedAt {
			return nil, &domain.ImmutableFieldError{Field: c.Field}
		}
		if err := l.Set(c.Field, c.Value); err != nil {
			return nil, err
		}
		if c.Field == domain.FieldStatus {
			statusGiven = true
		}
	}
	if !statusGiven {
		l.Status = domain.StatusPickedUp
		if l.DateScanned != nil {
			l.Status = domain.StatusScanned
		}
	}

	var created *domain.Letter
	txErr := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sponsee, err := s.sponsees.GetByIndex(txCtx, l.SponseeIndex)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewValidationError("sponsee_index", fmt.Sprintf("unknown sponsee %d", l.SponseeIndex))
			}
			return wrapErr("get sponsee", err)
		}
		if l.SponseeCode == "" {
			l.SponseeCode = sponsee.Code
		}

		now := s.now()
		l.CreatedAt, l.UpdatedAt = now, now
		if err := l.Validate(); err != nil {
			return err
		}

		created, err = s.letters.Create(txCtx, l)
		if err != nil {
			return wrapErr("create letter", err)
		}

		details := input.Details
		if details == "" {
			details = fmt.Sprintf("letter created for sponsee %d with status %s", created.SponseeIndex, created.Status)
		}
		entries := []domain.AuditEntry{{
			Timestamp: now,
			Action:    domain.AuditActionLetterAdded,
			LetterID:  &created.ID,
			Details:   details,
			Actor:     input.Actor.ID,
		}}
		for _, f := range created.Populated() {
			entries = append(entries, domain.AuditEntry{
				Timestamp: now,
				Action:    domain.AuditActionLetterAdded,
				LetterID:  &created.ID,
				Field:     f,
				NewValue:  created.Value(f),
				Actor:     input.Actor.ID,
			})
		}
		for _, e := range entries {
			if _, err := s.audit.Append(txCtx, e); err != nil {
				return wrapErr("append audit entry", err)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.log.InfoContext(ctx, "letter created",
		slog.Int64("letter_id", created.ID),
		slog.Int64("sponsee_index", created.SponseeIndex),
		slog.String("status", created.Status.String()),
		slog.String("actor", input.Actor.ID),
	)
	return created, nil
}
