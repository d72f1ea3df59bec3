package letter

import (
	"context"
	"log/slog"
	"slices"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// Apply performs an atomic multi-field mutation. The current record is read
// under the engine's row lock, the changes are applied to a copy, and the
// copy is checked by input.Guard (or by the lifecycle transition rules when
// no guard is set). Audit entries for every changed field
// are appended before the record is written, in the same transaction.
//
// When no field actually changes and no-op skipping is enabled, the current
// record is returned and nothing is written.
func (s *Service) Apply(ctx context.Context, input ApplyInput) (*domain.Letter, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var (
		result *domain.Letter
		logged []domain.LetterField
	)
	txErr := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		logged = nil

		current, err := s.letters.GetForUpdate(txCtx, input.LetterID)
		if err != nil {
			return wrapErr("get letter", err)
		}

		changes := input.Changes
		if input.Derive != nil {
			derived, err := input.Derive(current)
			if err != nil {
				return err
			}
			changes = append(slices.Clone(changes), derived...)
		}

		next := current.Clone()
		for _, c := range changes {
			if err := next.Set(c.Field, c.Value); err != nil {
				return err
			}
		}

		if input.Guard != nil {
			if err := input.Guard(current, next); err != nil {
				return err
			}
		} else if err := domain.CheckTransition(current, next); err != nil {
			return err
		}

		logged = current.Changed(next)
		if len(logged) == 0 {
			if !s.cfg.LogNoopUpdates {
				result = current
				return nil
			}
			for _, c := range changes {
				logged = append(logged, c.Field)
			}
		}

		now := s.now()
		if now.Before(current.UpdatedAt) {
			now = current.UpdatedAt
		}
		next.UpdatedAt = now
		if err := next.Validate(); err != nil {
			return err
		}

		for _, f := range logged {
			action := domain.AuditActionFieldUpdated
			if f == domain.FieldStatus {
				action = domain.AuditActionStatusChanged
			}
			if _, err := s.audit.Append(txCtx, domain.AuditEntry{
				Timestamp: now,
				Action:    action,
				LetterID:  &current.ID,
				Field:     f,
				OldValue:  current.Value(f),
				NewValue:  next.Value(f),
				Details:   input.Reason,
				Actor:     input.Actor.ID,
			}); err != nil {
				return wrapErr("append audit entry", err)
			}
		}

		if err := s.letters.Update(txCtx, next); err != nil {
			return wrapErr("update letter", err)
		}
		result = next
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if len(logged) > 0 {
		fields := make([]string, len(logged))
		for i, f := range logged {
			fields[i] = f.String()
		}
		s.log.InfoContext(ctx, "letter updated",
			slog.Int64("letter_id", result.ID),
			slog.Any("fields", fields),
			slog.String("actor", input.Actor.ID),
		)
	}
	return result, nil
}

// UpdateField changes one field. Status changes follow the lifecycle rules.
func (s *Service) UpdateField(ctx context.Context, input UpdateFieldInput) (*domain.Letter, error) {
	return s.Apply(ctx, ApplyInput{
		LetterID: input.LetterID,
		Changes:  []Change{{Field: input.Field, Value: input.Value}},
		Actor:    input.Actor,
		Reason:   input.Reason,
	})
}
