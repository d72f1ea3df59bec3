// Package lifecycle drives letters through their status workflow. Every
// check runs against the locked current record inside the store's
// transaction, so a rejected request mutates and logs nothing.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/heartmarshall/lettertrack/internal/domain"
	"github.com/heartmarshall/lettertrack/internal/service/letter"
)

type letterStore interface {
	Apply(ctx context.Context, input letter.ApplyInput) (*domain.Letter, error)
}

// Service is the lifecycle controller.
type Service struct {
	log   *slog.Logger
	store letterStore
	clock func() time.Time
}

// NewService creates a new lifecycle Service.
func NewService(logger *slog.Logger, store letterStore) *Service {
	return &Service{
		log:   logger.With("service", "lifecycle"),
		store: store,
		clock: time.Now,
	}
}

// TransitionInput moves a letter to a new status. Changes are applied in
// the same update, so a date a precondition needs can be set alongside the
// status.
type TransitionInput struct {
	LetterID int64
	To       domain.Status
	Changes  []letter.Change
	Actor    domain.Actor
	Reason   string
}

// Validate checks all fields and collects all errors.
func (i *TransitionInput) Validate() error {
	var errs []domain.FieldError

	if i.LetterID <= 0 {
		errs = append(errs, domain.FieldError{Field: "letter_id", Message: "required"})
	}
	if !i.To.IsValid() {
		errs = append(errs, domain.FieldError{Field: "to", Message: fmt.Sprintf("unknown status %q", i.To)})
	}
	for _, c := range i.Changes {
		if c.Field == domain.FieldStatus {
			errs = append(errs, domain.FieldError{Field: "changes", Message: "status is set by the transition itself"})
		}
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// Transition applies a regular workflow step. Archiving goes through Archive.
func (s *Service) Transition(ctx context.Context, input TransitionInput) (*domain.Letter, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	status := input.To.String()
	changes := append([]letter.Change{{Field: domain.FieldStatus, Value: &status}}, input.Changes...)

	l, err := s.store.Apply(ctx, letter.ApplyInput{
		LetterID: input.LetterID,
		Changes:  changes,
		Actor:    input.Actor,
		Reason:   input.Reason,
		Guard: func(current, next *domain.Letter) error {
			if current.Status == input.To {
				return &domain.TransitionError{
					LetterID:     current.ID,
					From:         current.Status,
					To:           input.To,
					Precondition: "letter is already " + current.Status.String(),
					Current:      current.Clone(),
				}
			}
			return domain.CheckTransition(current, next)
		},
	})
	if err != nil {
		s.logRejection(ctx, input.Actor, err)
		return nil, err
	}
	return l, nil
}

// UpdateField edits a non-status field. The edit must keep the record
// consistent with its current status.
func (s *Service) UpdateField(ctx context.Context, input letter.UpdateFieldInput) (*domain.Letter, error) {
	if input.Field == domain.FieldStatus {
		return nil, domain.NewValidationError("field", "status changes must go through a transition")
	}
	return s.store.Apply(ctx, letter.ApplyInput{
		LetterID: input.LetterID,
		Changes:  []letter.Change{{Field: input.Field, Value: input.Value}},
		Actor:    input.Actor,
		Reason:   input.Reason,
	})
}

// Archive removes a letter from the active workflow. Only admin actors may
// archive; the reason is recorded with the status change.
func (s *Service) Archive(ctx context.Context, letterID int64, reason string, actor domain.Actor) (*domain.Letter, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "required")
	}

	archived := domain.StatusArchived.String()
	l, err := s.store.Apply(ctx, letter.ApplyInput{
		LetterID: letterID,
		Changes:  []letter.Change{{Field: domain.FieldStatus, Value: &archived}},
		Actor:    actor,
		Reason:   reason,
		Guard: func(current, _ *domain.Letter) error {
			return domain.CheckArchive(current, actor)
		},
	})
	if err != nil {
		s.logRejection(ctx, actor, err)
		return nil, err
	}

	s.log.InfoContext(ctx, "letter archived",
		slog.Int64("letter_id", l.ID),
		slog.String("actor", actor.ID),
	)
	return l, nil
}

// AppendNote adds a dated line to processor_notes.
func (s *Service) AppendNote(ctx context.Context, letterID int64, note string, actor domain.Actor) (*domain.Letter, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, domain.NewValidationError("note", "required")
	}
	line := fmt.Sprintf("[%s %s] %s", s.clock().UTC().Format(domain.DisplayDateLayout), actor.ID, note)

	return s.store.Apply(ctx, letter.ApplyInput{
		LetterID: letterID,
		Actor:    actor,
		Derive: func(current *domain.Letter) ([]letter.Change, error) {
			notes := appendLine(current.ProcessorNotes, line)
			return []letter.Change{{Field: domain.FieldProcessorNotes, Value: &notes}}, nil
		},
	})
}

func appendLine(notes *string, line string) string {
	if notes == nil || strings.TrimSpace(*notes) == "" {
		return line
	}
	return *notes + "\n" + line
}

func (s *Service) logRejection(ctx context.Context, actor domain.Actor, err error) {
	var te *domain.TransitionError
	switch {
	case errors.As(err, &te):
		s.log.WarnContext(ctx, "transition rejected",
			slog.Int64("letter_id", te.LetterID),
			slog.String("from", te.From.String()),
			slog.String("to", te.To.String()),
			slog.String("precondition", te.Precondition),
			slog.String("actor", actor.ID),
		)
	case errors.Is(err, domain.ErrForbidden):
		s.log.WarnContext(ctx, "archive rejected",
			slog.String("actor", actor.ID),
			slog.String("error", err.Error()),
		)
	}
}
