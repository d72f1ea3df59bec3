package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// SQLSTATE codes the adapter gives a domain meaning to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeNotNullViolation     = "23502"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeRaiseException       = "P0001"
)

// MapError converts pgx errors into domain errors, prefixed with the entity
// and id they concern. Context errors keep their identity. Serialization
// failures map to domain.ErrConflict and keep the driver error in the chain.
func MapError(err error, entity string, id int64) error {
	if err == nil {
		return nil
	}
	subject := fmt.Sprintf("%s %d", entity, id)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", subject, err)
	}
	if errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err) {
		return fmt.Errorf("%s: %w", subject, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return domain.NewPersistenceError(subject, err)
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%s: %w", subject, domain.ErrAlreadyExists)
	case codeForeignKeyViolation:
		return fmt.Errorf("%s: %w", subject, domain.ErrNotFound)
	case codeCheckViolation, codeNotNullViolation:
		field := pgErr.ColumnName
		if field == "" {
			field = pgErr.ConstraintName
		}
		return fmt.Errorf("%s: %w", subject, domain.NewValidationError(field, "rejected by the database"))
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%s: %w: %w", subject, domain.ErrConflict, err)
	case codeRaiseException:
		// audit_log guard trigger
		return fmt.Errorf("%s: %w: %s", subject, domain.ErrForbidden, pgErr.Message)
	}
	return domain.NewPersistenceError(subject, err)
}
