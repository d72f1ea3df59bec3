package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// mapError converts database/sql and SQLite errors to domain errors.
func mapError(err error, entity string, id int64) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %d: %w", entity, id, err)
	}

	if errors.Is(err, sql.ErrNoRows) || sqlscan.NotFound(err) {
		return fmt.Errorf("%s %d: %w", entity, id, domain.ErrNotFound)
	}

	var sqliteErr *sqlitedriver.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		// The extended code is only set when extended result codes are
		// enabled, so fall back to the message.
		msg := sqliteErr.Error()
		switch {
		case sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
			sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
			strings.Contains(msg, "UNIQUE constraint"):
			return fmt.Errorf("%s %d: %w", entity, id, domain.ErrAlreadyExists)
		case sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
			strings.Contains(msg, "FOREIGN KEY constraint"):
			return fmt.Errorf("%s %d: %w", entity, id, domain.ErrNotFound)
		case sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_CHECK,
			strings.Contains(msg, "CHECK constraint"):
			return fmt.Errorf("%s %d: %w", entity, id, domain.ErrValidation)
		}
	}

	return domain.NewPersistenceError(fmt.Sprintf("%s %d", entity, id), err)
}
