package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedSponsee inserts a sponsee with a random identifier hash.
func SeedSponsee(t *testing.T, pool *pgxpool.Pool) domain.Sponsee {
	t.Helper()

	s := domain.Sponsee{
		Code:           "TST" + uniqueSuffix()[:3],
		IdentifierHash: "hash-" + uniqueSuffix(),
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}

	err := pool.QueryRow(context.Background(),
		`INSERT INTO sponsees (identifier_hash, code, created_at)
		 VALUES ($1, $2, $3) RETURNING sponsee_index`,
		s.IdentifierHash, s.Code, s.CreatedAt,
	).Scan(&s.Index)
	if err != nil {
		t.Fatalf("testhelper: SeedSponsee: %v", err)
	}

	return s
}

// SeedLetter inserts a scanned letter for the sponsee and returns its id.
func SeedLetter(t *testing.T, pool *pgxpool.Pool, sponsee domain.Sponsee) int64 {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO letters (sponsee_index, sponsee_code, date_scanned, status, created_at, updated_at)
		 VALUES ($1, $2, $3, 'scanned', $4, $4) RETURNING letter_id`,
		sponsee.Index, sponsee.Code, domain.TruncateDate(now), now,
	).Scan(&id)
	if err != nil {
		t.Fatalf("testhelper: SeedLetter: %v", err)
	}

	return id
}
