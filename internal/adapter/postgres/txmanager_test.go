package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/lettertrack/internal/adapter/postgres"
	"github.com/heartmarshall/lettertrack/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/lettertrack/internal/domain"
)

func countSponsees(t *testing.T, pool *pgxpool.Pool, hash string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT count(*) FROM sponsees WHERE identifier_hash = $1`, hash,
	).Scan(&n))
	return n
}

func insertSponsee(ctx context.Context, q postgres.Querier, hash string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO sponsees (identifier_hash, code, created_at) VALUES ($1, 'TXN001', now())`,
		hash,
	)
	return err
}

func TestRunInTx_Postgres(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	ctx := context.Background()
	errBusiness := errors.New("precondition failed")

	t.Run("commit", func(t *testing.T) {
		err := tm.RunInTx(ctx, func(ctx context.Context) error {
			return insertSponsee(ctx, postgres.QuerierFromCtx(ctx, pool), "tx-commit")
		})
		require.NoError(t, err)
		assert.Equal(t, 1, countSponsees(t, pool, "tx-commit"))
	})

	t.Run("error rolls back", func(t *testing.T) {
		err := tm.RunInTx(ctx, func(ctx context.Context) error {
			require.NoError(t, insertSponsee(ctx, postgres.QuerierFromCtx(ctx, pool), "tx-error"))
			return errBusiness
		})
		require.ErrorIs(t, err, errBusiness)
		assert.Zero(t, countSponsees(t, pool, "tx-error"))
	})

	t.Run("panic rolls back", func(t *testing.T) {
		assert.PanicsWithValue(t, "boom", func() {
			_ = tm.RunInTx(ctx, func(ctx context.Context) error {
				require.NoError(t, insertSponsee(ctx, postgres.QuerierFromCtx(ctx, pool), "tx-panic"))
				panic("boom")
			})
		})
		assert.Zero(t, countSponsees(t, pool, "tx-panic"))
	})

	t.Run("outside tx uses pool", func(t *testing.T) {
		require.NoError(t, insertSponsee(ctx, postgres.QuerierFromCtx(ctx, pool), "tx-none"))
		assert.Equal(t, 1, countSponsees(t, pool, "tx-none"))
	})
}

func TestRunInTx_NestedJoinsOuter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	tm := postgres.NewTxManager(mock)
	err = tm.RunInTx(context.Background(), func(ctx context.Context) error {
		return tm.RunInTx(ctx, func(context.Context) error { return nil })
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "nested call must not open a second transaction")
}

func TestRunInTx_DomainErrorRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	calls := 0
	err = postgres.NewTxManager(mock).RunInTx(context.Background(), func(context.Context) error {
		calls++
		return domain.ErrInvalidTransition
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_ConflictSurfacesOnFirstAttempt(t *testing.T) {
	for _, code := range []string{"40001", "40P01"} {
		t.Run(code, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectBegin()
			mock.ExpectRollback()

			calls := 0
			err = postgres.NewTxManager(mock).RunInTx(context.Background(), func(context.Context) error {
				calls++
				return postgres.MapError(&pgconn.PgError{Code: code}, "letter", 5)
			})
			require.ErrorIs(t, err, domain.ErrConflict)
			assert.NotErrorIs(t, err, domain.ErrPersistence)
			assert.Equal(t, 1, calls, "conflicts are left to the caller")
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRunInTx_BeginFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err = postgres.NewTxManager(mock).RunInTx(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.False(t, called)
}
