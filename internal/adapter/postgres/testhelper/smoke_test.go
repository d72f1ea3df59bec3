package testhelper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestDB_Smoke(t *testing.T) {
	pool := SetupTestDB(t)
	ctx := context.Background()

	sponsee := SeedSponsee(t, pool)
	letterID := SeedLetter(t, pool, sponsee)

	var code, tz string
	require.NoError(t, pool.QueryRow(ctx, `SELECT sponsee_code FROM letters WHERE letter_id = $1`, letterID).Scan(&code))
	assert.Equal(t, sponsee.Code, code)

	require.NoError(t, pool.QueryRow(ctx, `SHOW timezone`).Scan(&tz))
	assert.Equal(t, "UTC", tz)
}

func TestSetupTestDB_AuditLogIsAppendOnly(t *testing.T) {
	pool := SetupTestDB(t)
	ctx := context.Background()

	letterID := SeedLetter(t, pool, SeedSponsee(t, pool))
	_, err := pool.Exec(ctx,
		`INSERT INTO audit_log (timestamp, action, letter_id, details, actor) VALUES (now(), 'letter_added', $1, 'seed', 'tester')`,
		letterID)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `UPDATE audit_log SET details = 'rewritten' WHERE letter_id = $1`, letterID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	_, err = pool.Exec(ctx, `DELETE FROM audit_log WHERE letter_id = $1`, letterID)
	require.Error(t, err)
}
