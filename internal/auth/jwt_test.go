package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

const testSecret = "test-secret-at-least-32-chars-long-for-security"

func newTestManager(now time.Time) *JWTManager {
	m := NewJWTManager(testSecret, "lettertrack-test", 15*time.Minute)
	m.now = func() time.Time { return now }
	return m
}

func TestIssueAndValidate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.October, 2, 9, 30, 0, 0, time.UTC)
	m := newTestManager(now)

	tests := []struct {
		name     string
		actor    domain.Actor
		wantRole string
	}{
		{name: "operator", actor: domain.Actor{ID: "ana"}, wantRole: RoleOperator},
		{name: "admin", actor: domain.Actor{ID: "rosa", Admin: true}, wantRole: RoleAdmin},
		{name: "subject is trimmed", actor: domain.Actor{ID: "  ana "}, wantRole: RoleOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tok, err := m.Issue(tt.actor)
			require.NoError(t, err)
			assert.NotEmpty(t, tok.Value)
			assert.Equal(t, tt.wantRole, tok.Role)
			assert.Equal(t, now.Add(15*time.Minute), tok.ExpiresAt)

			got, err := m.ValidateAccessToken(tok.Value)
			require.NoError(t, err)
			assert.Equal(t, tok.Subject, got.ID)
			assert.Equal(t, tt.actor.Admin, got.Admin)
		})
	}
}

func TestIssue_RequiresActor(t *testing.T) {
	t.Parallel()

	_, err := newTestManager(time.Now()).Issue(domain.Actor{ID: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIssue_UniqueTokenIDs(t *testing.T) {
	t.Parallel()

	m := newTestManager(time.Now())
	a, err := m.GenerateAccessToken(domain.Actor{ID: "ana"})
	require.NoError(t, err)
	b, err := m.GenerateAccessToken(domain.Actor{ID: "ana"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	t.Parallel()

	issued := time.Date(2025, time.October, 2, 9, 30, 0, 0, time.UTC)
	issuer := newTestManager(issued)

	sign := func(t *testing.T, method jwt.SigningMethod, key any, claims roleClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	baseClaims := func() roleClaims {
		return roleClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "ana",
				Issuer:    "lettertrack-test",
				ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
			},
			Role: RoleOperator,
		}
	}

	tests := []struct {
		name      string
		token     func(t *testing.T) string
		validator *JWTManager
		wantErr   error
	}{
		{
			name:      "empty",
			token:     func(*testing.T) string { return "" },
			validator: issuer,
			wantErr:   ErrEmptyToken,
		},
		{
			name:      "malformed",
			token:     func(*testing.T) string { return "not.a.jwt" },
			validator: issuer,
			wantErr:   ErrInvalidToken,
		},
		{
			name: "expired beyond skew",
			token: func(t *testing.T) string {
				s, err := issuer.GenerateAccessToken(domain.Actor{ID: "ana"})
				require.NoError(t, err)
				return s
			},
			validator: newTestManager(issued.Add(15*time.Minute + clockSkew + time.Second)),
			wantErr:   jwt.ErrTokenExpired,
		},
		{
			name: "other secret",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte("another-secret-that-is-32-chars-long!!"), baseClaims())
			},
			validator: issuer,
			wantErr:   jwt.ErrTokenSignatureInvalid,
		},
		{
			name: "other issuer",
			token: func(t *testing.T) string {
				c := baseClaims()
				c.Issuer = "someone-else"
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
			validator: issuer,
			wantErr:   jwt.ErrTokenInvalidIssuer,
		},
		{
			name: "hs512 not accepted",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS512, []byte(testSecret), baseClaims())
			},
			validator: issuer,
			wantErr:   ErrInvalidToken,
		},
		{
			name: "missing expiry",
			token: func(t *testing.T) string {
				c := baseClaims()
				c.ExpiresAt = nil
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
			validator: issuer,
			wantErr:   ErrInvalidToken,
		},
		{
			name: "unknown role",
			token: func(t *testing.T) string {
				c := baseClaims()
				c.Role = "superuser"
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
			validator: issuer,
			wantErr:   ErrInvalidToken,
		},
		{
			name: "no subject",
			token: func(t *testing.T) string {
				c := baseClaims()
				c.Subject = ""
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
			validator: issuer,
			wantErr:   ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			actor, err := tt.validator.ValidateAccessToken(tt.token(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, actor.ID)
		})
	}
}

func TestValidateAccessToken_WithinSkew(t *testing.T) {
	t.Parallel()

	issued := time.Date(2025, time.October, 2, 9, 30, 0, 0, time.UTC)
	tok, err := newTestManager(issued).Issue(domain.Actor{ID: "ana"})
	require.NoError(t, err)

	late := newTestManager(issued.Add(15*time.Minute + clockSkew/2))
	actor, err := late.ValidateAccessToken(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "ana", actor.ID)
}

func TestRoleOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, RoleOperator, RoleOf(domain.Actor{ID: "ana"}))
	assert.Equal(t, RoleAdmin, RoleOf(domain.Actor{ID: "rosa", Admin: true}))
}
