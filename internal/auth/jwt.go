// Package auth issues and validates the bearer tokens operators present to
// the API. The token subject becomes the audit actor.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// Roles carried in the role claim.
const (
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

var (
	// ErrEmptyToken is returned when no token string was presented.
	ErrEmptyToken = errors.New("token is empty")
	// ErrInvalidToken wraps every other validation failure.
	ErrInvalidToken = errors.New("invalid token")
)

// clockSkew is tolerated on exp, nbf and iat.
const clockSkew = 30 * time.Second

// RoleOf maps an actor to the role claim it is issued with.
func RoleOf(actor domain.Actor) string {
	if actor.Admin {
		return RoleAdmin
	}
	return RoleOperator
}

// Token is a signed access token and the claims it was issued with.
type Token struct {
	Value     string
	Subject   string
	Role      string
	ExpiresAt time.Time
}

type roleClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// JWTManager signs and checks HS256 access tokens for one issuer.
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager creates a new JWT manager. Config validation guarantees a
// secret of at least 32 bytes.
func NewJWTManager(secret, issuer string, ttl time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token whose subject is the actor ID.
func (m *JWTManager) Issue(actor domain.Actor) (Token, error) {
	subject := strings.TrimSpace(actor.ID)
	if subject == "" {
		return Token{}, domain.NewValidationError("actor", "required")
	}

	now := m.now().UTC()
	out := Token{
		Subject:   subject,
		Role:      RoleOf(actor),
		ExpiresAt: now.Add(m.ttl).Truncate(time.Second),
	}

	claims := roleClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   out.Subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(out.ExpiresAt),
		},
		Role: out.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	out.Value = signed
	return out, nil
}

// GenerateAccessToken is Issue returning only the signed string.
func (m *JWTManager) GenerateAccessToken(actor domain.Actor) (string, error) {
	tok, err := m.Issue(actor)
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

// ValidateAccessToken checks signature, issuer and expiry and returns the
// actor the token was issued to.
func (m *JWTManager) ValidateAccessToken(raw string) (domain.Actor, error) {
	if raw == "" {
		return domain.Actor{}, ErrEmptyToken
	}

	var claims roleClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return domain.Actor{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	switch claims.Role {
	case RoleOperator, RoleAdmin:
	default:
		return domain.Actor{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	return domain.Actor{ID: claims.Subject, Admin: claims.Role == RoleAdmin}, nil
}
