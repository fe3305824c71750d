package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/versachat/versachat-api/internal/domain"
)

// Intent restricts which flow may accept a token. A session token carries no
// intent; single-purpose tokens carry a non-empty one and are rejected
// everywhere else even when cryptographically valid.
const (
	IntentSession       = ""
	IntentPasswordReset = "password-reset"
)

const (
	DefaultSessionTTL = 7 * 24 * time.Hour
	ResetTTL          = time.Hour
)

var (
	ErrMalformed    = errors.New("token malformed")
	ErrBadSignature = errors.New("token signature invalid")
	ErrExpired      = errors.New("token expired")
	ErrWrongIntent  = errors.New("token intent mismatch")
)

// Claims is the identity claim set embedded in every issued token.
type Claims struct {
	Email      string  `json:"email"`
	Verified   bool    `json:"verified"`
	ExternalID *string `json:"external_id,omitempty"`
	Intent     string  `json:"intent,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the token subject. Returns uuid.Nil for a subject that is
// not a UUID, which verification treats as malformed.
func (c *Claims) UserID() uuid.UUID {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// Manager signs and verifies HS256 tokens. Tokens are stateless: there is no
// revocation list, and sign-out is client-side disposal.
type Manager struct {
	secret   []byte
	issuer   string
	audience string
}

func NewManager(secret, issuer, audience string) *Manager {
	return &Manager{secret: []byte(secret), issuer: issuer, audience: audience}
}

// Issue signs a token for user expiring after ttl. intent must be
// IntentSession for login/session tokens.
func (m *Manager) Issue(user *domain.User, ttl time.Duration, intent string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Email:      user.Email,
		Verified:   user.Verified,
		ExternalID: user.ExternalID,
		Intent:     intent,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify validates signature, issuer, audience and expiry, then checks that
// the embedded intent matches expectedIntent.
func (m *Manager) Verify(tokenString, expectedIntent string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadSignature
		}
		return m.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.UserID() == uuid.Nil {
		return nil, ErrMalformed
	}
	if claims.Intent != expectedIntent {
		return nil, ErrWrongIntent
	}
	return claims, nil
}

// ExtractBearer pulls the token out of an Authorization header. Only the
// `Bearer <token>` form is accepted; anything else means unauthenticated,
// not an error.
func ExtractBearer(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	if tok == "" {
		return "", false
	}
	return tok, true
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	default:
		// Covers malformed tokens and issuer/audience mismatches.
		return ErrMalformed
	}
}
