package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenMissing: no credential was presented at all.
	ErrTokenMissing = errors.New("missing token")
	// ErrTokenInvalid: a credential was presented but failed verification
	// (bad signature, wrong algorithm, or expired).
	ErrTokenInvalid = errors.New("invalid token")
)

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	JTI   string `json:"jti"`
	jwt.RegisteredClaims
}

// Manager mints and verifies signed session claims. Tokens are stateless:
// nothing is stored server-side at issuance, and re-issuing for the same
// email invalidates nothing. Revocation before expiry goes through the
// Denylist instead.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (m *Manager) Issue(email, role string) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		Email: email,
		Role:  role,
		JTI:   uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Subject:   email,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})

	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Email == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}
