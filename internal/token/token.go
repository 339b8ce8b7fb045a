package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"memorymount/entity"
)

// Claims carries the user identity inside a signed bearer token.
type Claims struct {
	jwt.RegisteredClaims
	UserId string `json:"user_id"`
	Email  string `json:"email"`
}

// Manager signs and verifies bearer tokens with a shared HS256 secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func New(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (m *Manager) Issue(userId, email string) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserId: userId,
		Email:  email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify parses a token string and returns its claims. Expiry is
// reported as entity.ErrTokenExpired; every other parse or signature
// failure as entity.ErrTokenInvalid.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, entity.ErrTokenInvalid
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, entity.ErrTokenExpired
		}
		return nil, entity.ErrTokenInvalid
	}
	if !parsed.Valid {
		return nil, entity.ErrTokenInvalid
	}
	return claims, nil
}
