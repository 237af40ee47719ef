// Package jwt issues and validates bearer access tokens.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/staffboard/staffboard/internal/domain"
)

// ErrInvalidToken is returned for malformed, mis-signed, or expired tokens.
var ErrInvalidToken = errors.New("invalid token")

// Config holds token signing settings.
type Config struct {
	SecretKey           string
	AccessTokenDuration time.Duration
}

// Authenticator signs and verifies HS256 access tokens. The token carries
// only the user id; role and permissions are loaded fresh per request so
// grants and revocations take effect immediately.
type Authenticator struct {
	config Config
}

// NewAuthenticator creates a token authenticator.
func NewAuthenticator(config Config) *Authenticator {
	return &Authenticator{config: config}
}

type claims struct {
	jwt.RegisteredClaims
}

// GenerateToken issues an access token for the user.
func (a *Authenticator) GenerateToken(user *domain.User) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.config.AccessTokenDuration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString([]byte(a.config.SecretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the token signature and expiry and returns the
// subject user id.
func (a *Authenticator) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(a.config.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	c, ok := token.Claims.(*claims)
	if !ok || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}
