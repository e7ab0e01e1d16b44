// Package token issues and validates the signed access and refresh tokens
// the auth API hands out. Tokens are HMAC-signed JWTs with the expiry
// embedded in the claims.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/veleda/ansuz/internal/apperr"
)

// Kind distinguishes the two token roles.
type Kind string

const (
	Access  Kind = "access"
	Refresh Kind = "refresh"
)

// Claims carries the username and token kind alongside the registered
// claims.
type Claims struct {
	Username string `json:"username"`
	Kind     Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// Issue signs a token for username with the given kind and lifetime.
func Issue(username string, kind Kind, ttl time.Duration, secret string) (string, time.Time, error) {
	now := time.Now()
	expiry := now.Add(ttl)
	claims := Claims{
		Username: username,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, expiry, nil
}

// Parse validates a token of the expected kind and returns its claims.
// Expired, forged, and wrong-kind tokens all return apperr.ErrUnauthorized.
func Parse(raw string, kind Kind, secret string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token: parse: %w", apperr.ErrUnauthorized)
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("token: kind %q, want %q: %w", claims.Kind, kind, apperr.ErrUnauthorized)
	}
	if claims.Username == "" {
		return nil, fmt.Errorf("token: missing username: %w", apperr.ErrUnauthorized)
	}
	return claims, nil
}
