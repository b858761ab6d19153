package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned by Expiry for tokens without an exp claim.
var ErrNoExpiry = errors.New("token has no exp claim")

// AccessClaims are the claims read from access tokens.
type AccessClaims struct {
	UID string `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the uid claim, falling back to sub.
func (c *AccessClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// Inspect decodes token without verifying its signature.
func Inspect(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Expiry returns the exp claim of token.
func Expiry(token string) (time.Time, error) {
	claims, err := Inspect(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// ExpiresWithin reports whether token expires within window of now. Opaque tokens
// and tokens without exp never report true.
func ExpiresWithin(token string, window time.Duration, now time.Time) bool {
	if token == "" || window <= 0 {
		return false
	}
	exp, err := Expiry(token)
	if err != nil {
		return false
	}
	return !exp.After(now.Add(window))
}
