// Package jwtx inspects JWT access tokens on the client side. Tokens are
// parsed without signature verification: the backend is the authority on
// validity, the client only needs claim metadata (expiry, subject) for local
// bookkeeping such as deciding when a refresh is due.
package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT reports a token that is not parseable as a JWT. Opaque bearer
// tokens fall into this category and are not an error for callers that only
// probe for an exp claim.
var ErrNotJWT = errors.New("jwtx: token is not a JWT")

// Claims is the subset of access-token claims the client cares about.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the server-side session identifier, when present.
	SID string `json:"sid,omitempty"`

	// Scopes are the permission scopes granted to the token.
	Scopes []string `json:"scopes,omitempty"`
}

// Inspect parses token without verifying its signature and returns its
// claims. Signature verification is deliberately skipped; see package doc.
func Inspect(token string) (*Claims, error) {
	var claims Claims
	parser := jwt.NewParser()

	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return nil, ErrNotJWT
	}

	return &claims, nil
}

// Expiry returns the exp claim of token, if it is a JWT carrying one.
// The second return is false for opaque tokens or tokens without exp.
func Expiry(token string) (time.Time, bool) {
	claims, err := Inspect(token)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Subject returns the sub claim of token, or "" when absent.
func Subject(token string) string {
	claims, err := Inspect(token)
	if err != nil {
		return ""
	}
	return claims.Subject
}
