package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type claim values.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Default token TTLs. Short-lived access tokens limit the blast radius of a
// leaked bearer credential; refresh tokens trade that off for convenience.
// Both are configuration values, not constants of the wire format.
const (
	DefaultAccessTokenTTL  = time.Hour
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims are the token claims used across the engine. Access tokens carry
// the principal's identity claims; refresh tokens carry the store key in the
// jti claim plus a "type" discriminator.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the authenticated user, access tokens only.
	Email string `json:"email,omitempty"`

	// Role name held by the user at issuance time.
	Role string `json:"role,omitempty"`

	// TokenType discriminates access from refresh tokens. Tokens minted
	// here always carry it; verification tolerates tokens that omit it.
	TokenType string `json:"type,omitempty"`
}

// NewAccessClaims builds the claims for a short-lived access token.
func NewAccessClaims(subject, email, role, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:     email,
		Role:      role,
		TokenType: TypeAccess,
	}
}

// NewRefreshClaims builds the claims for a refresh token. tokenID becomes the
// jti claim and is the key of the server-side refresh token record.
func NewRefreshClaims(subject, tokenID, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        tokenID,
		},
		TokenType: TypeRefresh,
	}
}
