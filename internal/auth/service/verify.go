package service

import (
	"net/mail"
	"time"

	"github.com/sellerhub/authcore/internal/auth/domain"
	"github.com/sellerhub/authcore/pkg/jwtx"
)

// Verifier validates inbound bearer tokens and normalizes their claims into
// a Principal.
type Verifier struct {
	AccessKeys   *jwtx.Keyring
	RefreshKeys  *jwtx.Keyring
	BaselineRole string
}

// VerifyAccess validates an access token and returns the normalized
// Principal. Every rejection surfaces as ErrUnauthorized; the cause is not
// distinguishable by the caller.
func (v *Verifier) VerifyAccess(token string) (domain.Principal, error) {
	claims, err := v.AccessKeys.Verify(token)
	if err != nil {
		return domain.Principal{}, unauthorized("invalid token")
	}

	if claims.Subject == "" {
		return domain.Principal{}, unauthorized("invalid token")
	}
	if claims.TokenType != "" && claims.TokenType != jwtx.TypeAccess && claims.TokenType != jwtx.TypeRefresh {
		return domain.Principal{}, unauthorized("invalid token")
	}
	if claims.Email != "" {
		if _, err := mail.ParseAddress(claims.Email); err != nil {
			return domain.Principal{}, unauthorized("invalid token")
		}
	}

	role := claims.Role
	if role == "" {
		role = v.BaselineRole
	}

	var issuedAt, expiresAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	p := domain.NewPrincipal(
		claims.Subject,
		claims.Email,
		role,
		issuedAt,
		expiresAt,
		claims.Issuer,
		claims.Audience,
	)
	return p, nil
}

// VerifyRefresh validates a refresh token's signature and shape, passing the
// claims through for the refresh flow.
func (v *Verifier) VerifyRefresh(token string) (jwtx.Claims, error) {
	return verifyRefreshClaims(v.RefreshKeys, token)
}

// verifyRefreshClaims enforces the refresh token shape: valid signature and
// expiry, a subject, a non-empty token ID, and the refresh type marker. A
// payload lacking a token ID is rejected regardless of store contents.
func verifyRefreshClaims(ring *jwtx.Keyring, token string) (jwtx.Claims, error) {
	claims, err := ring.Verify(token)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if claims.Subject == "" || claims.ID == "" || claims.TokenType != jwtx.TypeRefresh {
		return jwtx.Claims{}, unauthorized("invalid token")
	}
	return claims, nil
}
