package domain

import "time"

// TokenPair is what the login and refresh operations return: the signed
// access token, the signed refresh token, and the access token lifetime in
// whole seconds.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// RefreshToken is the server-side record of a live refresh token, keyed by
// the cryptographically random TokenID carried in the token's jti claim.
// Records are created at issuance and deleted on revocation or rotation;
// they are never updated in place.
type RefreshToken struct {
	TokenID   string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
