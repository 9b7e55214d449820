package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sellerhub/authcore/internal/auth/domain"
	"github.com/sellerhub/authcore/internal/auth/store"
	"github.com/sellerhub/authcore/pkg/cryptox"
	"github.com/sellerhub/authcore/pkg/jwtx"
	"github.com/sellerhub/authcore/pkg/slogx"
)

// refreshRejected is the single externally visible refresh failure. Expired,
// malformed, revoked and never-issued tokens must be indistinguishable to the
// caller so the store cannot be used as an oracle.
const refreshRejected = "invalid or expired refresh token"

// TokenService mints and rotates access/refresh token pairs.
type TokenService struct {
	AccessKeys  *jwtx.Keyring
	RefreshKeys *jwtx.Keyring
	Store       store.RefreshTokens
	Users       UserRepository
	Creds       *CredentialService
	Issuer      string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
}

// Issue mints a signed access/refresh pair for the user and records exactly
// one refresh token entry keyed by a fresh 256-bit token ID.
func (s *TokenService) Issue(ctx context.Context, u domain.User) (domain.TokenPair, error) {
	now := time.Now().UTC()

	tokenID, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, err
	}

	pair, rec, err := s.sign(u, tokenID, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := s.Store.Insert(ctx, rec); err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}

// Refresh exchanges a live refresh token for a fresh pair. The flow is
// Presented -> SignatureVerified -> LookedUp -> Reissued; any failure
// collapses to one generic unauthorized error.
//
// Rotation revokes the consumed token: the old record is deleted and the new
// one inserted in a single store transaction, so a refresh token works at
// most once.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := verifyRefreshClaims(s.RefreshKeys, refreshToken)
	if err != nil {
		l.Info("refresh rejected: verification failed", slog.Any("err", err))
		return domain.TokenPair{}, unauthorized(refreshRejected)
	}

	rec, err := s.Store.Lookup(ctx, claims.ID)
	if err != nil {
		// Never issued, already revoked, or previously consumed: the caller
		// must not learn which.
		l.Info("refresh rejected: token not live", slog.String("subject", claims.Subject))
		return domain.TokenPair{}, unauthorized(refreshRejected)
	}

	// Re-fetch account state; claims cached in the token never decide
	// authorization-affecting fields.
	u, err := s.Users.FindByID(ctx, rec.Subject)
	if err != nil {
		l.Info("refresh rejected: subject lookup failed", slog.String("subject", rec.Subject))
		return domain.TokenPair{}, unauthorized(refreshRejected)
	}
	if err := s.Creds.validateStanding(u); err != nil {
		l.Info("refresh rejected: account standing",
			slog.String("subject", u.ID),
			slog.String("status", u.Status),
		)
		return domain.TokenPair{}, unauthorized(refreshRejected)
	}

	now := time.Now().UTC()
	newTokenID, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, unauthorized(refreshRejected)
	}

	pair, newRec, err := s.sign(u, newTokenID, now)
	if err != nil {
		return domain.TokenPair{}, unauthorized(refreshRejected)
	}

	if err := s.Store.Rotate(ctx, claims.ID, newRec); err != nil {
		// A concurrent revocation won the race; do not resurrect the session.
		l.Info("refresh rejected: rotation failed", slog.Any("err", err))
		return domain.TokenPair{}, unauthorized(refreshRejected)
	}

	return pair, nil
}

// RevokeOne deletes the refresh token's store record if present and reports
// whether a deletion occurred. Only the signature is required; the record
// may already be gone. Never returns an error to the caller.
func (s *TokenService) RevokeOne(ctx context.Context, refreshToken string) bool {
	l := slogx.FromContext(ctx)

	claims, err := verifyRefreshClaims(s.RefreshKeys, refreshToken)
	if err != nil {
		l.Debug("revoke ignored: verification failed", slog.Any("err", err))
		return false
	}

	deleted, err := s.Store.Delete(ctx, claims.ID)
	if err != nil {
		l.Error("revoke failed", slog.Any("err", err))
		return false
	}
	return deleted
}

// RevokeAllForSubject deletes every live refresh token for the subject and
// returns the count removed.
func (s *TokenService) RevokeAllForSubject(ctx context.Context, subjectID string) (int, error) {
	return s.Store.DeleteBySubject(ctx, subjectID)
}

// Sweep removes expired refresh token records (housekeeping).
func (s *TokenService) Sweep(ctx context.Context) (int, error) {
	return s.Store.DeleteExpired(ctx)
}

func (s *TokenService) sign(u domain.User, tokenID string, now time.Time) (domain.TokenPair, domain.RefreshToken, error) {
	access, err := s.AccessKeys.Sign(jwtx.NewAccessClaims(u.ID, u.Email, u.Role, s.Issuer, s.AccessTTL, now))
	if err != nil {
		return domain.TokenPair{}, domain.RefreshToken{}, err
	}

	refresh, err := s.RefreshKeys.Sign(jwtx.NewRefreshClaims(u.ID, tokenID, s.Issuer, s.RefreshTTL, now))
	if err != nil {
		return domain.TokenPair{}, domain.RefreshToken{}, err
	}

	rec := domain.RefreshToken{
		TokenID:   tokenID,
		Subject:   u.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.RefreshTTL),
	}

	pair := domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}
	return pair, rec, nil
}
