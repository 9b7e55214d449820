package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sellerhub/authcore/internal/auth/domain"
	"github.com/sellerhub/authcore/internal/auth/store"
	"github.com/sellerhub/authcore/pkg/jwtx"
	"github.com/sellerhub/authcore/pkg/slogx"
)

// Options wire a Service. Zero-valued TTLs fall back to the jwtx defaults,
// and a nil Hierarchy falls back to the built-in one.
type Options struct {
	AccessKeys  *jwtx.Keyring
	RefreshKeys *jwtx.Keyring
	Users       UserRepository
	Store       store.RefreshTokens

	Issuer       string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	BaselineRole string

	Credentials CredentialOptions
	Authorizer  AuthorizerOptions
}

// Service is the single entry point for the authentication and authorization
// flows: login, refresh, logout, token verification and access decisions.
type Service struct {
	creds      *CredentialService
	tokens     *TokenService
	verifier   *Verifier
	authorizer *Authorizer
}

func New(opts Options) *Service {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}

	creds := NewCredentialService(opts.Users, opts.Credentials)
	return &Service{
		creds: creds,
		tokens: &TokenService{
			AccessKeys:  opts.AccessKeys,
			RefreshKeys: opts.RefreshKeys,
			Store:       opts.Store,
			Users:       opts.Users,
			Creds:       creds,
			Issuer:      opts.Issuer,
			AccessTTL:   opts.AccessTTL,
			RefreshTTL:  opts.RefreshTTL,
		},
		verifier: &Verifier{
			AccessKeys:   opts.AccessKeys,
			RefreshKeys:  opts.RefreshKeys,
			BaselineRole: opts.BaselineRole,
		},
		authorizer: NewAuthorizer(opts.Authorizer),
	}
}

// Login authenticates the email/password pair and, on success, issues a
// fresh token pair.
func (s *Service) Login(ctx context.Context, email, password string) (domain.TokenPair, error) {
	u, err := s.creds.Authenticate(ctx, email, password)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return s.tokens.Issue(ctx, u)
}

// Refresh rotates a live refresh token into a new pair. The consumed token is
// revoked in the same step.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	return s.tokens.Refresh(ctx, refreshToken)
}

// Logout revokes the single session behind the presented refresh token and
// reports whether a live session was actually ended.
func (s *Service) Logout(ctx context.Context, refreshToken string) bool {
	return s.tokens.RevokeOne(ctx, refreshToken)
}

// LogoutAll revokes every outstanding refresh token for the subject and
// returns how many sessions were ended.
func (s *Service) LogoutAll(ctx context.Context, subjectID string) (int, error) {
	return s.tokens.RevokeAllForSubject(ctx, subjectID)
}

// Verify validates an access token and returns the caller's Principal.
func (s *Service) Verify(token string) (domain.Principal, error) {
	return s.verifier.VerifyAccess(token)
}

// Authorize decides whether the principal may use a route requiring the
// given roles.
func (s *Service) Authorize(ctx context.Context, principal *domain.Principal, required []string) error {
	return s.authorizer.Authorize(ctx, principal, required)
}

// ChangePassword rotates the user's password and ends every outstanding
// session, forcing all devices to re-authenticate with the new credential.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if err := s.creds.ChangePassword(ctx, userID, current, next); err != nil {
		return err
	}
	n, err := s.tokens.RevokeAllForSubject(ctx, userID)
	if err != nil {
		slogx.FromContext(ctx).Error("session revocation after password change failed",
			slog.String("user_id", userID),
			slog.Any("err", err),
		)
		return err
	}
	slogx.FromContext(ctx).Info("password changed",
		slog.String("user_id", userID),
		slog.Int("sessions_revoked", n),
	)
	return nil
}

// Sweep removes expired refresh token records. Intended to run periodically.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	return s.tokens.Sweep(ctx)
}
