package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sellerhub/authcore/internal/auth/domain"
	"github.com/sellerhub/authcore/pkg/cryptox"
	"github.com/sellerhub/authcore/pkg/slogx"
)

// ThrottleConfig bounds login attempts per email to slow brute forcing.
// A non-positive AttemptsPerWindow disables the throttle.
type ThrottleConfig struct {
	AttemptsPerWindow int
	Window            time.Duration
	Burst             int
}

// DefaultLoginThrottle allows 5 attempts per minute with the full window
// available as a burst.
var DefaultLoginThrottle = ThrottleConfig{
	AttemptsPerWindow: 5,
	Window:            time.Minute,
	Burst:             5,
}

// CredentialOptions configure the acceptance checks beyond password
// verification.
type CredentialOptions struct {
	EmailVerificationRequired bool
	TermsAcceptanceRequired   bool
	Throttle                  ThrottleConfig
}

// CredentialService authenticates email/password pairs against the user
// repository and enforces account status rules.
type CredentialService struct {
	users UserRepository
	opts  CredentialOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewCredentialService(users UserRepository, opts CredentialOptions) *CredentialService {
	return &CredentialService{
		users:    users,
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Authenticate verifies the email/password pair and the account's standing.
// On success the returned user has its password hash stripped.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)
	email = strings.TrimSpace(strings.ToLower(email))

	// Throttle before the KDF runs so hammering a single account cannot
	// burn CPU either.
	if !s.allowAttempt(email) {
		l.Warn("login throttled", slog.String("email", email))
		return domain.User{}, unauthorized("too many attempts")
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		l.Error("user lookup failed", slog.Any("err", err))
		return domain.User{}, ErrUnauthorized
	}

	if !cryptox.VerifyPassword(password, u.PasswordHash) {
		l.Info("password verification failed", slog.String("user_id", u.ID))
		return domain.User{}, unauthorized("invalid credentials")
	}

	if err := s.validateStanding(u); err != nil {
		l.Info("account standing rejected",
			slog.String("user_id", u.ID),
			slog.String("status", u.Status),
		)
		return domain.User{}, err
	}

	return u.Sanitized(), nil
}

// ChangePassword verifies the current password and installs a new hash.
// Revocation of outstanding refresh tokens is the facade's responsibility.
func (s *CredentialService) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrUnauthorized
	}

	if !cryptox.VerifyPassword(current, u.PasswordHash) {
		return unauthorized("invalid credentials")
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// validateStanding applies the status rules plus any configured acceptance
// flags. Called at login and again on every refresh, because cached token
// claims must never decide authorization-affecting account state.
func (s *CredentialService) validateStanding(u domain.User) error {
	switch u.Status {
	case domain.StatusActive:
		// continue
	case domain.StatusInactive:
		return unauthorized("account inactive")
	case domain.StatusSuspended, domain.StatusBanned:
		return forbidden("account " + u.Status)
	default:
		return unauthorized("unrecognized account status")
	}

	if s.opts.EmailVerificationRequired && !u.EmailVerified {
		return forbidden("email verification required")
	}
	if s.opts.TermsAcceptanceRequired && !u.TermsAccepted {
		return forbidden("terms acceptance required")
	}
	return nil
}

func (s *CredentialService) allowAttempt(email string) bool {
	cfg := s.opts.Throttle
	if cfg.AttemptsPerWindow <= 0 || cfg.Window <= 0 {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters[email]
	if !ok {
		burst := cfg.Burst
		if burst <= 0 {
			burst = cfg.AttemptsPerWindow
		}
		limiter = rate.NewLimiter(rate.Every(cfg.Window/time.Duration(cfg.AttemptsPerWindow)), burst)
		s.limiters[email] = limiter
	}
	return limiter.Allow()
}
