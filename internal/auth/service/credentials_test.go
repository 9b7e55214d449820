package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sellerhub/authcore/internal/auth/domain"
	"github.com/sellerhub/authcore/pkg/cryptox"
)

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	newService := func(t *testing.T, opts CredentialOptions) (*CredentialService, *fakeUsers) {
		users := newFakeUsers()
		return NewCredentialService(users, opts), users
	}

	t.Run("valid credentials return sanitized user", func(t *testing.T) {
		t.Parallel()
		svc, users := newService(t, CredentialOptions{})
		u := newTestUser(t, "alice@example.com", "hunter2!", "user", domain.StatusActive)
		users.add(u)

		got, err := svc.Authenticate(context.Background(), "alice@example.com", "hunter2!")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.Empty(t, got.PasswordHash, "hash must not leave the credential path")
	})

	t.Run("email is case insensitive and trimmed", func(t *testing.T) {
		t.Parallel()
		svc, users := newService(t, CredentialOptions{})
		users.add(newTestUser(t, "bob@example.com", "secret-pw", "user", domain.StatusActive))

		_, err := svc.Authenticate(context.Background(), "  Bob@Example.COM ", "secret-pw")
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		svc, users := newService(t, CredentialOptions{})
		users.add(newTestUser(t, "carol@example.com", "right-pw", "user", domain.StatusActive))

		_, err := svc.Authenticate(context.Background(), "carol@example.com", "wrong-pw")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, CredentialOptions{})

		_, err := svc.Authenticate(context.Background(), "ghost@example.com", "whatever")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("repository failure is unauthorized, not internal", func(t *testing.T) {
		t.Parallel()
		svc, users := newService(t, CredentialOptions{})
		users.findByEmailErr = errors.New("connection refused")

		_, err := svc.Authenticate(context.Background(), "any@example.com", "pw")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("status matrix", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			status  string
			wantErr error
		}{
			{domain.StatusActive, nil},
			{domain.StatusInactive, ErrUnauthorized},
			{domain.StatusSuspended, ErrForbidden},
			{domain.StatusBanned, ErrForbidden},
			{"archived", ErrUnauthorized},
		}

		for _, tc := range cases {
			tc := tc
			t.Run(tc.status, func(t *testing.T) {
				t.Parallel()
				svc, users := newService(t, CredentialOptions{})
				email := tc.status + "@example.com"
				users.add(newTestUser(t, email, "status-pw", "user", tc.status))

				_, err := svc.Authenticate(context.Background(), email, "status-pw")
				if tc.wantErr == nil {
					require.NoError(t, err)
				} else {
					require.ErrorIs(t, err, tc.wantErr)
				}
			})
		}
	})

	t.Run("email verification flag", func(t *testing.T) {
		t.Parallel()
		svc, users := newService(t, CredentialOptions{EmailVerificationRequired: true})
		u := newTestUser(t, "dave@example.com", "dave-pw", "user", domain.StatusActive)
		u.EmailVerified = false
		users.add(u)

		_, err := svc.Authenticate(context.Background(), "dave@example.com", "dave-pw")
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("terms acceptance flag", func(t *testing.T) {
		t.Parallel()
		svc, users := newService(t, CredentialOptions{TermsAcceptanceRequired: true})
		u := newTestUser(t, "erin@example.com", "erin-pw", "user", domain.StatusActive)
		u.TermsAccepted = false
		users.add(u)

		_, err := svc.Authenticate(context.Background(), "erin@example.com", "erin-pw")
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("throttle caps attempts per email", func(t *testing.T) {
		t.Parallel()
		svc, users := newService(t, CredentialOptions{
			Throttle: ThrottleConfig{AttemptsPerWindow: 3, Window: time.Hour, Burst: 3},
		})
		users.add(newTestUser(t, "frank@example.com", "frank-pw", "user", domain.StatusActive))
		users.add(newTestUser(t, "grace@example.com", "grace-pw", "user", domain.StatusActive))

		for i := 0; i < 3; i++ {
			_, err := svc.Authenticate(context.Background(), "frank@example.com", "bad-guess")
			require.ErrorIs(t, err, ErrUnauthorized)
		}

		// Fourth attempt is throttled even with the right password.
		_, err := svc.Authenticate(context.Background(), "frank@example.com", "frank-pw")
		require.ErrorIs(t, err, ErrUnauthorized)

		// Other accounts are unaffected.
		_, err = svc.Authenticate(context.Background(), "grace@example.com", "grace-pw")
		require.NoError(t, err)
	})
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	t.Run("rotates the stored hash", func(t *testing.T) {
		t.Parallel()
		users := newFakeUsers()
		svc := NewCredentialService(users, CredentialOptions{})
		u := newTestUser(t, "heidi@example.com", "old-pw", "user", domain.StatusActive)
		users.add(u)

		require.NoError(t, svc.ChangePassword(context.Background(), u.ID, "old-pw", "new-pw"))

		stored, err := users.FindByID(context.Background(), u.ID)
		require.NoError(t, err)
		require.True(t, cryptox.VerifyPassword("new-pw", stored.PasswordHash))
		require.False(t, cryptox.VerifyPassword("old-pw", stored.PasswordHash))
	})

	t.Run("wrong current password", func(t *testing.T) {
		t.Parallel()
		users := newFakeUsers()
		svc := NewCredentialService(users, CredentialOptions{})
		u := newTestUser(t, "ivan@example.com", "real-pw", "user", domain.StatusActive)
		users.add(u)

		err := svc.ChangePassword(context.Background(), u.ID, "wrong-pw", "new-pw")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		svc := NewCredentialService(newFakeUsers(), CredentialOptions{})

		err := svc.ChangePassword(context.Background(), "missing-id", "a", "b")
		require.ErrorIs(t, err, ErrNotFound)
	})
}
