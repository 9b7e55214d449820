package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sellerhub/authcore/internal/auth/domain"
	"github.com/sellerhub/authcore/pkg/cryptox"
	"github.com/sellerhub/authcore/pkg/idx"
	"github.com/sellerhub/authcore/pkg/jwtx"
)

// fakeUsers is an in-memory UserRepository for tests.
type fakeUsers struct {
	mu      sync.Mutex
	byID    map[string]domain.User
	byEmail map[string]string

	findByEmailErr error
	findByIDErr    error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (f *fakeUsers) add(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u.ID
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findByEmailErr != nil {
		return domain.User{}, f.findByEmailErr
	}
	id, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return f.byID[id], nil
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findByIDErr != nil {
		return domain.User{}, f.findByIDErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	f.byID[id] = u
	return nil
}

// newTestUser hashes the password for real so the credential path is
// exercised end to end.
func newTestUser(t *testing.T, email, password, role, status string) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	return domain.User{
		ID:            idx.New().String(),
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		Status:        status,
		EmailVerified: true,
		TermsAccepted: true,
	}
}

func newTestKeyring(t *testing.T, secret string) *jwtx.Keyring {
	t.Helper()

	ring, err := jwtx.NewKeyring([]byte(secret))
	require.NoError(t, err)
	return ring
}
