package service

import (
	"context"

	"github.com/sellerhub/authcore/internal/auth/domain"
)

// UserRepository is the engine's view of account persistence. Business record
// storage lives outside this module; the engine only reads identities and
// writes password hashes.
type UserRepository interface {
	// FindByEmail returns the user for the email, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (domain.User, error)

	// FindByID returns the user for the id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (domain.User, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id, hash string) error
}
