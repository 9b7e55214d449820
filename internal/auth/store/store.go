// Package store defines the refresh token store contract. The engine owns
// refresh token records exclusively through this interface; concrete drivers
// (sqlite, postgres, memory) implement it.
package store

import (
	"context"
	"errors"

	"github.com/sellerhub/authcore/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// RefreshTokens tracks live refresh tokens keyed by token ID.
//
// Concurrency contract: operations on distinct token IDs never block each
// other. DeleteBySubject is linearizable against concurrent Insert for the
// same subject — an insert that completes during a DeleteBySubject call is
// either counted and removed by it or ordered after it, and an insert that
// starts strictly after DeleteBySubject returns is never removed by it.
// Rotate fails with ErrNotFound when the old record is already gone, so a
// rotation racing a bulk revocation cannot resurrect a session.
type RefreshTokens interface {
	// Insert stores a new record. Duplicate token IDs return ErrAlreadyExists.
	Insert(ctx context.Context, rec domain.RefreshToken) error

	// Lookup returns the record for the token ID. Missing, revoked, consumed
	// and expired records are all ErrNotFound; callers must not be able to
	// tell these apart.
	Lookup(ctx context.Context, tokenID string) (domain.RefreshToken, error)

	// Delete removes a record and reports whether one existed.
	Delete(ctx context.Context, tokenID string) (bool, error)

	// DeleteBySubject removes every record belonging to the subject and
	// returns the count deleted.
	DeleteBySubject(ctx context.Context, subject string) (int, error)

	// Rotate atomically deletes the consumed record and inserts its
	// replacement. ErrNotFound if the old record is gone.
	Rotate(ctx context.Context, oldTokenID string, rec domain.RefreshToken) error

	// DeleteExpired removes records past their expiry (housekeeping).
	DeleteExpired(ctx context.Context) (int, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
