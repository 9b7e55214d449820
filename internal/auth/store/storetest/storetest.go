// Package storetest runs the refresh token store contract against any
// driver. Each driver's test package calls Run with its own constructor.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sellerhub/authcore/internal/auth/domain"
	"github.com/sellerhub/authcore/internal/auth/store"
)

// Factory builds a fresh, empty store for one test.
type Factory func(t *testing.T) store.RefreshTokens

func record(tokenID, subject string, ttl time.Duration) domain.RefreshToken {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.RefreshToken{
		TokenID:   tokenID,
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// Run exercises the full store contract.
func Run(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		s := factory(t)
		require.NoError(t, s.Ping(ctx))
	})

	t.Run("insert and lookup", func(t *testing.T) {
		s := factory(t)

		rec := record("tok-1", "subj-1", time.Hour)
		require.NoError(t, s.Insert(ctx, rec))

		got, err := s.Lookup(ctx, "tok-1")
		require.NoError(t, err)
		require.Equal(t, rec.TokenID, got.TokenID)
		require.Equal(t, rec.Subject, got.Subject)
	})

	t.Run("duplicate insert rejected", func(t *testing.T) {
		s := factory(t)

		require.NoError(t, s.Insert(ctx, record("tok-1", "subj-1", time.Hour)))
		err := s.Insert(ctx, record("tok-1", "subj-2", time.Hour))
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("lookup miss", func(t *testing.T) {
		s := factory(t)

		_, err := s.Lookup(ctx, "never-issued")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("expired record is absent", func(t *testing.T) {
		s := factory(t)

		require.NoError(t, s.Insert(ctx, record("tok-old", "subj-1", -time.Minute)))
		_, err := s.Lookup(ctx, "tok-old")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete reports prior existence", func(t *testing.T) {
		s := factory(t)

		require.NoError(t, s.Insert(ctx, record("tok-1", "subj-1", time.Hour)))

		deleted, err := s.Delete(ctx, "tok-1")
		require.NoError(t, err)
		require.True(t, deleted)

		deleted, err = s.Delete(ctx, "tok-1")
		require.NoError(t, err)
		require.False(t, deleted, "second delete of the same token must be a no-op")
	})

	t.Run("delete by subject", func(t *testing.T) {
		for _, count := range []int{0, 1, 5} {
			t.Run(fmt.Sprintf("count %d", count), func(t *testing.T) {
				s := factory(t)

				for i := 0; i < count; i++ {
					rec := record(fmt.Sprintf("tok-%d", i), "victim", time.Hour)
					require.NoError(t, s.Insert(ctx, rec))
				}
				require.NoError(t, s.Insert(ctx, record("tok-other", "bystander", time.Hour)))

				n, err := s.DeleteBySubject(ctx, "victim")
				require.NoError(t, err)
				require.Equal(t, count, n)

				for i := 0; i < count; i++ {
					_, err := s.Lookup(ctx, fmt.Sprintf("tok-%d", i))
					require.ErrorIs(t, err, store.ErrNotFound)
				}

				_, err = s.Lookup(ctx, "tok-other")
				require.NoError(t, err, "other subjects' tokens must survive")
			})
		}
	})

	t.Run("rotate replaces the consumed record", func(t *testing.T) {
		s := factory(t)

		require.NoError(t, s.Insert(ctx, record("tok-old", "subj-1", time.Hour)))
		require.NoError(t, s.Rotate(ctx, "tok-old", record("tok-new", "subj-1", time.Hour)))

		_, err := s.Lookup(ctx, "tok-old")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Lookup(ctx, "tok-new")
		require.NoError(t, err)
	})

	t.Run("rotate of missing record fails without inserting", func(t *testing.T) {
		s := factory(t)

		err := s.Rotate(ctx, "gone", record("tok-new", "subj-1", time.Hour))
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Lookup(ctx, "tok-new")
		require.ErrorIs(t, err, store.ErrNotFound, "a failed rotation must not resurrect a session")
	})

	t.Run("delete expired housekeeping", func(t *testing.T) {
		s := factory(t)

		require.NoError(t, s.Insert(ctx, record("tok-live", "subj-1", time.Hour)))
		require.NoError(t, s.Insert(ctx, record("tok-dead", "subj-1", -time.Minute)))

		n, err := s.DeleteExpired(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		_, err = s.Lookup(ctx, "tok-live")
		require.NoError(t, err)
	})

	t.Run("concurrent inserts on distinct keys", func(t *testing.T) {
		s := factory(t)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec := record(fmt.Sprintf("tok-%d", i), fmt.Sprintf("subj-%d", i%4), time.Hour)
				require.NoError(t, s.Insert(ctx, rec))
			}()
		}
		wg.Wait()

		for i := 0; i < 20; i++ {
			_, err := s.Lookup(ctx, fmt.Sprintf("tok-%d", i))
			require.NoError(t, err)
		}
	})

	t.Run("delete by subject races concurrent issuance", func(t *testing.T) {
		s := factory(t)

		var wg sync.WaitGroup
		inserted := make([]string, 40)
		for i := 0; i < 40; i++ {
			inserted[i] = fmt.Sprintf("tok-%d", i)
		}

		wg.Add(2)
		go func() {
			defer wg.Done()
			for _, id := range inserted {
				_ = s.Insert(ctx, record(id, "racer", time.Hour))
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_, err := s.DeleteBySubject(ctx, "racer")
				require.NoError(t, err)
			}
		}()
		wg.Wait()

		// After the race settles, one final sweep must leave nothing behind.
		_, err := s.DeleteBySubject(ctx, "racer")
		require.NoError(t, err)
		for _, id := range inserted {
			_, err := s.Lookup(ctx, id)
			require.ErrorIs(t, err, store.ErrNotFound)
		}
	})
}
