// Package memory provides a mutex-guarded in-process refresh token store.
// It backs tests and single-process deployments; multi-process deployments
// must use a shared driver (sqlite on one host, postgres across hosts) so
// restarts and horizontal scaling do not silently invalidate live sessions.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sellerhub/authcore/internal/auth/domain"
	"github.com/sellerhub/authcore/internal/auth/store"
)

type Store struct {
	mu        sync.Mutex
	byID      map[string]domain.RefreshToken
	bySubject map[string]map[string]struct{}

	now func() time.Time
}

var _ store.RefreshTokens = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		byID:      make(map[string]domain.RefreshToken),
		bySubject: make(map[string]map[string]struct{}),
		now:       time.Now,
	}
}

func (s *Store) Insert(ctx context.Context, rec domain.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[rec.TokenID]; ok {
		return store.ErrAlreadyExists
	}
	s.insertLocked(rec)
	return nil
}

func (s *Store) Lookup(ctx context.Context, tokenID string) (domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[tokenID]
	if !ok || !rec.ExpiresAt.After(s.now()) {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(tokenID), nil
}

// DeleteBySubject sweeps every record for the subject while holding the
// store lock, so no concurrent insert for the same subject can land in the
// middle of the sweep and survive unnoticed.
func (s *Store) DeleteBySubject(ctx context.Context, subject string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.bySubject[subject]
	count := len(ids)
	for id := range ids {
		delete(s.byID, id)
	}
	delete(s.bySubject, subject)
	return count, nil
}

func (s *Store) Rotate(ctx context.Context, oldTokenID string, rec domain.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.deleteLocked(oldTokenID) {
		return store.ErrNotFound
	}
	if _, ok := s.byID[rec.TokenID]; ok {
		return store.ErrAlreadyExists
	}
	s.insertLocked(rec)
	return nil
}

func (s *Store) DeleteExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for id, rec := range s.byID {
		if !rec.ExpiresAt.After(now) {
			s.deleteLocked(id)
			count++
		}
	}
	return count, nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) insertLocked(rec domain.RefreshToken) {
	s.byID[rec.TokenID] = rec
	ids, ok := s.bySubject[rec.Subject]
	if !ok {
		ids = make(map[string]struct{})
		s.bySubject[rec.Subject] = ids
	}
	ids[rec.TokenID] = struct{}{}
}

func (s *Store) deleteLocked(tokenID string) bool {
	rec, ok := s.byID[tokenID]
	if !ok {
		return false
	}
	delete(s.byID, tokenID)
	if ids, ok := s.bySubject[rec.Subject]; ok {
		delete(ids, tokenID)
		if len(ids) == 0 {
			delete(s.bySubject, rec.Subject)
		}
	}
	return true
}
