// Package sqlite implements the refresh token store on an embedded SQLite
// database. Suitable for single-host deployments where the store must
// survive restarts; horizontally scaled deployments should use the postgres
// driver instead.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/sellerhub/authcore/internal/auth/domain"
	"github.com/sellerhub/authcore/internal/auth/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ store.RefreshTokens = (*Store)(nil)

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", normalizeDSN(dsn))
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// normalizeDSN appends the session pragmas every connection needs: WAL so
// readers and writers do not block each other, and a busy timeout so
// concurrent writers wait instead of failing fast with SQLITE_BUSY.
// database/sql opens pooled connections lazily, so the pragmas must ride the
// DSN; an Exec would configure only the one connection it happens to run on.
func normalizeDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Insert(ctx context.Context, rec domain.RefreshToken) error {
	// INSERT OR IGNORE keeps duplicate detection driver-agnostic: zero rows
	// affected means the token ID already exists.
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO refresh_tokens (token_id, subject, issued_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		rec.TokenID, rec.Subject, rec.IssuedAt.Unix(), rec.ExpiresAt.Unix(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (s *Store) Lookup(ctx context.Context, tokenID string) (domain.RefreshToken, error) {
	var (
		rec       domain.RefreshToken
		issuedAt  int64
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token_id, subject, issued_at, expires_at
		 FROM refresh_tokens WHERE token_id = ? AND expires_at > ?`,
		tokenID, time.Now().Unix(),
	).Scan(&rec.TokenID, &rec.Subject, &issuedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	if err != nil {
		return domain.RefreshToken{}, err
	}
	rec.IssuedAt = time.Unix(issuedAt, 0).UTC()
	rec.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, tokenID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_id = ?`, tokenID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteBySubject runs as a single statement, which SQLite executes
// atomically: no insert for the subject can interleave with the sweep.
func (s *Store) DeleteBySubject(ctx context.Context, subject string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE subject = ?`, subject)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) Rotate(ctx context.Context, oldTokenID string, rec domain.RefreshToken) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_id = ?`, oldTokenID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	res, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO refresh_tokens (token_id, subject, issued_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		rec.TokenID, rec.Subject, rec.IssuedAt.Unix(), rec.ExpiresAt.Unix(),
	)
	if err != nil {
		return err
	}
	n, err = res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrAlreadyExists
	}

	return tx.Commit()
}

func (s *Store) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
