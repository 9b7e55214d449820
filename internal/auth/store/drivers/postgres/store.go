// Package postgres implements the refresh token store on PostgreSQL for
// horizontally scaled deployments: every instance shares one durable keyed
// store, so restarts and scale-out never invalidate or duplicate live
// sessions.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sellerhub/authcore/internal/auth/domain"
	"github.com/sellerhub/authcore/internal/auth/store"
)

type Store struct {
	db *sql.DB
}

var _ store.RefreshTokens = (*Store)(nil)

// Open connects to PostgreSQL via the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing connection, mainly for tests.
func NewStoreWithDB(db *sql.DB) *Store { return &Store{db: db} }

// ApplySchema creates the refresh_tokens table if it does not exist.
func (s *Store) ApplySchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS refresh_tokens (
			token_id   TEXT PRIMARY KEY,
			subject    TEXT NOT NULL,
			issued_at  TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_refresh_tokens_subject ON refresh_tokens (subject);
		CREATE INDEX IF NOT EXISTS idx_refresh_tokens_expires_at ON refresh_tokens (expires_at);
	`)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Insert(ctx context.Context, rec domain.RefreshToken) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (token_id, subject, issued_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (token_id) DO NOTHING`,
		rec.TokenID, rec.Subject, rec.IssuedAt, rec.ExpiresAt,
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
	var rec domain.RefreshToken
	err := s.db.QueryRowContext(ctx,
		`SELECT token_id, subject, issued_at, expires_at
		 FROM refresh_tokens WHERE token_id = $1 AND expires_at > now()`,
		tokenID,
	).Scan(&rec.TokenID, &rec.Subject, &rec.IssuedAt, &rec.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	if err != nil {
		return domain.RefreshToken{}, err
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, tokenID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token_id = $1`, tokenID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteBySubject is a single statement, so it runs in its own implicit
// transaction: concurrent inserts for the same subject are ordered entirely
// before or after the sweep.
func (s *Store) DeleteBySubject(ctx context.Context, subject string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE subject = $1`, subject)
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

	res, err := tx.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token_id = $1`, oldTokenID)
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
		`INSERT INTO refresh_tokens (token_id, subject, issued_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (token_id) DO NOTHING`,
		rec.TokenID, rec.Subject, rec.IssuedAt, rec.ExpiresAt,
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
		`DELETE FROM refresh_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
