// Package postgres provides a pgx-backed implementation of
// [authcore.UserStore].
//
// The store owns no schema migrations; it expects a users table with the
// columns named in the queries below. [Schema] holds a reference DDL
// statement for new deployments.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostelworks/authcore"
)

// Schema is the reference DDL for the users table this store expects.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    identifier  TEXT NOT NULL UNIQUE,
    hash        TEXT NOT NULL,
    role        TEXT NOT NULL,
    mfa_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    mfa_secret  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Store implements [authcore.UserStore] on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on an existing pool. The caller owns the pool's
// lifecycle.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect dials Postgres with the given connection string and returns a
// Store owning a fresh pool. Close releases it.
func Connect(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (authcore.UserRecord, error) {
	return s.findOne(ctx,
		`SELECT id, identifier, hash, role, mfa_enabled, mfa_secret
		   FROM users WHERE identifier = $1`, identifier)
}

func (s *Store) FindByID(ctx context.Context, userID string) (authcore.UserRecord, error) {
	return s.findOne(ctx,
		`SELECT id, identifier, hash, role, mfa_enabled, mfa_secret
		   FROM users WHERE id = $1`, userID)
}

func (s *Store) Create(ctx context.Context, input authcore.CreateUserInput) (authcore.UserRecord, error) {
	var record authcore.UserRecord
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (identifier, hash, role)
		 VALUES ($1, $2, $3)
		 RETURNING id, identifier, hash, role, mfa_enabled, mfa_secret`,
		input.Identifier, input.Hash, string(input.Role),
	).Scan(&record.UserID, &record.Identifier, &record.Hash, &record.Role,
		&record.MFAEnabled, &record.MFASecret)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return authcore.UserRecord{}, authcore.ErrAccountExists
		}
		return authcore.UserRecord{}, fmt.Errorf("create user: %w", err)
	}
	return record, nil
}

func (s *Store) UpdateCredential(ctx context.Context, userID string, hash string) error {
	return s.updateOne(ctx,
		`UPDATE users SET hash = $2 WHERE id = $1`, userID, hash)
}

func (s *Store) UpdateRole(ctx context.Context, userID string, role authcore.Role) error {
	return s.updateOne(ctx,
		`UPDATE users SET role = $2 WHERE id = $1`, userID, string(role))
}

func (s *Store) UpdateMFA(ctx context.Context, userID string, enabled bool, secret string) error {
	return s.updateOne(ctx,
		`UPDATE users SET mfa_enabled = $2, mfa_secret = $3 WHERE id = $1`,
		userID, enabled, secret)
}

func (s *Store) findOne(ctx context.Context, query string, arg any) (authcore.UserRecord, error) {
	var record authcore.UserRecord
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&record.UserID, &record.Identifier, &record.Hash, &record.Role,
		&record.MFAEnabled, &record.MFASecret)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authcore.UserRecord{}, authcore.ErrUserNotFound
		}
		return authcore.UserRecord{}, fmt.Errorf("find user: %w", err)
	}
	return record, nil
}

func (s *Store) updateOne(ctx context.Context, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}
