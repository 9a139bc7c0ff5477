package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store over finapp.login_attempts.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a Postgres-backed attempt store.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Increment upserts the record and returns the incremented count in one statement.
func (s *PostgresStore) Increment(ctx context.Context, key Key, now time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		INSERT INTO finapp.login_attempts (ip, user_agent, email, attempt_count, last_attempt_at)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (ip, user_agent, email) DO UPDATE
		SET attempt_count = finapp.login_attempts.attempt_count + 1,
		    last_attempt_at = EXCLUDED.last_attempt_at
		RETURNING attempt_count
	`, key.IP, key.UserAgent, key.Email, now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("throttle.Increment: %w", err)
	}
	return n, nil
}

// Block sets blocked_until for key.
func (s *PostgresStore) Block(ctx context.Context, key Key, until time.Time) error {
	ct, err := s.db.Exec(ctx, `
		UPDATE finapp.login_attempts
		SET blocked_until = $4
		WHERE ip = $1 AND user_agent = $2 AND email = $3
	`, key.IP, key.UserAgent, key.Email, until)
	if err != nil {
		return fmt.Errorf("throttle.Block: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get loads the record for key.
func (s *PostgresStore) Get(ctx context.Context, key Key) (Record, error) {
	rec := Record{Key: key}
	err := s.db.QueryRow(ctx, `
		SELECT attempt_count, last_attempt_at, blocked_until
		FROM finapp.login_attempts
		WHERE ip = $1 AND user_agent = $2 AND email = $3
	`, key.IP, key.UserAgent, key.Email).Scan(&rec.AttemptCount, &rec.LastAttemptAt, &rec.BlockedUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("throttle.Get: %w", err)
	}
	return rec, nil
}

// Clear deletes all records for (ip, email).
func (s *PostgresStore) Clear(ctx context.Context, ip, email string) (int64, error) {
	ct, err := s.db.Exec(ctx, `
		DELETE FROM finapp.login_attempts
		WHERE ip = $1 AND email = $2
	`, ip, email)
	if err != nil {
		return 0, fmt.Errorf("throttle.Clear: %w", err)
	}
	return ct.RowsAffected(), nil
}
