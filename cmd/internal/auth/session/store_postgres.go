package session

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
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using PostgreSQL (finapp.sessions).
//
// Uniqueness of active digests is enforced by the partial unique indexes
// uq_sessions_access_active and uq_sessions_refresh_active.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `
	id, account_id, access_token_hash, refresh_token_hash,
	access_expires_at, refresh_expires_at, revoked,
	created_at, updated_at, device_info, device_ip`

// Create inserts a new session row.
func (s *PostgresStore) Create(ctx context.Context, row Session) error {
	const op = "session.Create"

	_, err := s.db.Exec(ctx, `
		INSERT INTO finapp.sessions (`+sessionColumns+`
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, FALSE,
			$7, $7, $8, $9
		)
	`,
		row.ID, row.AccountID, row.AccessHash, row.RefreshHash,
		row.AccessExpiresAt, row.RefreshExpiresAt,
		row.CreatedAt, nullIfEmpty(row.DeviceInfo), nullIfEmpty(row.DeviceIP),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetByID loads a session row by ID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM finapp.sessions
		WHERE id = $1
	`, id)
	return scanSession("session.GetByID", row)
}

// GetActiveByAccessHash loads the non-revoked row holding accessHash.
func (s *PostgresStore) GetActiveByAccessHash(ctx context.Context, accessHash string) (Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM finapp.sessions
		WHERE access_token_hash = $1
		  AND revoked = FALSE
	`, accessHash)
	return scanSession("session.GetActiveByAccessHash", row)
}

// GetByRefreshHash loads the row holding refreshHash, non-revoked first.
func (s *PostgresStore) GetByRefreshHash(ctx context.Context, refreshHash string) (Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM finapp.sessions
		WHERE refresh_token_hash = $1
		ORDER BY revoked ASC, updated_at DESC
		LIMIT 1
	`, refreshHash)
	return scanSession("session.GetByRefreshHash", row)
}

// ListActive returns an account's non-revoked sessions, newest first.
func (s *PostgresStore) ListActive(ctx context.Context, accountID string) ([]Session, error) {
	const op = "session.ListActive"

	rows, err := s.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM finapp.sessions
		WHERE account_id = $1
		  AND revoked = FALSE
		ORDER BY created_at DESC, id DESC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(op, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// RotateAccess swaps the access token of a single row under a state guard.
// Exactly one of two concurrent rotations of the same row can succeed.
func (s *PostgresStore) RotateAccess(ctx context.Context, r AccessRotation) error {
	const op = "session.RotateAccess"

	ct, err := s.db.Exec(ctx, `
		UPDATE finapp.sessions
		SET access_token_hash = $1,
		    access_expires_at = $2,
		    updated_at = $3,
		    revoked = FALSE
		WHERE id = $4
		  AND access_token_hash = $5
		  AND revoked = FALSE
	`, r.AccessHash, r.AccessExpiresAt, r.Now, r.SessionID, r.PreviousAccessHash)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if ct.RowsAffected() != 1 {
		return ErrRotationConflict
	}
	return nil
}

// Revoke revokes a single non-revoked session.
func (s *PostgresStore) Revoke(ctx context.Context, id string, now time.Time) error {
	const op = "session.Revoke"

	ct, err := s.db.Exec(ctx, `
		UPDATE finapp.sessions
		SET revoked = TRUE,
		    updated_at = $2
		WHERE id = $1
		  AND revoked = FALSE
	`, id, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// RevokeByAccessHash revokes the non-revoked row holding accessHash.
func (s *PostgresStore) RevokeByAccessHash(ctx context.Context, accessHash string, now time.Time) (Session, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE finapp.sessions
		SET revoked = TRUE,
		    updated_at = $2
		WHERE access_token_hash = $1
		  AND revoked = FALSE
		RETURNING `+sessionColumns,
		accessHash, now,
	)
	return scanSession("session.RevokeByAccessHash", row)
}

// RevokeAll revokes all non-revoked sessions of an account.
func (s *PostgresStore) RevokeAll(ctx context.Context, accountID string, now time.Time) (int64, error) {
	ct, err := s.db.Exec(ctx, `
		UPDATE finapp.sessions
		SET revoked = TRUE,
		    updated_at = $2
		WHERE account_id = $1
		  AND revoked = FALSE
	`, accountID, now)
	if err != nil {
		return 0, fmt.Errorf("session.RevokeAll: %w", err)
	}
	return ct.RowsAffected(), nil
}

// DeleteRefreshExpired deletes every row whose refresh token has expired.
func (s *PostgresStore) DeleteRefreshExpired(ctx context.Context, now time.Time) (int64, error) {
	ct, err := s.db.Exec(ctx, `
		DELETE FROM finapp.sessions
		WHERE refresh_expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("session.DeleteRefreshExpired: %w", err)
	}
	return ct.RowsAffected(), nil
}

func scanSession(op string, row pgx.Row) (Session, error) {
	var (
		out        Session
		deviceInfo *string
		deviceIP   *string
	)
	err := row.Scan(
		&out.ID,
		&out.AccountID,
		&out.AccessHash,
		&out.RefreshHash,
		&out.AccessExpiresAt,
		&out.RefreshExpiresAt,
		&out.Revoked,
		&out.CreatedAt,
		&out.UpdatedAt,
		&deviceInfo,
		&deviceIP,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if deviceInfo != nil {
		out.DeviceInfo = *deviceInfo
	}
	if deviceIP != nil {
		out.DeviceIP = *deviceIP
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
