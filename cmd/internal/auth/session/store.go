package session

import (
	"context"
	"time"
)

// Session mirrors the finapp.sessions row.
//
// AccessHash and RefreshHash are token digests, never plaintext tokens.
type Session struct {
	ID               string
	AccountID        string
	AccessHash       string
	RefreshHash      string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	Revoked          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeviceInfo       string
	DeviceIP         string
}

// AccessRotation describes the replacement access token for RotateAccess.
type AccessRotation struct {
	SessionID          string
	PreviousAccessHash string
	AccessHash         string
	AccessExpiresAt    time.Time
	Now                time.Time
}

// Store abstracts persistence for session rows.
//
// Implementations must keep at most one non-revoked row per access digest
// and per refresh digest, and must apply RotateAccess and the revoke
// operations as single guarded writes.
type Store interface {
	// Create inserts a new row. The caller assigns ID.
	Create(ctx context.Context, s Session) error

	// GetByID loads a row regardless of its revoked flag.
	GetByID(ctx context.Context, id string) (Session, error)

	// GetActiveByAccessHash loads the non-revoked row holding accessHash.
	GetActiveByAccessHash(ctx context.Context, accessHash string) (Session, error)

	// GetByRefreshHash loads the row holding refreshHash, preferring a
	// non-revoked row when several exist.
	GetByRefreshHash(ctx context.Context, refreshHash string) (Session, error)

	// ListActive returns an account's non-revoked rows, newest first.
	ListActive(ctx context.Context, accountID string) ([]Session, error)

	// RotateAccess replaces the access digest and expiry of a non-revoked row
	// whose current access digest equals PreviousAccessHash. It returns
	// ErrRotationConflict when the guard does not hold.
	RotateAccess(ctx context.Context, r AccessRotation) error

	// Revoke marks a non-revoked row revoked. ErrSessionNotFound otherwise.
	Revoke(ctx context.Context, id string, now time.Time) error

	// RevokeByAccessHash revokes the non-revoked row holding accessHash and
	// returns it. ErrSessionNotFound if none.
	RevokeByAccessHash(ctx context.Context, accessHash string, now time.Time) (Session, error)

	// RevokeAll revokes every non-revoked row of an account.
	RevokeAll(ctx context.Context, accountID string, now time.Time) (int64, error)

	// DeleteRefreshExpired deletes rows whose refresh token expired at or
	// before now, revoked or not.
	DeleteRefreshExpired(ctx context.Context, now time.Time) (int64, error)
}
