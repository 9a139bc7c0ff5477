package session

import (
	"context"
	"time"

	"finapp/cmd/security/token"
)

// Info is the caller-facing view of one session.
type Info struct {
	ID        string
	CreatedAt time.Time
	IP        string
	Device    string
	IsCurrent bool
}

// Registry lists and revokes an account's sessions.
type Registry struct {
	store    Store
	digester token.Digester
}

// NewRegistry returns a Registry over store. digester must be the one used
// when the sessions were created.
func NewRegistry(store Store, digester token.Digester) *Registry {
	return &Registry{store: store, digester: digester}
}

// List returns the account's non-revoked sessions, newest first. The entry
// holding currentAccessToken is marked IsCurrent.
func (r *Registry) List(ctx context.Context, accountID, currentAccessToken string) ([]Info, error) {
	rows, err := r.store.ListActive(ctx, accountID)
	if err != nil {
		return nil, err
	}

	current := r.digester.Digest(currentAccessToken)
	out := make([]Info, 0, len(rows))
	for _, row := range rows {
		if row.Revoked {
			continue
		}
		out = append(out, Info{
			ID:        row.ID,
			CreatedAt: row.CreatedAt,
			IP:        row.DeviceIP,
			Device:    row.DeviceInfo,
			IsCurrent: token.EqualDigest(row.AccessHash, current),
		})
	}
	return out, nil
}

// Revoke revokes another of the caller's sessions.
//
// Errors: ErrSessionNotFound if the session is missing or already revoked,
// ErrForbidden if it belongs to another account, ErrCannotRevokeCurrent if
// it holds currentAccessToken (logout is the path for that).
func (r *Registry) Revoke(ctx context.Context, sessionID, accountID, currentAccessToken string, now time.Time) error {
	row, err := r.store.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if row.Revoked {
		return ErrSessionNotFound
	}
	if row.AccountID != accountID {
		return ErrForbidden
	}
	if token.EqualDigest(row.AccessHash, r.digester.Digest(currentAccessToken)) {
		return ErrCannotRevokeCurrent
	}
	return r.store.Revoke(ctx, sessionID, now)
}
