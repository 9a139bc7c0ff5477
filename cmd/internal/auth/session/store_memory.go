package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory.
// It is used when no database is configured and by tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Session)}
}

func (m *MemoryStore) Create(ctx context.Context, s Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rows[s.ID]; exists {
		return ErrDuplicateToken
	}
	for _, r := range m.rows {
		if r.Revoked {
			continue
		}
		if r.AccessHash == s.AccessHash || r.RefreshHash == s.RefreshHash {
			return ErrDuplicateToken
		}
	}
	m.rows[s.ID] = s
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.rows[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *MemoryStore) GetActiveByAccessHash(ctx context.Context, accessHash string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.findActiveLocked(func(r Session) bool { return r.AccessHash == accessHash }); ok {
		return s, nil
	}
	return Session{}, ErrSessionNotFound
}

func (m *MemoryStore) GetByRefreshHash(ctx context.Context, refreshHash string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.findActiveLocked(func(r Session) bool { return r.RefreshHash == refreshHash }); ok {
		return s, nil
	}
	for _, r := range m.rows {
		if r.RefreshHash == refreshHash {
			return r, nil
		}
	}
	return Session{}, ErrSessionNotFound
}

func (m *MemoryStore) ListActive(ctx context.Context, accountID string) ([]Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	out := make([]Session, 0, 4)
	for _, r := range m.rows {
		if r.AccountID == accountID && !r.Revoked {
			out = append(out, r)
		}
	}
	m.mu.Unlock()

	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) RotateAccess(ctx context.Context, r AccessRotation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.rows[r.SessionID]
	if !ok || s.Revoked || s.AccessHash != r.PreviousAccessHash {
		return ErrRotationConflict
	}
	s.AccessHash = r.AccessHash
	s.AccessExpiresAt = r.AccessExpiresAt
	s.UpdatedAt = r.Now
	s.Revoked = false
	m.rows[s.ID] = s
	return nil
}

func (m *MemoryStore) Revoke(ctx context.Context, id string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.rows[id]
	if !ok || s.Revoked {
		return ErrSessionNotFound
	}
	s.Revoked = true
	s.UpdatedAt = now
	m.rows[id] = s
	return nil
}

func (m *MemoryStore) RevokeByAccessHash(ctx context.Context, accessHash string, now time.Time) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.findActiveLocked(func(r Session) bool { return r.AccessHash == accessHash })
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	s.Revoked = true
	s.UpdatedAt = now
	m.rows[s.ID] = s
	return s, nil
}

func (m *MemoryStore) RevokeAll(ctx context.Context, accountID string, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, r := range m.rows {
		if r.AccountID != accountID || r.Revoked {
			continue
		}
		r.Revoked = true
		r.UpdatedAt = now
		m.rows[id] = r
		n++
	}
	return n, nil
}

func (m *MemoryStore) DeleteRefreshExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, r := range m.rows {
		if !r.RefreshExpiresAt.After(now) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) findActiveLocked(match func(Session) bool) (Session, bool) {
	for _, r := range m.rows {
		if !r.Revoked && match(r) {
			return r, true
		}
	}
	return Session{}, false
}

// sortNewestFirst orders by CreatedAt descending, then ID descending.
// ULID IDs sort by creation time, which breaks ties within a millisecond.
func sortNewestFirst(rows []Session) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
}
