package throttle

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[Key]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[Key]Record)}
}

func (m *MemoryStore) Increment(ctx context.Context, key Key, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.recs[key]
	if !ok {
		rec = Record{Key: key}
	}
	rec.AttemptCount++
	rec.LastAttemptAt = now
	m.recs[key] = rec
	return rec.AttemptCount, nil
}

func (m *MemoryStore) Block(ctx context.Context, key Key, until time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.recs[key]
	if !ok {
		return ErrNotFound
	}
	rec.BlockedUntil = &until
	m.recs[key] = rec
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key Key) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.recs[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) Clear(ctx context.Context, ip, email string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k := range m.recs {
		if k.IP == ip && k.Email == email {
			delete(m.recs, k)
			n++
		}
	}
	return n, nil
}
