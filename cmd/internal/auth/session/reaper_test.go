package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingStore holds DeleteRefreshExpired until release is closed.
type blockingStore struct {
	*MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) DeleteRefreshExpired(ctx context.Context, now time.Time) (int64, error) {
	close(b.entered)
	<-b.release
	return b.MemoryStore.DeleteRefreshExpired(ctx, now)
}

func TestReaper_RunOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Create(ctx, testRow("stale", "a1", "acc1", "ref1", t0)))
	require.NoError(t, m.Create(ctx, testRow("stale-revoked", "a1", "acc2", "ref2", t0)))
	require.NoError(t, m.Revoke(ctx, "stale-revoked", t0))
	require.NoError(t, m.Create(ctx, testRow("fresh", "a1", "acc3", "ref3", t0.Add(48*time.Hour))))

	var observed SweepReport
	r := NewReaper(m, time.Hour,
		WithClock(func() time.Time { return t0.Add(48 * time.Hour) }),
		WithSweep("rate_limit", func(context.Context, time.Time) (int64, error) { return 4, nil }),
		WithObserver(func(rep SweepReport) { observed = rep }),
	)

	rep, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rep.Sessions)
	assert.Equal(t, int64(4), rep.Extra["rate_limit"])
	assert.Equal(t, rep, observed)

	rep, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Sessions, "second run is a no-op")
}

func TestReaper_ExtraSweepErrorsAreJoined(t *testing.T) {
	boom := errors.New("boom")
	r := NewReaper(NewMemoryStore(), time.Hour,
		WithSweep("broken", func(context.Context, time.Time) (int64, error) { return 0, boom }),
		WithSweep("ok", func(context.Context, time.Time) (int64, error) { return 1, nil }),
	)

	rep, err := r.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), rep.Extra["ok"])
}

func TestReaper_RunsDoNotOverlap(t *testing.T) {
	bs := &blockingStore{
		MemoryStore: NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	r := NewReaper(bs, time.Hour)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = r.RunOnce(context.Background())
	}()

	<-bs.entered
	_, err := r.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)

	close(bs.release)
	wg.Wait()
}

func TestReaper_StartStop(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Create(ctx, testRow("stale", "a1", "acc1", "ref1", t0)))

	runs := make(chan SweepReport, 8)
	r := NewReaper(m, time.Hour,
		WithClock(func() time.Time { return t0.Add(48 * time.Hour) }),
		WithObserver(func(rep SweepReport) { runs <- rep }),
	)

	r.Start(ctx)
	r.Start(ctx) // no-op while running

	select {
	case rep := <-runs:
		assert.Equal(t, int64(1), rep.Sessions)
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not run on start")
	}

	r.Stop()
	r.Stop()

	_, err := m.GetByID(ctx, "stale")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
