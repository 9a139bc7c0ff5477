package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// SweepFunc removes stale state as of now and reports how many entries it dropped.
type SweepFunc func(ctx context.Context, now time.Time) (int64, error)

// SweepReport summarizes one reaper run.
type SweepReport struct {
	Sessions int64
	Extra    map[string]int64
}

// Reaper periodically deletes sessions whose refresh token has expired,
// together with any extra sweeps registered via WithSweep.
//
// Runs never overlap: RunOnce returns ErrSweepInProgress while another run
// is in flight.
type Reaper struct {
	store    Store
	interval time.Duration
	now      func() time.Time
	log      *slog.Logger

	extraNames []string
	extra      map[string]SweepFunc
	observe    func(SweepReport)

	running sync.Mutex

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// ReaperOption configures a Reaper.
type ReaperOption func(*Reaper)

// WithSweep registers an additional sweep run after the session sweep.
func WithSweep(name string, fn SweepFunc) ReaperOption {
	return func(r *Reaper) {
		if fn == nil {
			return
		}
		if _, dup := r.extra[name]; !dup {
			r.extraNames = append(r.extraNames, name)
		}
		r.extra[name] = fn
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ReaperOption {
	return func(r *Reaper) {
		if now != nil {
			r.now = now
		}
	}
}

// WithReaperLogger sets the logger.
func WithReaperLogger(l *slog.Logger) ReaperOption {
	return func(r *Reaper) {
		if l != nil {
			r.log = l
		}
	}
}

// WithObserver is called after every completed run.
func WithObserver(fn func(SweepReport)) ReaperOption {
	return func(r *Reaper) { r.observe = fn }
}

// NewReaper constructs a Reaper. A non-positive interval defaults to 24h.
func NewReaper(store Store, interval time.Duration, opts ...ReaperOption) *Reaper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	r := &Reaper{
		store:    store,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		log:      slog.Default(),
		extra:    make(map[string]SweepFunc),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RunOnce performs a single sweep. Extra sweeps still run when the session
// sweep fails; the first error is returned.
func (r *Reaper) RunOnce(ctx context.Context) (SweepReport, error) {
	if !r.running.TryLock() {
		return SweepReport{}, ErrSweepInProgress
	}
	defer r.running.Unlock()

	now := r.now()
	report := SweepReport{Extra: make(map[string]int64, len(r.extraNames))}

	var errs []error
	n, err := r.store.DeleteRefreshExpired(ctx, now)
	if err != nil {
		errs = append(errs, err)
		r.log.Error("session.reaper.sessions.fail", "err", err)
	}
	report.Sessions = n

	for _, name := range r.extraNames {
		n, err := r.extra[name](ctx, now)
		if err != nil {
			errs = append(errs, err)
			r.log.Error("session.reaper.sweep.fail", "sweep", name, "err", err)
			continue
		}
		report.Extra[name] = n
	}

	r.log.Info("session.reaper.run",
		"sessions_deleted", report.Sessions,
		"extra", report.Extra,
	)
	if r.observe != nil {
		r.observe(report)
	}
	return report, errors.Join(errs...)
}

// Run sweeps once immediately and then every interval until ctx is done.
// It always returns nil; sweep failures are logged.
func (r *Reaper) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, ErrSweepInProgress) && ctx.Err() == nil {
			r.log.Warn("session.reaper.run.fail", "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Start runs the reaper in a background goroutine. Calling Start on a
// running reaper is a no-op.
func (r *Reaper) Start(ctx context.Context) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if r.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	go func() {
		defer close(done)
		_ = r.Run(runCtx)
	}()
}

// Stop cancels a started reaper and waits for the in-flight run to finish.
func (r *Reaper) Stop() {
	r.lifecycle.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
