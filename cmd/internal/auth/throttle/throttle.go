package throttle

import (
	"context"
	"errors"
	"strings"
	"time"

	"finapp/cmd/identity"
)

// ErrNotFound is returned by Store.Get when no record exists for a key.
var ErrNotFound = errors.New("login attempt record not found")

const maxUserAgentLen = 512

// Key identifies one login-attempt record.
type Key struct {
	IP        string
	UserAgent string
	Email     string
}

// NewKey canonicalizes the parts of a key: email is normalized and the user
// agent is trimmed and capped.
func NewKey(ip, userAgent, email string) Key {
	ua := strings.TrimSpace(userAgent)
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}
	return Key{
		IP:        strings.TrimSpace(ip),
		UserAgent: ua,
		Email:     identity.NormalizeEmail(email),
	}
}

// Record is the persisted failure counter for a Key.
type Record struct {
	Key
	AttemptCount  int
	LastAttemptAt time.Time
	BlockedUntil  *time.Time
}

// Verdict is the outcome of recording one failure.
type Verdict struct {
	Attempts     int
	Wait         time.Duration
	BlockedUntil time.Time // zero when Wait is zero
}

// Store persists login-attempt records.
type Store interface {
	// Increment loads or creates the record for key, adds one failure at
	// now and returns the new count.
	Increment(ctx context.Context, key Key, now time.Time) (int, error)

	// Block sets blocked_until for key.
	Block(ctx context.Context, key Key, until time.Time) error

	// Get loads the record for key. ErrNotFound if absent.
	Get(ctx context.Context, key Key) (Record, error)

	// Clear deletes every record for (ip, email) across user agents. It is
	// the only way a record is removed.
	Clear(ctx context.Context, ip, email string) (int64, error)
}

// Throttle records login failures and computes backoff.
type Throttle struct {
	store Store
}

// New returns a Throttle over store.
func New(store Store) *Throttle {
	return &Throttle{store: store}
}

// RecordFailure counts one failed login for key and returns the wait the
// caller must impose. Near-simultaneous failures may observe the same count.
func (t *Throttle) RecordFailure(ctx context.Context, key Key, now time.Time) (Verdict, error) {
	n, err := t.store.Increment(ctx, key, now)
	if err != nil {
		return Verdict{}, err
	}

	v := Verdict{Attempts: n, Wait: Backoff(n)}
	if v.Wait > 0 {
		v.BlockedUntil = now.Add(v.Wait)
		if err := t.store.Block(ctx, key, v.BlockedUntil); err != nil {
			return Verdict{}, err
		}
	}
	return v, nil
}

// Clear removes attempt history for (ip, email) after a successful login.
func (t *Throttle) Clear(ctx context.Context, ip, email string) error {
	k := NewKey(ip, "", email)
	_, err := t.store.Clear(ctx, k.IP, k.Email)
	return err
}

// Blocked reports the remaining wait for key, or zero when key may attempt now.
func (t *Throttle) Blocked(ctx context.Context, key Key, now time.Time) (time.Duration, error) {
	rec, err := t.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if rec.BlockedUntil == nil || !rec.BlockedUntil.After(now) {
		return 0, nil
	}
	return rec.BlockedUntil.Sub(now), nil
}
