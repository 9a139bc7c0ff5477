package identity

import (
	"context"
	"sync"
	"time"
)

// MemoryDirectory is an in-process Directory for development and tests.
type MemoryDirectory struct {
	mu      sync.RWMutex
	byID    map[string]Account
	byEmail map[string]string // email_norm -> id
}

// NewMemoryDirectory returns an empty MemoryDirectory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byID:    make(map[string]Account),
		byEmail: make(map[string]string),
	}
}

func (d *MemoryDirectory) FindByEmail(ctx context.Context, email string) (Account, error) {
	const op = "identity.FindByEmail"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byEmail[NormalizeEmail(email)]
	if !ok {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}
	return d.byID[id], nil
}

func (d *MemoryDirectory) FindByID(ctx context.Context, id string) (Account, error) {
	const op = "identity.FindByID"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	acc, ok := d.byID[id]
	if !ok {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}
	return acc, nil
}

func (d *MemoryDirectory) Create(ctx context.Context, in NewAccount) (Account, error) {
	const op = "identity.Create"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	acc, err := buildAccount(op, in)
	if err != nil {
		return Account{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	norm := NormalizeEmail(acc.Email)
	if _, taken := d.byEmail[norm]; taken {
		return Account{}, ConflictError{Op: op, Field: "email"}
	}
	d.byID[acc.ID] = acc
	d.byEmail[norm] = acc.ID
	return acc, nil
}

func (d *MemoryDirectory) Reactivate(ctx context.Context, id string, now time.Time) error {
	const op = "identity.Reactivate"
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	acc, ok := d.byID[id]
	if !ok || acc.Status != StatusDeactivationRequested {
		return OpError{Op: op, Kind: ErrNotActive, Msg: "account is not pending deactivation"}
	}
	acc.Status = StatusActive
	acc.DeletionRequestedAt = nil
	acc.UpdatedAt = now
	d.byID[id] = acc
	return nil
}

// SetStatus overrides an account's status; unknown statuses are refused. It stands in for the
// user-management collaborator that owns account lifecycle transitions.
func (d *MemoryDirectory) SetStatus(id string, status Status, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	acc, ok := d.byID[id]
	if !ok || !status.Valid() {
		return false
	}
	acc.Status = status
	acc.UpdatedAt = now
	if status == StatusDeactivationRequested {
		t := now
		acc.DeletionRequestedAt = &t
	} else {
		acc.DeletionRequestedAt = nil
	}
	d.byID[id] = acc
	return true
}
