package identity

import (
	"context"
	"time"
)

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive                Status = "ACTIVE"
	StatusPendingVerification   Status = "PENDING_VERIFICATION"
	StatusDeactivationRequested Status = "DEACTIVATION_REQUESTED"
	StatusLocked                Status = "LOCKED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPendingVerification, StatusDeactivationRequested, StatusLocked:
		return true
	default:
		return false
	}
}

// Account is the slice of a user account the auth core reads.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Status       Status

	// DeletionRequestedAt is set while a deactivation request is pending.
	DeletionRequestedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount describes an account to create. PasswordHash is already hashed.
type NewAccount struct {
	Name         string
	Email        string
	PasswordHash string
	Now          time.Time
}

// Directory is the account lookup capability.
//
// Lookups return NotFoundError when the account does not exist; Create
// returns ConflictError{Field: "email"} when the email is taken.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	Create(ctx context.Context, in NewAccount) (Account, error)

	// Reactivate returns a deactivation-requested account to ACTIVE and
	// clears its deletion flag.
	Reactivate(ctx context.Context, id string, now time.Time) error
}

// CredentialVerifier compares plaintext secrets against stored hashes.
type CredentialVerifier interface {
	// Verify returns (true, nil) on match, (false, nil) on mismatch.
	Verify(encodedHash, plain string) (bool, error)
	// Hash validates plain against policy and returns its encoded hash.
	Hash(plain string) (string, error)
}
