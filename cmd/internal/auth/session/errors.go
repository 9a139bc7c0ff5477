package session

import "errors"

var (
	// ErrSessionNotFound is returned when no (non-revoked, where relevant) session matches.
	ErrSessionNotFound = errors.New("session not found")

	// ErrRotationConflict is returned when a guarded access rotation loses to
	// a concurrent rotation or revocation of the same row.
	ErrRotationConflict = errors.New("session rotation conflict")

	// ErrDuplicateToken is returned when an active row already holds the same token digest.
	ErrDuplicateToken = errors.New("duplicate active token")

	// ErrForbidden is returned when a session belongs to a different account.
	ErrForbidden = errors.New("session belongs to another account")

	// ErrCannotRevokeCurrent is returned when a caller targets its own current session.
	ErrCannotRevokeCurrent = errors.New("cannot revoke current session")

	// ErrSweepInProgress is returned by Reaper.RunOnce while another sweep is running.
	ErrSweepInProgress = errors.New("sweep already in progress")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
