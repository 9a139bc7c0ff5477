package authsvc

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput is returned for malformed requests (bad email, empty fields).
	ErrInvalidInput = errors.New("invalid input")

	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidPassword        = errors.New("password does not satisfy policy")

	ErrEmailNotFound        = errors.New("email not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountLocked        = errors.New("account locked")
	ErrTooManyLoginAttempts = errors.New("too many login attempts")

	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrExpiredRefreshToken = errors.New("expired refresh token")
	ErrRevokedRefreshToken = errors.New("revoked refresh token")
	ErrRefreshConflict     = errors.New("refresh raced with another refresh")

	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrExpiredSession     = errors.New("expired session")
)

// ThrottledError carries the backoff imposed after a failed login.
//
// Err is ErrInvalidCredentials when produced by a password mismatch and
// ErrTooManyLoginAttempts when produced by the optional pre-check.
type ThrottledError struct {
	Err      error
	Attempts int
	Wait     time.Duration
}

func (e ThrottledError) Error() string {
	if e.Wait <= 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: retry after %s", e.Err.Error(), e.Wait)
}

func (e ThrottledError) Unwrap() error { return e.Err }

// RetryAfter is the wait the client must observe before trying again.
func (e ThrottledError) RetryAfter() time.Duration { return e.Wait }
