package password

import (
	"errors"
	"fmt"
)

var (
	ErrPasswordTooShort = errors.New("password: too short")
	ErrPasswordTooLong  = errors.New("password: too long")
	ErrWeakPassword     = errors.New("password: too easy to guess")
	ErrControlCharacter = errors.New("password: contains control characters")
	ErrInvalidHash      = errors.New("password: unrecognized hash encoding")
)

// LengthError reports which length bound a password broke.
type LengthError struct {
	Err   error // ErrPasswordTooShort or ErrPasswordTooLong
	Limit int
}

func (e LengthError) Error() string { return fmt.Sprintf("%v (limit %d)", e.Err, e.Limit) }

func (e LengthError) Unwrap() error { return e.Err }
