package token

import "errors"

// Public, stable errors for callers.
var (
	ErrHMACKeyMissing  = errors.New("token HMAC key missing")
	ErrHMACKeyTooShort = errors.New("token HMAC key too short")

	// ErrInvalidToken is returned for malformed tokens, bad signatures,
	// wrong issuer, or a token of the wrong kind.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned for a well-formed, correctly signed token
	// whose expiry has passed. Claims are still returned alongside it.
	ErrExpiredToken = errors.New("expired token")

	// ErrSecretTooShort is returned when the signing secret is below MinSecretBytes.
	ErrSecretTooShort = errors.New("token signing secret too short")
)
