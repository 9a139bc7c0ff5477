package identity

import (
	"errors"
	"fmt"

	"finapp/cmd/security/password"
)

// ErrWeakCredential wraps policy failures returned by PasswordVerifier.Hash.
var ErrWeakCredential = errors.New("password does not satisfy policy")

// PasswordVerifier is the CredentialVerifier backed by security/password.
//
// A fixed dummy hash is verified when the caller has no hash to compare
// against, so an unknown email costs the same Argon2id work as a known one.
type PasswordVerifier struct {
	cfg   password.Config
	dummy string
}

// NewPasswordVerifier builds a verifier from a password config.
func NewPasswordVerifier(cfg password.Config) (*PasswordVerifier, error) {
	dummy, err := cfg.Hash("finapp-dummy-credential-0000")
	if err != nil {
		return nil, fmt.Errorf("identity: dummy hash: %w", err)
	}
	return &PasswordVerifier{cfg: cfg, dummy: dummy}, nil
}

// Hash validates plain against the configured policy and returns its
// Argon2id encoding. Policy failures wrap ErrWeakCredential.
func (v *PasswordVerifier) Hash(plain string) (string, error) {
	enc, err := v.cfg.Hash(plain)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrPasswordTooShort),
			errors.Is(err, password.ErrPasswordTooLong),
			errors.Is(err, password.ErrWeakPassword),
			errors.Is(err, password.ErrControlCharacter):
			return "", fmt.Errorf("%w: %v", ErrWeakCredential, err)
		default:
			return "", err
		}
	}
	return enc, nil
}

// Verify compares plain against encodedHash (Argon2id or legacy bcrypt).
// An empty encodedHash is verified against the dummy hash and never matches.
func (v *PasswordVerifier) Verify(encodedHash, plain string) (bool, error) {
	if encodedHash == "" {
		_, _ = v.cfg.Verify(v.dummy, plain)
		return false, nil
	}
	ok, err := v.cfg.Verify(encodedHash, plain)
	if err != nil {
		return false, OpError{Op: "identity.VerifyPassword", Kind: ErrInvalidInput, Msg: "unsupported password hash"}
	}
	return ok, nil
}
