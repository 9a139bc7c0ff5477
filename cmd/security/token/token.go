package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKey returns raw key bytes (trimmed), enforcing a minimum byte length.
// A blank key -> ErrHMACKeyMissing. Too short -> ErrHMACKeyTooShort.
func HMACKey(raw string, minBytes int) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// Digester hashes tokens for server-side storage.
type Digester struct {
	key []byte
}

// NewDigester returns a Digester. An empty key selects plain SHA-256.
func NewDigester(key []byte) Digester {
	if len(key) == 0 {
		return Digester{}
	}
	cp := make([]byte, len(key))
	copy(cp, key)
	return Digester{key: cp}
}

// Keyed reports whether the digester runs in HMAC mode.
func (d Digester) Keyed() bool { return len(d.key) > 0 }

// Digest returns the 64-char hex digest of tok.
func (d Digester) Digest(tok string) string {
	if len(d.key) == 0 {
		return HashSHA256Hex(tok)
	}
	return HashHMACSHA256Hex(tok, d.key)
}

// EqualDigest compares two 64-char hex digests in constant time.
// Either side with the wrong length never matches.
func EqualDigest(a, b string) bool {
	if len(a) != 64 || len(b) != 64 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
