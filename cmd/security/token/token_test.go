package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigester_Modes(t *testing.T) {
	plain := NewDigester(nil)
	keyed := NewDigester([]byte(strings.Repeat("k", 32)))

	assert.False(t, plain.Keyed())
	assert.True(t, keyed.Keyed())

	assert.Equal(t, HashSHA256Hex("tok"), plain.Digest("tok"))
	assert.Len(t, keyed.Digest("tok"), 64)
	assert.NotEqual(t, plain.Digest("tok"), keyed.Digest("tok"))
	assert.Equal(t, keyed.Digest("tok"), keyed.Digest("tok"))
}

func TestEqualDigest(t *testing.T) {
	d := NewDigester(nil)
	a := d.Digest("a")

	assert.True(t, EqualDigest(a, d.Digest("a")))
	assert.False(t, EqualDigest(a, d.Digest("b")))
	assert.False(t, EqualDigest(a, "short"))
}

func TestHMACKey(t *testing.T) {
	_, err := HMACKey("  ", 32)
	assert.ErrorIs(t, err, ErrHMACKeyMissing)

	_, err = HMACKey("abc", 32)
	assert.ErrorIs(t, err, ErrHMACKeyTooShort)

	k, err := HMACKey(strings.Repeat("x", 32), 32)
	assert.NoError(t, err)
	assert.Len(t, k, 32)
}
