package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// commonPasswords is checked case-insensitively when RejectVeryWeak is set.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"qwerty":      {},
	"qwerty123":   {},
	"letmein":     {},
	"iloveyou":    {},
	"welcome1":    {},
	"finapp":      {},
	"finapp123":   {},
	"money123":    {},
	"budget2026":  {},
}

// Validate checks password against the policy. Length is counted in runes.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n < c.Policy.MinLength:
		return LengthError{Err: ErrPasswordTooShort, Limit: c.Policy.MinLength}
	case n > c.Policy.MaxLength:
		return LengthError{Err: ErrPasswordTooLong, Limit: c.Policy.MaxLength}
	case strings.IndexFunc(password, unicode.IsControl) >= 0:
		return ErrControlCharacter
	case c.Policy.RejectVeryWeak && isTrivial(password):
		return ErrWeakPassword
	}
	return nil
}

func isTrivial(password string) bool {
	s := strings.ToLower(strings.TrimSpace(password))
	rs := []rune(s)
	if len(rs) == 0 {
		return true
	}
	if _, ok := commonPasswords[s]; ok {
		return true
	}
	// One repeated character.
	if strings.Count(s, string(rs[0])) == len(rs) {
		return true
	}
	// PIN-like.
	if len(rs) < 12 && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return true
	}
	return isStraightRun(rs)
}

// isStraightRun matches "abcdefgh" or "87654321".
func isStraightRun(rs []rune) bool {
	if len(rs) < 3 {
		return false
	}
	step := rs[1] - rs[0]
	if step != 1 && step != -1 {
		return false
	}
	for i := 2; i < len(rs); i++ {
		if rs[i]-rs[i-1] != step {
			return false
		}
	}
	return true
}
