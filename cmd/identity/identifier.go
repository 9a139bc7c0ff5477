package identity

import (
	"net/mail"
	"regexp"
	"strings"

	"finapp/cmd/identity/ids"

	"github.com/google/uuid"
)

// IdentifierKind tags the variant a raw identifier parsed into.
type IdentifierKind int

const (
	IdentifierInvalid IdentifierKind = iota
	IdentifierByID
	IdentifierByUsername
	IdentifierByEmail
)

func (k IdentifierKind) String() string {
	switch k {
	case IdentifierByID:
		return "id"
	case IdentifierByUsername:
		return "username"
	case IdentifierByEmail:
		return "email"
	default:
		return "invalid"
	}
}

// Identifier is a parsed account or resource identifier. Value is canonical
// for its kind: lower-case email, lower-case username, canonical UUID/ULID.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

const maxIdentifierLen = 254

var usernameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,31}$`)

// ParseIdentifier classifies raw as an id (UUID or ULID), an email, or a
// username. Anything else is IdentifierInvalid.
func ParseIdentifier(raw string) Identifier {
	s := strings.TrimSpace(raw)
	if s == "" || len(s) > maxIdentifierLen {
		return Identifier{Kind: IdentifierInvalid}
	}

	if len(s) == 36 {
		if u, err := uuid.Parse(s); err == nil {
			return Identifier{Kind: IdentifierByID, Value: u.String()}
		}
	}
	if id, ok := ids.ParseULID(s); ok {
		return Identifier{Kind: IdentifierByID, Value: id}
	}

	if strings.Contains(s, "@") {
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s || addr.Name != "" {
			return Identifier{Kind: IdentifierInvalid}
		}
		at := strings.LastIndexByte(s, '@')
		if at <= 0 || !strings.Contains(s[at+1:], ".") {
			return Identifier{Kind: IdentifierInvalid}
		}
		return Identifier{Kind: IdentifierByEmail, Value: NormalizeEmail(s)}
	}

	lower := strings.ToLower(s)
	if usernameRe.MatchString(lower) {
		return Identifier{Kind: IdentifierByUsername, Value: lower}
	}
	return Identifier{Kind: IdentifierInvalid}
}
