package token

import (
	"errors"
	"strings"
	"time"

	"finapp/cmd/identity/ids"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretBytes is the minimum HS256 signing secret size.
const MinSecretBytes = 32

// maxTokenBytes bounds inputs before any parsing work is done.
const maxTokenBytes = 4096

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	// KindAccess is a short-lived bearer credential for individual requests.
	KindAccess Kind = "access"
	// KindRefresh is a long-lived credential used only to mint access tokens.
	KindRefresh Kind = "refresh"
)

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	Kind      Kind
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired is a pure function of the embedded expiry and now.
func (c Claims) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

type jwtClaims struct {
	Kind Kind `json:"typ"`
	jwt.RegisteredClaims
}

// Codec mints and verifies HS256 JWTs.
type Codec struct {
	issuer string
	secret []byte
	leeway time.Duration
}

// NewCodec builds a Codec. The secret must be at least MinSecretBytes long.
func NewCodec(issuer string, secret []byte, leeway time.Duration) (*Codec, error) {
	if len(secret) < MinSecretBytes {
		return nil, ErrSecretTooShort
	}
	if leeway < 0 {
		leeway = 0
	}
	cp := make([]byte, len(secret))
	copy(cp, secret)
	return &Codec{issuer: strings.TrimSpace(issuer), secret: cp, leeway: leeway}, nil
}

// IssueTime is the issuance instant Mint embeds for now: UTC, whole seconds.
// Callers persisting expiries should derive them from this value.
func IssueTime(now time.Time) time.Time {
	return now.UTC().Truncate(time.Second)
}

// Mint signs a token for subject valid for ttl from IssueTime(now).
func (c *Codec) Mint(subject string, kind Kind, ttl time.Duration, now time.Time) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" || ttl <= 0 {
		return "", time.Time{}, errors.New("token: subject and positive ttl are required")
	}

	iat := IssueTime(now)
	exp := iat.Add(ttl)

	// A unique jti keeps two tokens minted in the same second distinct.
	jti, err := ids.NewULID(iat)
	if err != nil {
		return "", time.Time{}, err
	}

	claims := jwtClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(iat),
			NotBefore: jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature, issuer, kind and expiry at now.
//
// Malformed, forged, foreign-issuer or wrong-kind tokens yield ErrInvalidToken.
// A genuine token past its expiry yields ErrExpiredToken together with its claims.
func (c *Codec) Verify(raw string, kind Kind, now time.Time) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxTokenBytes {
		return Claims{}, ErrInvalidToken
	}

	var jc jwtClaims
	_, err := jwt.ParseWithClaims(raw, &jc,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	claims := jc.claims()
	if claims.Subject == "" || jc.Kind != kind {
		return Claims{}, ErrInvalidToken
	}

	if err != nil {
		if expiredOnly(err) {
			return claims, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// expiredOnly reports whether err is an expiry failure on a token that
// otherwise passed signature and issuer validation.
func expiredOnly(err error) bool {
	if !errors.Is(err, jwt.ErrTokenExpired) {
		return false
	}
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return false
	}
	return true
}

func (jc jwtClaims) claims() Claims {
	out := Claims{
		Subject: jc.Subject,
		Kind:    jc.Kind,
		ID:      jc.ID,
	}
	if jc.IssuedAt != nil {
		out.IssuedAt = jc.IssuedAt.UTC()
	}
	if jc.ExpiresAt != nil {
		out.ExpiresAt = jc.ExpiresAt.UTC()
	}
	return out
}
