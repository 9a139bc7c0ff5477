package session

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"finapp/cmd/security/token"
)

// Config defines runtime configuration for sessions and the tokens they hold.
type Config struct {
	// Issuer is the "iss" claim of every minted token.
	Issuer string `env:"FINAPP_AUTH_ISSUER"`

	AccessTokenTTL  time.Duration `env:"FINAPP_AUTH_ACCESS_TTL"`
	RefreshTokenTTL time.Duration `env:"FINAPP_AUTH_REFRESH_TTL"`

	// ClockSkew is the leeway applied when verifying exp/nbf/iat.
	ClockSkew time.Duration `env:"FINAPP_AUTH_CLOCK_SKEW"`

	// TokenSecret signs tokens (HS256). At least token.MinSecretBytes bytes.
	TokenSecret string `env:"FINAPP_AUTH_TOKEN_SECRET"`

	// DigestKey keys the HMAC used to store tokens at rest. Empty selects
	// plain SHA-256 unless RequireDigestKey is set.
	DigestKey        string `env:"FINAPP_AUTH_TOKEN_DIGEST_KEY"`
	RequireDigestKey bool   `env:"FINAPP_REQUIRE_TOKEN_HMAC"`

	// ReaperInterval is the period between sweeps.
	ReaperInterval time.Duration `env:"FINAPP_REAPER_INTERVAL"`
}

// DefaultConfig returns development defaults. TokenSecret is left empty on
// purpose; Validate rejects it.
func DefaultConfig() Config {
	return Config{
		Issuer:          "finapp",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
		ClockSkew:       0,
		ReaperInterval:  24 * time.Hour,
	}
}

// LoadConfigFromEnv overlays FINAPP_* variables on DefaultConfig.
//
// Required:
//   - FINAPP_AUTH_TOKEN_SECRET
//
// Optional (durations are Go duration strings):
//   - FINAPP_AUTH_ISSUER
//   - FINAPP_AUTH_ACCESS_TTL
//   - FINAPP_AUTH_REFRESH_TTL
//   - FINAPP_AUTH_CLOCK_SKEW
//   - FINAPP_AUTH_TOKEN_DIGEST_KEY
//   - FINAPP_REQUIRE_TOKEN_HMAC
//   - FINAPP_REAPER_INTERVAL
//
// Returns an error wrapping ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants between fields.
func (c Config) Validate() error {
	switch {
	case c.Issuer == "":
		return fmt.Errorf("%w: FINAPP_AUTH_ISSUER is empty", ErrConfig)
	case len(c.TokenSecret) < token.MinSecretBytes:
		return fmt.Errorf("%w: FINAPP_AUTH_TOKEN_SECRET must be at least %d bytes", ErrConfig, token.MinSecretBytes)
	case c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0:
		return fmt.Errorf("%w: token TTLs must be positive", ErrConfig)
	case c.AccessTokenTTL >= c.RefreshTokenTTL:
		return fmt.Errorf("%w: access TTL must be shorter than refresh TTL", ErrConfig)
	case c.ClockSkew < 0:
		return fmt.Errorf("%w: FINAPP_AUTH_CLOCK_SKEW is negative", ErrConfig)
	case c.ReaperInterval <= 0:
		return fmt.Errorf("%w: FINAPP_REAPER_INTERVAL must be positive", ErrConfig)
	}
	if c.RequireDigestKey && c.DigestKey == "" {
		return fmt.Errorf("%w: FINAPP_AUTH_TOKEN_DIGEST_KEY is required", ErrConfig)
	}
	if c.DigestKey != "" {
		if _, err := token.HMACKey(c.DigestKey, 32); err != nil {
			return fmt.Errorf("%w: FINAPP_AUTH_TOKEN_DIGEST_KEY: %v", ErrConfig, err)
		}
	}
	return nil
}

// Digester returns the token digester selected by DigestKey.
func (c Config) Digester() token.Digester {
	if c.DigestKey == "" {
		return token.NewDigester(nil)
	}
	key, err := token.HMACKey(c.DigestKey, 32)
	if err != nil {
		return token.NewDigester(nil)
	}
	return token.NewDigester(key)
}
