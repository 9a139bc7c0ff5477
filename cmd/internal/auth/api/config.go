package authapi

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ErrConfig wraps invalid auth API configuration.
var ErrConfig = errors.New("authapi: invalid config")

// Config controls request handling of the auth endpoints.
type Config struct {
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool `env:"FINAPP_AUTH_TRUST_PROXY"`

	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64 `env:"FINAPP_AUTH_MAX_BODY_BYTES"`

	// EnforceLoginBlock rejects logins still inside a backoff window
	// before the password is checked.
	EnforceLoginBlock bool `env:"FINAPP_AUTH_LOGIN_BLOCK_ENFORCED"`
}

// DefaultConfig returns safe defaults.
func DefaultConfig() Config {
	return Config{
		TrustProxy:   false,
		MaxBodyBytes: 1 << 20, // 1 MiB
	}
}

// LoadConfigFromEnv overlays FINAPP_AUTH_* variables on DefaultConfig.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("%w: FINAPP_AUTH_MAX_BODY_BYTES must be > 0", ErrConfig)
	}
	return cfg, nil
}
