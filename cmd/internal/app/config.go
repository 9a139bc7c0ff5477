package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ErrConfig wraps invalid runtime configuration.
var ErrConfig = errors.New("app: invalid config")

// Config contains the process-level runtime configuration.
type Config struct {
	HTTPAddr  string `env:"FINAPP_HTTP_ADDR"`
	LogLevel  string `env:"FINAPP_LOG_LEVEL"`
	LogFormat string `env:"FINAPP_LOG_FORMAT"` // json | text

	ReadHeaderTimeout time.Duration `env:"FINAPP_HTTP_READ_HEADER_TIMEOUT"`
	ReadTimeout       time.Duration `env:"FINAPP_HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `env:"FINAPP_HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `env:"FINAPP_HTTP_IDLE_TIMEOUT"`
	ShutdownTimeout   time.Duration `env:"FINAPP_HTTP_SHUTDOWN_TIMEOUT"`
	MaxHeaderBytes    int           `env:"FINAPP_HTTP_MAX_HEADER_BYTES"`

	// DatabaseURL selects Postgres-backed stores; empty runs in memory.
	DatabaseURL string `env:"FINAPP_DATABASE_URL"`
	DBMaxConns  int32  `env:"FINAPP_DB_MAX_CONNS"`
	DBMinConns  int32  `env:"FINAPP_DB_MIN_CONNS"`

	// ReadinessRequireDB makes /readyz fail unless a database is configured.
	ReadinessRequireDB bool `env:"FINAPP_READINESS_REQUIRE_DB"`

	RateLimitRequests int           `env:"FINAPP_RATE_LIMIT_REQUESTS"`
	RateLimitWindow   time.Duration `env:"FINAPP_RATE_LIMIT_WINDOW"`
}

// DefaultConfig returns local development defaults.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:  "0.0.0.0:8080",
		LogLevel:  "info",
		LogFormat: "json",

		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		MaxHeaderBytes:    1 << 20,

		DBMaxConns: 10,
		DBMinConns: 0,

		RateLimitRequests: 5,
		RateLimitWindow:   60 * time.Second,
	}
}

// LoadConfig overlays FINAPP_* environment variables on DefaultConfig.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	switch {
	case c.HTTPAddr == "":
		return fmt.Errorf("%w: FINAPP_HTTP_ADDR is empty", ErrConfig)
	case c.LogFormat != "json" && c.LogFormat != "text":
		return fmt.Errorf("%w: FINAPP_LOG_FORMAT must be json or text", ErrConfig)
	case c.RateLimitRequests <= 0:
		return fmt.Errorf("%w: FINAPP_RATE_LIMIT_REQUESTS must be > 0", ErrConfig)
	case c.RateLimitWindow <= 0:
		return fmt.Errorf("%w: FINAPP_RATE_LIMIT_WINDOW must be > 0", ErrConfig)
	case c.DBMinConns < 0 || c.DBMaxConns < 0 || (c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns):
		return fmt.Errorf("%w: invalid DB pool bounds", ErrConfig)
	}
	return nil
}
