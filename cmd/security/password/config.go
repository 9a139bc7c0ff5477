package password

import (
	"fmt"
	"runtime"

	"github.com/caarlos0/env/v11"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int
	MaxLength int
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns the interactive-login baseline.
func DefaultConfig() Config {
	// Parallelism is clamped to [1..4] to keep container resource usage predictable.
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,      // 64 MiB
			Iterations:  3,              // reasonable default for interactive logins
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength:      8,
			MaxLength:      256,
			RejectVeryWeak: false,
		},
	}
}

// envConfig mirrors the env surface. It is pre-filled from DefaultConfig so
// unset keys keep their defaults.
type envConfig struct {
	MinLen         int    `env:"FINAPP_PASSWORD_MIN_LEN"`
	MaxLen         int    `env:"FINAPP_PASSWORD_MAX_LEN"`
	RejectVeryWeak bool   `env:"FINAPP_PASSWORD_REJECT_VERY_WEAK"`
	MemoryKiB      uint32 `env:"FINAPP_ARGON2_MEMORY_KIB"`
	Iterations     uint32 `env:"FINAPP_ARGON2_ITERATIONS"`
	Parallelism    uint32 `env:"FINAPP_ARGON2_PARALLELISM"`
	SaltLen        uint32 `env:"FINAPP_ARGON2_SALT_LEN"`
	KeyLen         uint32 `env:"FINAPP_ARGON2_KEY_LEN"`
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - FINAPP_PASSWORD_MIN_LEN
// - FINAPP_PASSWORD_MAX_LEN
// - FINAPP_PASSWORD_REJECT_VERY_WEAK (true/false)
// - FINAPP_ARGON2_MEMORY_KIB
// - FINAPP_ARGON2_ITERATIONS
// - FINAPP_ARGON2_PARALLELISM
// - FINAPP_ARGON2_SALT_LEN
// - FINAPP_ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	def := DefaultConfig()
	raw := envConfig{
		MinLen:         def.Policy.MinLength,
		MaxLen:         def.Policy.MaxLength,
		RejectVeryWeak: def.Policy.RejectVeryWeak,
		MemoryKiB:      def.Params.MemoryKiB,
		Iterations:     def.Params.Iterations,
		Parallelism:    uint32(def.Params.Parallelism),
		SaltLen:        def.Params.SaltLength,
		KeyLen:         def.Params.KeyLength,
	}
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("password config: %w", err)
	}
	return raw.validate()
}

func (raw envConfig) validate() (Config, error) {
	checks := []error{
		checkRange("FINAPP_PASSWORD_MIN_LEN", raw.MinLen, 1, 1024),
		checkRange("FINAPP_PASSWORD_MAX_LEN", raw.MaxLen, 1, 4096),
		checkRange("FINAPP_ARGON2_MEMORY_KIB", raw.MemoryKiB, 8*1024, 1024*1024), // 8 MiB .. 1 GiB
		checkRange("FINAPP_ARGON2_ITERATIONS", raw.Iterations, 1, 20),
		checkRange("FINAPP_ARGON2_PARALLELISM", raw.Parallelism, 1, 64),
		checkRange("FINAPP_ARGON2_SALT_LEN", raw.SaltLen, 8, 64),
		checkRange("FINAPP_ARGON2_KEY_LEN", raw.KeyLen, 16, 64),
	}
	for _, err := range checks {
		if err != nil {
			return Config{}, err
		}
	}

	if raw.MinLen > raw.MaxLen {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			raw.MinLen,
			raw.MaxLen,
		)
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   raw.MemoryKiB,
			Iterations:  raw.Iterations,
			Parallelism: uint8(raw.Parallelism), // #nosec G115 -- bounded to [1..64] above.
			SaltLength:  raw.SaltLen,
			KeyLength:   raw.KeyLen,
		},
		Policy: Policy{
			MinLength:      raw.MinLen,
			MaxLength:      raw.MaxLen,
			RejectVeryWeak: raw.RejectVeryWeak,
		},
	}, nil
}

func checkRange[T int | uint32](key string, v, minVal, maxVal T) error {
	if v < minVal || v > maxVal {
		return fmt.Errorf("%s: out of range [%d..%d]", key, minVal, maxVal)
	}
	return nil
}
