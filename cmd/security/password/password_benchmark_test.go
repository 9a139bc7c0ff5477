package password

import "testing"

const benchPassword = "ledger-balance-4471-spring"

// Cost of a single register at production defaults.
func BenchmarkHash(b *testing.B) {
	cfg := DefaultConfig()
	for b.Loop() {
		if _, err := cfg.Hash(benchPassword); err != nil {
			b.Fatal(err)
		}
	}
}

// Cost of a login check at production defaults, and for a legacy bcrypt row.
func BenchmarkVerify(b *testing.B) {
	cfg := DefaultConfig()
	argon, err := cfg.Hash(benchPassword)
	if err != nil {
		b.Fatal(err)
	}
	legacy := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

	b.Run("argon2id", func(b *testing.B) {
		for b.Loop() {
			if ok, err := cfg.Verify(argon, benchPassword); err != nil || !ok {
				b.Fatalf("ok=%v err=%v", ok, err)
			}
		}
	})
	b.Run("bcrypt", func(b *testing.B) {
		for b.Loop() {
			if _, err := cfg.Verify(legacy, benchPassword); err != nil {
				b.Fatal(err)
			}
		}
	})
}
