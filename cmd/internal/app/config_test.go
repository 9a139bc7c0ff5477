package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("FINAPP_HTTP_ADDR", "127.0.0.1:9090")
	t.Setenv("FINAPP_LOG_FORMAT", "text")
	t.Setenv("FINAPP_RATE_LIMIT_REQUESTS", "50")
	t.Setenv("FINAPP_RATE_LIMIT_WINDOW", "30s")
	t.Setenv("FINAPP_DATABASE_URL", "postgres://finapp@localhost/finapp")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.HTTPAddr)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 50, cfg.RateLimitRequests)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, "postgres://finapp@localhost/finapp", cfg.DatabaseURL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"FINAPP_RATE_LIMIT_REQUESTS": "0",
		"FINAPP_RATE_LIMIT_WINDOW":   "soon",
		"FINAPP_LOG_FORMAT":          "xml",
		"FINAPP_DB_MIN_CONNS":        "20",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			_, err := LoadConfig()
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}
