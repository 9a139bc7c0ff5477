package authapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("FINAPP_AUTH_TRUST_PROXY", "true")
	t.Setenv("FINAPP_AUTH_MAX_BODY_BYTES", "4096")
	t.Setenv("FINAPP_AUTH_LOGIN_BLOCK_ENFORCED", "true")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.TrustProxy)
	assert.True(t, cfg.EnforceLoginBlock)
	assert.EqualValues(t, 4096, cfg.MaxBodyBytes)
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	t.Setenv("FINAPP_AUTH_MAX_BODY_BYTES", "0")
	_, err := LoadConfigFromEnv()
	assert.ErrorIs(t, err, ErrConfig)

	t.Setenv("FINAPP_AUTH_MAX_BODY_BYTES", "lots")
	_, err = LoadConfigFromEnv()
	assert.ErrorIs(t, err, ErrConfig)
}
