package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 2*time.Second, cfg.MatchInterval)
	assert.Equal(t, 20*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("DEBUG", "true")
	t.Setenv("API_KEYS", "alpha,beta")
	t.Setenv("MATCH_INTERVAL", "500ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.APIKeys)
	assert.Equal(t, 500*time.Millisecond, cfg.MatchInterval)
}
