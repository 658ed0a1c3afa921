package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("LGCERT_SESSION_FILE", "")
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, BackendHTTP, cfg.Backend)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.NotEmpty(t, cfg.SessionFile)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("LGCERT_BACKEND", "mock")
	t.Setenv("LGCERT_TIMEOUT", "5s")
	t.Setenv("LGCERT_SESSION_FILE", "/tmp/s.json")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, BackendMock, cfg.Backend)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "/tmp/s.json", cfg.SessionFile)
}
