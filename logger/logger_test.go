package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewFromConfig(Config{Level: "debug", Service: "lgcert", Output: &buf, NoCaller: true})

	log.Errorf(errors.New("boom"), "payment %s failed", "REF-1")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "lgcert", entry["service"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "payment REF-1 failed", entry["message"])
}

func TestLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewFromConfig(Config{Level: "warn", Output: &buf, NoCaller: true})

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.With("component", "jobs").Warn("shown")
	assert.Contains(t, buf.String(), `"component":"jobs"`)
}
