package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(Config{
		Level:       "debug",
		Environment: "production",
		ServiceName: "brand-navigator",
		Version:     "1.2.3",
		Output:      &buf,
	})

	log.Component("status").Info().Str("brand_id", "b1").Msg("Brand progressed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "brand-navigator", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "status", entry["component"])
	assert.Equal(t, "b1", entry["brand_id"])
	assert.Equal(t, "Brand progressed", entry["message"])
}

func TestNew_LevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("kept")
	assert.NotZero(t, buf.Len())
}

func TestNew_InvalidLevelDefaultsToInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(Config{Level: "loud", Output: &buf})

	log.Debug().Msg("dropped")
	assert.Zero(t, buf.Len())
	log.Info().Msg("kept")
	assert.NotZero(t, buf.Len())
}
