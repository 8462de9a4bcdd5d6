package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	setup(&buf, "warn", "json")

	log.Info().Msg("hidden")
	logger := Component("runner")
	logger.Warn().Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "runner", entry["component"])
	assert.Equal(t, "warn", entry["level"])
}

func TestSetupUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	setup(&buf, "loud", "json")
	assert.Contains(t, buf.String(), "unknown log level")

	buf.Reset()
	log.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
}
