package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log, err := New("debug", "json", &buf)
	require.NoError(t, err)

	log.Debug().Str("instrument", "EURUSD").Msg("poll")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "EURUSD", line["instrument"])
	assert.Equal(t, "poll", line["message"])
	assert.Contains(t, line, "time")
}

func TestNewConsoleFiltersLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log, err := New("WARN", "", &buf)
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Warn().Str("run", "r1").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "run=r1")
}

func TestNewRejectsBadInput(t *testing.T) {
	t.Parallel()
	_, err := New("loud", "json", nil)
	assert.Error(t, err)
	_, err = New("info", "xml", nil)
	assert.Error(t, err)
}
