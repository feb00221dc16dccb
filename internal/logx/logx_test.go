package logx

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARNING", zerolog.InfoLevel))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug", zerolog.InfoLevel))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus", zerolog.InfoLevel))
}

func TestNewWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "error", false)
	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Error().Str("content_id", "abc").Msg("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "abc")
}

func TestVerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "error", true)
	log.Debug().Msg("debugging")
	assert.Contains(t, buf.String(), "debugging")
}
