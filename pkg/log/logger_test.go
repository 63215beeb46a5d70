package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{LogLevel: zerolog.InfoLevel, Type: JSONLogger, Output: &buf})
	t.Cleanup(func() { Init(Options{LogLevel: zerolog.Disabled, Type: JSONLogger, Output: &bytes.Buffer{}}) })

	Settlement.Info().Uint64("index", 3).Msg("challenge staked")
	Settlement.Debug().Msg("filtered out")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "settlement", line["component"])
	assert.Equal(t, "challenge staked", line["message"])
	assert.Equal(t, float64(3), line["index"])
}

func TestInitConsole(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{LogLevel: zerolog.DebugLevel, Type: ConsoleLogger, Output: &buf})
	t.Cleanup(func() { Init(Options{LogLevel: zerolog.Disabled, Type: JSONLogger, Output: &bytes.Buffer{}}) })

	Store.Debug().Msg("snapshot written")
	assert.Contains(t, buf.String(), `message: "snapshot written"`)
	assert.Contains(t, buf.String(), "| DEBUG |")
}

func TestParse(t *testing.T) {
	lvl, err := ParseLogLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, lvl)

	typ, err := ParseLoggerType("json")
	require.NoError(t, err)
	assert.Equal(t, JSONLogger, typ)

	typ, err = ParseLoggerType("text")
	require.NoError(t, err)
	assert.Equal(t, ConsoleLogger, typ)

	_, err = ParseLoggerType("xml")
	assert.Error(t, err)
}
