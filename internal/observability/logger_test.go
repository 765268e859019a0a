package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevelRecognisesNames(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for name, want := range cases {
		assert.Equal(t, want, ParseLevel(name), "name=%q", name)
	}
}

func TestInitJSONFormatWritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(slog.LevelInfo, &buf, "json")
	logger.Info("hello", "turn", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, float64(3), record["turn"])
}

func TestInitTextFormatIsDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(slog.LevelInfo, &buf, "anything-else")
	logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestInitRespectsLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(slog.LevelWarn, &buf, "text")
	logger.Debug("should be dropped")
	assert.Empty(t, strings.TrimSpace(buf.String()))
}

func TestInitInstallsDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(slog.LevelInfo, &buf, "json")
	slog.Default().Info("via package default")
	assert.Contains(t, buf.String(), "via package default")
}
