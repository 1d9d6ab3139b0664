package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel(" DEBUG "))
	require.Equal(t, slog.LevelWarn, parseLevel("warn"))
	require.Equal(t, slog.LevelError, parseLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLevel(""))
	require.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestBuildJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := build(&buf, "info", "json")
	log.Info("run completed", slog.String("plan_id", "p1"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "run completed", line["msg"])
	require.Equal(t, "p1", line["plan_id"])
}

func TestBuildFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := build(&buf, "warn", "")
	log.Info("ignored")
	require.Empty(t, buf.String())
	log.Warn("kept")
	require.Contains(t, buf.String(), "kept")
}
