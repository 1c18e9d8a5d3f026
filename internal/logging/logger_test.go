package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevelString(t *testing.T) {
	testCases := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LevelFatal, "FATAL"},
		{LogLevel(42), "UNKNOWN"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.level.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, level)

	level, err = ParseLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	logger.WithComponent("source").
		With("dir", "/in").
		Warn(context.Background(), errors.New("permission denied"), "listing failed", "cycle", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "listing failed", entry["msg"])
	assert.Equal(t, "source", entry["component"])
	assert.Equal(t, "/in", entry["dir"])
	assert.Equal(t, "permission denied", entry["error"])
	assert.EqualValues(t, 3, entry["cycle"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Output: &buf})
	ctx := context.Background()

	logger.Debug(ctx, "hidden debug")
	logger.Info(ctx, "hidden info")
	logger.Error(ctx, nil, "visible error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible error")
}

func TestMultiLogger(t *testing.T) {
	var a, b bytes.Buffer
	multi := NewMultiLogger(
		NewLogger(&LoggerConfig{Level: LevelInfo, Output: &a}),
		NewLogger(&LoggerConfig{Level: LevelInfo, Output: &b}),
	)

	multi.WithComponent("locker").Info(context.Background(), "claimed", "path", "/in/a.txt")

	for _, out := range []string{a.String(), b.String()} {
		assert.Contains(t, out, "claimed")
		assert.Contains(t, out, "component=locker")
	}
}

func TestFileLogger(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewFileLogger(&LoggerConfig{Level: LevelInfo, Format: "text"}, dir)
	require.NoError(t, err)

	logger.Info(context.Background(), "written to disk")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logger.Path())
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "written to disk"))
}

func TestPerfLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Output: &buf})

	op := StartOperation(logger, "poll_cycle")
	op.End(context.Background(), "emitted", 2)

	out := buf.String()
	assert.Contains(t, out, "operation=poll_cycle")
	assert.Contains(t, out, "duration_ms=")
	assert.Contains(t, out, "emitted=2")
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.With("k", "v").WithComponent("x").Error(context.Background(), errors.New("e"), "m")
	})
}
