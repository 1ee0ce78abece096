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

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			level, err := ParseLevel(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, level)
		})
	}
}

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	logger.WithComponent("engine").With("gen_id", 7).
		Error(context.Background(), errors.New("boom"), "generation failed", "strategy", "base")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "generation failed", record["msg"])
	assert.Equal(t, "engine", record["component"])
	assert.Equal(t, "boom", record["error"])
	assert.Equal(t, float64(7), record["gen_id"])
	assert.Equal(t, "base", record["strategy"])
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Output: &buf})

	logger.Debug(context.Background(), "hidden")
	logger.Info(context.Background(), "hidden")
	assert.Empty(t, buf.String())

	logger.Warn(context.Background(), nil, "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestMultiLogger(t *testing.T) {
	var a, b bytes.Buffer
	multi := NewMultiLogger(
		NewLogger(&LoggerConfig{Level: LevelInfo, Output: &a}),
		NewLogger(&LoggerConfig{Level: LevelInfo, Output: &b}),
	)

	multi.WithComponent("server").Info(context.Background(), "listening", "port", 8080)

	assert.Contains(t, a.String(), "listening")
	assert.Contains(t, b.String(), "component=server")
}

func TestFileLogger(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(&LoggerConfig{Level: LevelInfo}, dir)
	require.NoError(t, err)

	logger.Info(context.Background(), "persisted")
	require.NoError(t, logger.Close())

	assert.True(t, strings.HasPrefix(logger.Path(), dir))
	data, err := os.ReadFile(logger.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "persisted")
}

func TestLogEventSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogEventSink(NewLogger(&LoggerConfig{Level: LevelInfo, Format: "json", Output: &buf}))

	sink.Event(context.Background(), EventGenBackup, map[string]any{"user_id": 3})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, string(EventGenBackup), record["event"])
	assert.Equal(t, float64(3), record["user_id"])
	assert.Equal(t, "events", record["component"])
}

func TestMemoryEventSink(t *testing.T) {
	sink := NewMemoryEventSink()
	sink.Event(context.Background(), EventGenCreate, map[string]any{"id": 1})
	sink.Event(context.Background(), EventGenBackup, nil)

	assert.Len(t, sink.Events(), 2)
	require.Len(t, sink.OfKind(EventGenCreate), 1)
	assert.Equal(t, 1, sink.OfKind(EventGenCreate)[0].Payload["id"])
}
