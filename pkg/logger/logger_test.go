package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optacq/pkg/config"
)

func TestNew_SetsGlobalLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(&config.Config{Env: "test", LogLevel: tt.level, LogFormat: "json"}, &buf)
			require.NotNil(t, log)
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"invalid", zerolog.InfoLevel}, // Default
		{"", zerolog.InfoLevel},        // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log := &Logger{zlog: zerolog.New(&buf)}

	log.WithFields(map[string]interface{}{
		"ticker":  "AAPL",
		"workers": 8,
	}).WithField("run_id", "r-1").Info("acquisition started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "AAPL", entry["ticker"])
	assert.Equal(t, float64(8), entry["workers"])
	assert.Equal(t, "r-1", entry["run_id"])
	assert.Equal(t, "acquisition started", entry["message"])
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log := &Logger{zlog: zerolog.New(&buf)}

	log.WithError(errors.New("chain fetch failed")).Error("worker failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "chain fetch failed", entry["error"])
	assert.Equal(t, "error", entry["level"])
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "test", LogLevel: "info", LogFormat: "console"}, &buf)
	log.Infof("cached %d chains", 3)

	assert.True(t, strings.Contains(buf.String(), "cached 3 chains"))
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optacq.log")

	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "test", LogLevel: "info", LogFile: path}, &buf)
	log.Info("written to both")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to both")
	assert.Contains(t, buf.String(), "written to both")
}

func TestNop(t *testing.T) {
	log := Nop()
	log.WithField("k", "v").Error("discarded")
}
