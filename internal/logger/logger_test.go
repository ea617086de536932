package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirekapreview/reviewer/internal/logger"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLevelFiltering(t *testing.T) {
	testCases := []struct {
		name       string
		level      logger.LogLevel
		emit       func(l logger.Logger)
		wantOutput bool
	}{
		{"debug at debug", logger.LogLevelDebug, func(l logger.Logger) { l.Debug("m") }, true},
		{"debug at info", logger.LogLevelInfo, func(l logger.Logger) { l.Debug("m") }, false},
		{"trace at debug", logger.LogLevelDebug, func(l logger.Logger) { l.Trace("m") }, false},
		{"trace at trace", logger.LogLevelTrace, func(l logger.Logger) { l.Trace("m") }, true},
		{"warn at error", logger.LogLevelError, func(l logger.Logger) { l.Warn("m") }, false},
		{"error at error", logger.LogLevelError, func(l logger.Logger) { l.Error("m") }, true},
		{"explicit warn at info", logger.LogLevelInfo, func(l logger.Logger) { l.Log(logger.LogLevelWarn, "m") }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tc.emit(logger.NewSlogLogger(buf, tc.level, time.UTC))
			assert.Equal(t, tc.wantOutput, buf.Len() > 0)
		})
	}
}

func TestModuleAndFields(t *testing.T) {
	buf := &bytes.Buffer{}
	base := logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC)

	log := base.Module("review").Module("session").With(logger.String("sheet_id", "abc"))
	log.Info("submitted",
		logger.Int("total", 7),
		logger.Bool("verified", false),
		logger.Error(errors.New("boom")),
		logger.Duration("elapsed", 1500*time.Millisecond))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	rec := lines[0]
	assert.Equal(t, "review.session", rec["module"])
	assert.Equal(t, "abc", rec["sheet_id"])
	assert.InDelta(t, 7, rec["total"], 0)
	assert.Equal(t, false, rec["verified"])
	assert.Equal(t, "boom", rec["error"])
	assert.Equal(t, "1.5s", rec["elapsed"])
}

func TestWithDoesNotLeakIntoParent(t *testing.T) {
	buf := &bytes.Buffer{}
	parent := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC).Module("catalog")
	_ = parent.With(logger.Int("page", 3))

	parent.Info("loaded")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "page")
}

func TestWithContextAddsTraceID(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC)

	ctx := logger.WithTraceID(context.Background(), "req-123")
	log.WithContext(ctx).Info("request")
	log.WithContext(context.Background()).Info("no trace")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "req-123", lines[0]["trace_id"])
	assert.NotContains(t, lines[1], "trace_id")
}

func TestErrorFieldNil(t *testing.T) {
	f := logger.Error(nil)
	assert.Equal(t, "error", f.Key)
	assert.Nil(t, f.Value)
}

func TestCentralLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"ledger": "warn"},
	})
	require.NoError(t, err)

	cl.Module("catalog").Debug("page loaded", logger.Int("page", 2))
	cl.Module("ledger").Info("suppressed")
	cl.Module("ledger").Warn("save failed")
	require.NoError(t, cl.Flush())
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := decodeLines(t, bytes.NewBuffer(data))
	require.Len(t, lines, 2)
	assert.Equal(t, "catalog", lines[0]["module"])
	assert.Equal(t, "save failed", lines[1]["msg"])
}

func TestCentralLoggerRejectsBadTimezone(t *testing.T) {
	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = logger.NewCentralLogger(nil)
	require.Error(t, err)
}

func TestGlobalFallback(t *testing.T) {
	assert.NotNil(t, logger.Global())
	assert.NotNil(t, logger.Global().Module("test"))
}
