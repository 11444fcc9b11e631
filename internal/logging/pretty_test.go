package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandlerHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("Level message and attributes", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug}})

		record := slog.NewRecord(time.Now(), slog.LevelDebug, "embedded batch", 0)
		record.AddAttrs(slog.Int("texts", 42), slog.Any("error", errors.New("boom")))
		require.NoError(t, h.Handle(ctx, record))

		out := buf.String()
		assert.Contains(t, out, "DEBUG:")
		assert.Contains(t, out, "embedded batch")
		assert.Contains(t, out, `"texts":42`)
		assert.Contains(t, out, `"error":"boom"`)
		assert.Regexp(t, `\[\d{2}:\d{2}:\d{2}\.\d{3}\]`, out)
	})

	t.Run("No attributes prints empty object", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewPrettyHandler(&buf, PrettyHandlerOptions{})
		require.NoError(t, h.Handle(ctx, slog.NewRecord(time.Now(), slog.LevelWarn, "slow", 0)))
		assert.Contains(t, buf.String(), "WARN:")
		assert.Contains(t, buf.String(), "{}")
	})

	t.Run("Logger attributes and groups are kept", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(NewPrettyHandler(&buf, PrettyHandlerOptions{}))
		logger.With(slog.String("session", "abc")).WithGroup("index").Info("ready", slog.Int("chunks", 3))

		out := buf.String()
		assert.Contains(t, out, "INFO:")
		assert.Contains(t, out, `"session":"abc"`)
		assert.Contains(t, out, `"index.chunks":3`)
	})

	t.Run("Level filter", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: slog.LevelWarn}}))
		logger.Info("hidden")
		logger.Error("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "ERROR:")
	})
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestSetup(t *testing.T) {
	t.Run("Stderr", func(t *testing.T) {
		var buf bytes.Buffer
		logger, path, closeFn, err := Setup(Options{Level: "info", Verbose: true, Stderr: &buf})
		require.NoError(t, err)
		defer closeFn()
		assert.Empty(t, path)
		logger.Debug("verbose line")
		assert.Contains(t, buf.String(), "verbose line")
	})

	t.Run("Explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "run.log")
		logger, got, closeFn, err := Setup(Options{File: path})
		require.NoError(t, err)
		assert.Equal(t, path, got)
		logger.Info("to file")
		require.NoError(t, closeFn())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})

	t.Run("Bad level", func(t *testing.T) {
		_, _, _, err := Setup(Options{Level: "loud"})
		assert.Error(t, err)
	})
}

func TestRunLogPath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	path, err := runLogPath("tui", "/docs/Master Services Agreement.pdf")
	require.NoError(t, err)
	base := filepath.Base(path)
	assert.Regexp(t, `^contractqa-tui-Master_Services_Agreement-\d{8}-\d{6}-[0-9a-f]{8}\.log$`, base)
	assert.Equal(t, "logs", filepath.Base(filepath.Dir(path)))
}
