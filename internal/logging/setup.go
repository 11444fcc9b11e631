package logging

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Options selects the level and destination of the application logger.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Verbose forces debug level.
	Verbose bool
	// File is an explicit log file path. When empty and ToFile is set, a
	// per-run file is created under the user cache dir.
	File   string
	ToFile bool
	// Mode and Document name the per-run log file.
	Mode     string
	Document string
	// Stderr receives logs when no file is used. Defaults to os.Stderr.
	Stderr io.Writer
}

// Setup builds the application logger. The returned close func releases the
// log file, if any; path is empty when logging to stderr.
func Setup(opts Options) (logger *slog.Logger, path string, closeFn func() error, err error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, "", nil, err
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: level}}

	if opts.File == "" && !opts.ToFile {
		out := opts.Stderr
		if out == nil {
			out = os.Stderr
		}
		return slog.New(NewPrettyHandler(out, handlerOpts)), "", func() error { return nil }, nil
	}

	path = opts.File
	if path == "" {
		if path, err = runLogPath(opts.Mode, opts.Document); err != nil {
			return nil, "", nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, "", nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", nil, err
	}
	return slog.New(NewPrettyHandler(f, handlerOpts)), path, f.Close, nil
}

// ParseLevel maps a config level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func runLogPath(mode, document string) (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	if mode == "" {
		mode = "run"
	}
	name := sanitizeName(strings.TrimSuffix(filepath.Base(document), filepath.Ext(document)))
	hash := sha1.Sum([]byte(document))
	suffix := hex.EncodeToString(hash[:])[:8]
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("contractqa-%s-%s-%s-%s.log", mode, name, timestamp, suffix)
	return filepath.Join(cacheDir, "contractqa", "logs", filename), nil
}

func sanitizeName(s string) string {
	if s == "" || s == "." {
		return "none"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
