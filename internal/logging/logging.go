// Package logging builds the decred/slog backend and per-subsystem loggers
// used throughout this module, mirroring the teacher's
// logBackend.Logger("SUBSYS") pattern.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/decred/slog"
)

// Config controls the shared logging backend.
type Config struct {
	// Level is one of trace, debug, info, warn, error, critical, off.
	Level string
	// LogFile, if set, additionally writes to this path (opened in append
	// mode, and reopened the same way on Rotate).
	LogFile string
}

func (c Config) withDefaults() Config {
	if c.Level == "" {
		c.Level = "info"
	}
	return c
}

// Backend owns the shared slog.Backend and the optional log file handle,
// so Rotate can reopen it without tearing down loggers already handed out.
type Backend struct {
	mu      sync.Mutex
	level   slog.Level
	file    *os.File
	logFile string
	backend *slog.Backend
}

// NewBackend constructs the shared backend. Writes go to stderr, and
// additionally to Config.LogFile when set.
func NewBackend(cfg Config) (*Backend, error) {
	cfg = cfg.withDefaults()
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	b := &Backend{level: level, logFile: cfg.LogFile}
	if err := b.openLogFile(); err != nil {
		return nil, err
	}
	b.rebuild()
	return b, nil
}

func (b *Backend) openLogFile() error {
	if b.logFile == "" {
		return nil
	}
	f, err := os.OpenFile(b.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("logging: open log file: %w", err)
	}
	b.file = f
	return nil
}

func (b *Backend) rebuild() {
	var w io.Writer = os.Stderr
	if b.file != nil {
		w = io.MultiWriter(os.Stderr, b.file)
	}
	b.backend = slog.NewBackend(w)
}

// Logger returns a tagged logger for one subsystem (e.g. "TABLE", "RNG",
// "TOURNAMENT"), at the backend's configured level.
func (b *Backend) Logger(subsystemTag string) slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	l := b.backend.Logger(subsystemTag)
	l.SetLevel(b.level)
	return l
}

// Rotate closes and reopens the log file, for external log rotation
// (logrotate, SIGHUP handlers) to call without restarting the process.
func (b *Backend) Rotate() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file != nil {
		b.file.Close()
	}
	if err := b.openLogFile(); err != nil {
		return err
	}
	b.rebuild()
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return slog.LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "critical":
		return slog.LevelCritical, nil
	case "off":
		return slog.LevelOff, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", s)
	}
}
