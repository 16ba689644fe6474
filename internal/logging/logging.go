// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Formats accepted by Init.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var level = new(slog.LevelVar)

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// Init installs a default logger that writes every record to each writer.
// With no writers it logs to stderr. It returns the installed logger.
func Init(lvl slog.Level, format string, writers ...io.Writer) (*slog.Logger, error) {
	if len(writers) == 0 {
		writers = []io.Writer{os.Stderr}
	}
	level.Set(lvl)

	handlers := make([]slog.Handler, 0, len(writers))
	opts := &slog.HandlerOptions{Level: level}
	for _, w := range writers {
		switch format {
		case "", FormatText:
			handlers = append(handlers, slog.NewTextHandler(w, opts))
		case FormatJSON:
			handlers = append(handlers, slog.NewJSONHandler(w, opts))
		default:
			return nil, fmt.Errorf("invalid log format %q: must be text or json", format)
		}
	}

	logger := slog.New(slogmulti.Fanout(handlers...))
	slog.SetDefault(logger)
	return logger, nil
}

// SetLevel changes the level of the logger installed by Init.
func SetLevel(lvl slog.Level) {
	level.Set(lvl)
}

// New returns the default logger scoped to a component.
func New(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// OpenFile opens a log file for appending, creating parent directories.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
