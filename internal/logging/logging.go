// Package logging builds the slog loggers shared by the CLI, the terminal
// browser and the web panel. Every logger masks credentials, so a token or
// password passed as an attribute never reaches the output.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Redacted replaces the value of every secret attribute.
const Redacted = "[redacted]"

// secretKeys are attribute keys whose values are masked, compared without
// case.
var secretKeys = map[string]bool{
	"token":         true,
	"accesstoken":   true,
	"refreshtoken":  true,
	"password":      true,
	"authorization": true,
}

// NewLogger writes to stderr, leaving stdout to command output.
func NewLogger(level slog.Level, format string) *slog.Logger {
	return NewLoggerWithWriter(level, format, os.Stderr)
}

// NewLoggerWithWriter writes to w. format is "json" or, by default, "text".
func NewLoggerWithWriter(level slog.Level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   level <= slog.LevelDebug,
		ReplaceAttr: redact,
	}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// OpenFile appends to the log file at path, creating it and its directory.
// The caller closes the returned file.
func OpenFile(path string, level slog.Level, format string) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return NewLoggerWithWriter(level, format, f), f, nil
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] && a.Value.Kind() != slog.KindGroup {
		return slog.String(a.Key, Redacted)
	}
	return a
}

// Discard drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns l, or Discard() for nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// ParseLevel maps a level name to slog.Level. Unknown names give INFO.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		name = "WARN"
	}
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return l
}
