// Package logging builds the structured JSON logger shared by every hecto
// component. Components add a "component" attribute and log event-style
// messages such as "match_created".
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// New returns a JSON logger writing to w at the named level ("debug",
// "info", "warn", "error"). A nil w writes to stderr.
func New(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if level == "" {
		level = "info"
	}
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
