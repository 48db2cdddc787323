// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type handlerType int

const (
	handlerText handlerType = iota
	handlerJSON
)

func newHandler(debug bool, w io.Writer, ht handlerType) slog.Handler {
	if w == nil {
		w = os.Stderr
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if ht == handlerJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Setup configures the global slog logger with text output.
// Output goes to w, or os.Stderr when w is nil.
func Setup(debug bool, w io.Writer) {
	slog.SetDefault(slog.New(newHandler(debug, w, handlerText)))
}

// SetupJSON configures the global slog logger with JSON output.
func SetupJSON(debug bool, w io.Writer) {
	slog.SetDefault(slog.New(newHandler(debug, w, handlerJSON)))
}

// SetupFormat picks the handler by name ("text" or "json"; empty means text).
func SetupFormat(format string, debug bool, w io.Writer) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		Setup(debug, w)
	case "json":
		SetupJSON(debug, w)
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", format)
	}
	return nil
}
