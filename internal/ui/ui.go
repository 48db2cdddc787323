// Package ui provides colored status messages for the CLI.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
)

// ColorMode determines when to use colored output.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// UI writes status messages to stderr, leaving stdout for PDF data.
type UI struct {
	out *termenv.Output
}

// New creates a UI writing to w (os.Stderr when nil). NO_COLOR disables colors.
func New(w io.Writer, mode ColorMode) *UI {
	if w == nil {
		w = os.Stderr
	}
	if os.Getenv("NO_COLOR") != "" {
		mode = ColorNever
	}

	var opts []termenv.OutputOption
	switch mode {
	case ColorNever:
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	case ColorAlways:
		profile := termenv.ColorProfile()
		if profile == termenv.Ascii {
			profile = termenv.ANSI256
		}
		opts = append(opts, termenv.WithProfile(profile))
	}

	return &UI{out: termenv.NewOutput(w, opts...)}
}

// Success prints a success message in green.
func (u *UI) Success(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintln(u.out, u.out.String("✓ "+msg).Foreground(termenv.ANSIGreen))
}

// Warning prints a warning message in yellow.
func (u *UI) Warning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintln(u.out, u.out.String("⚠ "+msg).Foreground(termenv.ANSIYellow))
}

// Error prints an error message in red.
func (u *UI) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintln(u.out, u.out.String("✗ "+msg).Foreground(termenv.ANSIRed))
}
