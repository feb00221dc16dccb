// Package logx builds the zerolog loggers used across postplanner.
package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// New returns a console logger writing to stderr. Verbose forces debug level
// and adds caller information.
func New(level string, verbose bool) zerolog.Logger {
	return NewWriter(os.Stderr, level, verbose)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, level string, verbose bool) zerolog.Logger {
	zerolog.ErrorFieldName = "err"

	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat, NoColor: w != io.Writer(os.Stderr)}
	lvl := ParseLevel(level, zerolog.InfoLevel)
	if verbose {
		lvl = zerolog.DebugLevel
	}

	ctx := zerolog.New(cw).Level(lvl).With().Timestamp()
	if verbose {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// ParseLevel maps config strings such as "INFO" or "warning" to a zerolog level.
func ParseLevel(s string, fallback zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return fallback
	}
}
