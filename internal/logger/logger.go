// Package logger configures the process-wide structured logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// New builds a logger writing to w at the given level ("debug", "info",
// "warn", "error"). Unknown levels fall back to info. Caller reporting is
// switched on at debug level.
func New(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}

	l := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
		ReportCaller:    lvl == log.DebugLevel,
	})
	return l
}

// Init replaces the default logger so packages logging through log.Default
// share the configuration.
func Init(level string) *log.Logger {
	l := New(os.Stderr, level)
	log.SetDefault(l)
	return l
}

// Discard returns a logger that drops everything; used by tests.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
