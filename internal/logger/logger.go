// Package logger provides leveled logging with support for debug, info, warn, and error levels.
// It keeps a printf-style package API and writes through zerolog, as JSON lines or
// human-readable console output depending on the configured format.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	out io.Writer = os.Stderr

	// Global logger instance; nil until Init is called
	defaultLogger *zerolog.Logger
)

// Init initializes the default logger with the specified level and format
func Init(level string, format string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	mu.Lock()
	defer mu.Unlock()

	w := out
	if strings.ToLower(format) == "text" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
	defaultLogger = &l
}

// SetOutput redirects subsequent Init calls to w
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// parseLevel maps a config level to zerolog, defaulting to info
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Named returns a child logger with a component field.
// Before Init it returns a disabled logger so library code never panics.
func Named(component string) *zerolog.Logger {
	l := current()
	if l == nil {
		nop := zerolog.Nop()
		return &nop
	}
	child := l.With().Str("component", component).Logger()
	return &child
}

// Debug logs a message at DebugLevel
func Debug(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Debug().Msg(fmt.Sprintf(format, args...))
	}
}

// Info logs a message at InfoLevel
func Info(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Info().Msg(fmt.Sprintf(format, args...))
	}
}

// Warn logs a message at WarnLevel
func Warn(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Error logs a message at ErrorLevel
func Error(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Error().Msg(fmt.Sprintf(format, args...))
	}
}

// Fatal logs a message and exits
func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l := current(); l != nil {
		l.WithLevel(zerolog.FatalLevel).Msg(msg)
	} else {
		fmt.Fprintln(os.Stderr, "[FATAL] "+msg)
	}
	os.Exit(1)
}
