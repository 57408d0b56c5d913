// Package logger configures the service-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger settings.
type Config struct {
	Level       string
	Environment string
	ServiceName string
	Version     string
	// Output defaults to stdout.
	Output io.Writer
}

// Logger wraps zerolog so handlers and services share one type.
type Logger struct {
	zerolog.Logger
}

// New creates a logger. Development environments get human readable console
// output, everything else gets JSON.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Environment == "development" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("version", cfg.Version).
		Logger()

	return &Logger{Logger: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// Component returns a child logger tagged with the given component name.
func (l *Logger) Component(component string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("component", component).Logger()}
}
