package config

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates the process logger. Every entry carries the process name
// so the API, worker and bot streams can be told apart once aggregated.
func NewLogger(cfg LoggerConfig, process string) zerolog.Logger {
	return newLogger(cfg, process, os.Stdout)
}

func newLogger(cfg LoggerConfig, process string, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Str("process", process).
		Logger()
}
