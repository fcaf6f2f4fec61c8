package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config contains logger configuration.
type Config struct {
	// Level is a zerolog level name. Unknown names fall back to info.
	Level string
	// Format is "console" for human-readable output, anything else for JSON.
	Format string
	// Output defaults to os.Stdout.
	Output io.Writer
}

// New creates a zerolog logger for the given configuration.
func New(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}
