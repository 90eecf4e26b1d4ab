package infra

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the service logger: JSON at info level in production,
// human-readable console output at debug level during development.
func NewLogger(appEnv string) zerolog.Logger {
	out := zerolog.LevelWriter(zerolog.MultiLevelWriter(os.Stdout))
	level := zerolog.InfoLevel
	if appEnv == "development" {
		out = zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "studioshot").
		Logger()
}

// Logger aliases zerolog.Logger so packages outside infra can accept a
// logger without importing the third-party module directly.
type Logger = zerolog.Logger
