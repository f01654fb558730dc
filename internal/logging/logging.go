package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger. Development output is a
// human-readable console writer; everything else is JSON on stdout.
func Setup(debug bool, environment string) zerolog.Logger {
	return SetupWithWriter(os.Stdout, debug, environment)
}

func SetupWithWriter(w io.Writer, debug bool, environment string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	out := w
	if environment == "" || environment == "development" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).With().Timestamp().Str("env", environment).Logger()
	if debug {
		logger = logger.With().Caller().Logger()
	}
	log.Logger = logger
	return logger
}

// Ctx returns the request-scoped logger, falling back to the global one.
func Ctx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
