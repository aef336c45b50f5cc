// Package logutil carries a zerolog logger through request contexts.
package logutil

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type key byte

var loggerKey = key(1)

// New returns the process-wide base logger.
func New(service string) zerolog.Logger {
	return zerolog.New(os.Stderr).With().
		Timestamp().
		Str("service", service).
		Logger()
}

func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func GetOrDefault(ctx context.Context) zerolog.Logger {
	v := ctx.Value(loggerKey)
	if v == nil {
		return log.Logger
	}
	return v.(zerolog.Logger)
}
