package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/budget/internal/config"
)

// NewLogger creates a structured zerolog.Logger writing JSON to stdout.
// The service name is attached when configured.
func NewLogger(cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(os.Stdout).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.Organisation != "" {
		ctx = ctx.Str("organisation", cfg.Organisation)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
