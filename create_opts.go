package ustar

import (
	"io"
	"log/slog"
)

// createConfig holds configuration for archive creation.
type createConfig struct {
	verbose io.Writer
	logger  *slog.Logger
}

// CreateOption configures archive creation.
type CreateOption func(*createConfig)

// CreateWithVerbose prints an "a <name>" line to w for every object the
// walk visits.
func CreateWithVerbose(w io.Writer) CreateOption {
	return func(cfg *createConfig) {
		cfg.verbose = w
	}
}

// CreateWithLogger sets the logger for diagnostics. By default
// diagnostics are discarded.
func CreateWithLogger(logger *slog.Logger) CreateOption {
	return func(cfg *createConfig) {
		cfg.logger = logger
	}
}
