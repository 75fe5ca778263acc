package ustar

import (
	"io"
	"log/slog"
)

// extractConfig holds configuration for extraction.
type extractConfig struct {
	members []string
	verbose io.Writer
	stdout  io.Writer
	logger  *slog.Logger
}

// ExtractOption configures extraction.
type ExtractOption func(*extractConfig)

// ExtractWithMembers limits extraction to the named members: exact
// matches, plus everything beneath a member naming a directory. Nil or
// empty extracts the whole archive.
func ExtractWithMembers(members []string) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.members = members
	}
}

// ExtractWithVerbose writes an "x <name>" line to w for every accepted
// entry.
func ExtractWithVerbose(w io.Writer) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.verbose = w
	}
}

// ExtractWithStdout diverts regular-file payloads to w instead of
// restoring entries to the filesystem. No directories, links, or special
// files are created in this mode.
func ExtractWithStdout(w io.Writer) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.stdout = w
	}
}

// ExtractWithLogger sets the logger for diagnostics. Without one,
// diagnostics are discarded.
func ExtractWithLogger(logger *slog.Logger) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.logger = logger
	}
}
