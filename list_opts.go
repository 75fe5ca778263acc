package ustar

import "log/slog"

// listConfig holds configuration for listing.
type listConfig struct {
	members []string
	verbose bool
	logger  *slog.Logger
}

// ListOption configures listing.
type ListOption func(*listConfig)

// ListWithMembers limits the listing to the named members, with the same
// matching rules as ExtractWithMembers.
func ListWithMembers(members []string) ListOption {
	return func(cfg *listConfig) {
		cfg.members = members
	}
}

// ListWithVerbose switches to long-form lines with mode, owner, size,
// and time.
func ListWithVerbose() ListOption {
	return func(cfg *listConfig) {
		cfg.verbose = true
	}
}

// ListWithLogger sets the logger for diagnostics. Without one,
// diagnostics are discarded.
func ListWithLogger(logger *slog.Logger) ListOption {
	return func(cfg *listConfig) {
		cfg.logger = logger
	}
}
