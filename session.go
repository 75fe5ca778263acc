package ustar

import "log/slog"

// session carries the state every engine shares: the logger, the running
// stats, and the warn-once latches used on the read side.
type session struct {
	logger *slog.Logger
	stats  Stats

	warnedBadHeader bool
	warnedChecksum  bool
	warnedAbsolute  bool
}

// log returns the logger, falling back to a discard logger if nil.
func (s *session) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// soft records a recoverable per-entry failure: logged, counted, never
// fatal.
func (s *session) soft(err error) {
	s.stats.Errors++
	s.log().Warn("entry failed", "error", err)
}

// badHeader records a malformed block. It warns only once until a good
// header appears, so a stretch of garbage does not flood the log.
func (s *session) badHeader(err error) {
	s.stats.Errors++
	if s.warnedBadHeader {
		return
	}
	s.warnedBadHeader = true
	s.log().Warn("skipping bad header block", "error", err)
}

// noteHeader handles the diagnostics that fire at most once per run
// (checksum mismatches, stripped absolute names) and re-arms the
// bad-header warning now that a good header appeared.
func (s *session) noteHeader(h *Header) {
	s.warnedBadHeader = false
	if !h.ChecksumOK && !s.warnedChecksum {
		s.warnedChecksum = true
		s.log().Warn("header checksum mismatch (tolerated)", "path", h.Name)
	}
	if h.Absolute && !s.warnedAbsolute {
		s.warnedAbsolute = true
		s.log().Warn("removing leading '/' from member names", "path", h.Name)
	}
}
