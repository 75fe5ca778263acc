package ustar

import "errors"

// Sentinel errors for archive operations.
var (
	// ErrBadHeader is returned by Reader.Next when a block that should
	// hold a header fails to parse. The reader has advanced past the bad
	// block and remains usable; callers typically warn and call Next
	// again.
	ErrBadHeader = errors.New("ustar: bad header block")

	// ErrFieldTooLong is returned when a name or link target does not fit
	// its fixed-width header field.
	ErrFieldTooLong = errors.New("ustar: field does not fit in header")

	// ErrWriteTooLong is returned when more payload bytes are written than
	// the entry's header declared.
	ErrWriteTooLong = errors.New("ustar: write too long")

	// ErrWriteAfterClose is returned when a Writer is used after Close.
	ErrWriteAfterClose = errors.New("ustar: write after close")
)
