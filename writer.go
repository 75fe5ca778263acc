package ustar

import (
	"fmt"
	"io"
)

// Writer produces an archive stream.
//
// WriteHeader begins an entry; Write supplies its payload. Everything
// the writer emits is block-aligned: a payload is zero-padded to the
// next block boundary when the following header, or the terminator, is
// written. Close finishes the archive with a single all-zero block.
type Writer struct {
	w      io.Writer
	err    error // sticky stream error
	nb     int64 // payload bytes the current entry still expects
	pad    int64 // zero bytes owed after the payload
	closed bool
	block  [blockSize]byte
}

// NewWriter creates a Writer emitting to w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteHeader writes the header block for the next entry, padding the
// previous entry's payload first.
//
// An entry whose payload was not fully written is an error; the stream
// already promised those bytes. A header that cannot be marshaled (name
// or value too large) is reported without touching the stream, so the
// writer stays usable and the caller can skip the entry.
func (tw *Writer) WriteHeader(h *Header) error {
	if tw.err != nil {
		return tw.err
	}
	if tw.closed {
		return ErrWriteAfterClose
	}
	if tw.nb > 0 {
		tw.err = fmt.Errorf("ustar: entry payload short by %d bytes", tw.nb)
		return tw.err
	}
	if err := tw.flushPad(); err != nil {
		return err
	}
	clear(tw.block[:])
	if err := h.marshal(tw.block[:]); err != nil {
		return err
	}
	if _, err := tw.w.Write(tw.block[:]); err != nil {
		tw.err = err
		return err
	}
	tw.nb = h.payloadSize()
	tw.pad = -tw.nb & (blockSize - 1)
	return nil
}

// Write appends payload bytes for the current entry. Writing more than
// the header declared returns ErrWriteTooLong; the excess never reaches
// the stream.
func (tw *Writer) Write(p []byte) (int, error) {
	if tw.err != nil {
		return 0, tw.err
	}
	if tw.closed {
		return 0, ErrWriteAfterClose
	}
	overflow := int64(len(p)) > tw.nb
	if overflow {
		p = p[:tw.nb]
	}
	n, err := tw.w.Write(p)
	tw.nb -= int64(n)
	if err != nil {
		tw.err = err
		return n, err
	}
	if overflow {
		return n, ErrWriteTooLong
	}
	return n, nil
}

// Close pads the final entry and writes the end-of-archive terminator.
// It does not close the underlying writer.
func (tw *Writer) Close() error {
	if tw.err != nil {
		return tw.err
	}
	if tw.closed {
		return ErrWriteAfterClose
	}
	if tw.nb > 0 {
		tw.err = fmt.Errorf("ustar: entry payload short by %d bytes", tw.nb)
		return tw.err
	}
	if err := tw.flushPad(); err != nil {
		return err
	}
	if _, err := tw.w.Write(zeroBlock); err != nil {
		tw.err = err
		return err
	}
	tw.closed = true
	return nil
}

// flushPad writes the zero bytes completing the current entry's final
// block.
func (tw *Writer) flushPad() error {
	if tw.pad == 0 {
		return nil
	}
	if _, err := tw.w.Write(zeroBlock[:tw.pad]); err != nil {
		tw.err = err
		return err
	}
	tw.pad = 0
	return nil
}
