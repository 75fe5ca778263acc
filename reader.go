package ustar

import (
	"errors"
	"fmt"
	"io"
)

// Reader provides sequential access to the entries of an archive stream.
//
// Next advances to the next entry; Read returns that entry's payload.
// Payload left unread when Next is called again, and the zero padding
// that completes the final block, are drained automatically. Not
// reading an entry is how skipping works.
type Reader struct {
	r         io.Reader
	remaining int64 // payload bytes the current entry still owes
	pad       int64 // zero bytes after the payload
	err       error // sticky hard error, or io.EOF after the terminator
	block     [blockSize]byte
}

// NewReader creates a Reader consuming from r.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// Next advances to the next entry and returns its header.
//
// It returns io.EOF at the end-of-archive terminator; a single all-zero
// block ends the archive no matter what follows it. A block that fails to
// parse returns an error wrapping ErrBadHeader; the stream has advanced
// exactly one block and the reader remains usable, so callers recover by
// calling Next again. A source that ends anywhere else (inside a header,
// payload, or padding, or before any terminator) is a hard error
// wrapping io.ErrUnexpectedEOF, and hard errors are sticky.
func (tr *Reader) Next() (*Header, error) {
	if tr.err != nil {
		return nil, tr.err
	}
	if err := tr.drain(); err != nil {
		tr.err = err
		return nil, err
	}
	if _, err := io.ReadFull(tr.r, tr.block[:]); err != nil {
		tr.err = truncated("header", err)
		return nil, tr.err
	}
	if isZeroBlock(tr.block[:]) {
		tr.err = io.EOF
		return nil, io.EOF
	}
	hdr, err := parseHeader(tr.block[:])
	if err != nil {
		return nil, err // next block may be a valid header
	}
	tr.remaining = hdr.payloadSize()
	tr.pad = -tr.remaining & (blockSize - 1)
	return hdr, nil
}

// Read reads from the current entry's payload, returning io.EOF once the
// declared size is exhausted. It never consumes past the entry.
func (tr *Reader) Read(p []byte) (int, error) {
	if tr.err != nil && !errors.Is(tr.err, io.EOF) {
		return 0, tr.err
	}
	if tr.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > tr.remaining {
		p = p[:tr.remaining]
	}
	n, err := tr.r.Read(p)
	tr.remaining -= int64(n)
	switch {
	case errors.Is(err, io.EOF) && tr.remaining > 0:
		tr.err = fmt.Errorf("ustar: payload cut short: %w", io.ErrUnexpectedEOF)
		return n, tr.err
	case errors.Is(err, io.EOF):
		// Source ended exactly at the payload boundary. The entry is
		// complete; the missing padding or terminator surfaces on the
		// next call to Next.
		return n, nil
	case err != nil:
		tr.err = err
	}
	return n, err
}

// drain discards unread payload and the block padding that follows it.
func (tr *Reader) drain() error {
	toSkip := tr.remaining + tr.pad
	tr.remaining, tr.pad = 0, 0
	if toSkip == 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, tr.r, toSkip); err != nil {
		return truncated("entry data", err)
	}
	return nil
}

// truncated converts an io error at a required read into the hard
// truncation error. Blocks must always be whole and the archive must end
// with a terminator, so even a clean EOF here is unexpected.
func truncated(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("ustar: archive ended while reading %s: %w", what, io.ErrUnexpectedEOF)
	}
	return err
}
