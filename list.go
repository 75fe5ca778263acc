package ustar

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// List reads an archive from r and writes one line per selected entry to
// w, in the archive's own order.
//
// Plain output is the entry name plus link annotations. Verbose output
// prefixes the mode string, numeric owner, size (or device numbers for
// char and block entries), and modification time. Payloads are drained,
// never restored. Diagnostics follow the same rules as Extract.
func List(ctx context.Context, r io.Reader, w io.Writer, opts ...ListOption) (Stats, error) {
	cfg := listConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	l := &lister{session: session{logger: cfg.logger}, cfg: cfg, w: w}
	l.log().Debug("listing archive", "members", len(cfg.members))

	tr := NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return l.stats, err
		}
		hdr, err := tr.Next()
		switch {
		case errors.Is(err, io.EOF):
			return l.stats, nil
		case errors.Is(err, ErrBadHeader):
			l.badHeader(err)
			continue
		case err != nil:
			return l.stats, err
		}
		l.noteHeader(hdr)
		if !matchesMember(hdr.Name, l.cfg.members) {
			l.stats.Skipped++
			continue
		}
		if err := l.print(hdr); err != nil {
			return l.stats, err
		}
		l.stats.Entries++
	}
}

// lister holds per-run state for listing.
type lister struct {
	session
	cfg listConfig
	w   io.Writer
}

// print writes the listing line for one entry. Output failures are hard;
// a listing that cannot be delivered has no purpose.
func (l *lister) print(h *Header) error {
	if !l.cfg.verbose {
		_, err := fmt.Fprintf(l.w, "%s%s\n", h.Name, linkNote(h))
		return err
	}
	_, err := fmt.Fprintf(l.w, "%s %3d/%-3d %s %s %s%s\n",
		h.FileInfo().Mode().String(),
		h.Uid, h.Gid,
		sizeColumn(h),
		h.ModTime.Format("2006-01-02 15:04:05"),
		h.Name, linkNote(h))
	return err
}

// sizeColumn renders the size field of a verbose listing: byte count for
// most kinds, device numbers for char and block entries.
func sizeColumn(h *Header) string {
	if h.Kind == KindChar || h.Kind == KindBlock {
		return fmt.Sprintf("%4d,%4d", h.Devmajor, h.Devminor)
	}
	return fmt.Sprintf("%9d", h.Size)
}
