package ustar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/meigma/ustar/internal/platform"
)

var errEscapesDest = errors.New("path escapes destination")

// Extract reads an archive from r and restores its entries under dir.
//
// Recoverable problems (malformed header blocks, entries that cannot be
// created, metadata that cannot be applied) are logged, counted in
// Stats.Errors, and skipped; the stream stays aligned and later entries
// still extract. The error return is reserved for damage to the run
// itself: a truncated archive, an unusable payload writer, or context
// cancellation.
//
// The context is checked between entries. Cancellation never interrupts
// a single block transfer.
func Extract(ctx context.Context, r io.Reader, dir string, opts ...ExtractOption) (Stats, error) {
	cfg := extractConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	x := &extractor{session: session{logger: cfg.logger}, cfg: cfg, dir: dir, buf: make([]byte, 32*1024)}
	x.log().Debug("extracting archive", "dir", dir, "members", len(cfg.members))

	tr := NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return x.stats, err
		}
		hdr, err := tr.Next()
		switch {
		case errors.Is(err, io.EOF):
			return x.stats, nil
		case errors.Is(err, ErrBadHeader):
			x.badHeader(err)
			continue
		case err != nil:
			return x.stats, err
		}
		x.noteHeader(hdr)
		if !matchesMember(hdr.Name, x.cfg.members) {
			x.stats.Skipped++
			continue
		}
		if err := x.restore(tr, hdr); err != nil {
			return x.stats, err
		}
	}
}

// extractor holds per-run state for extraction.
type extractor struct {
	session
	cfg extractConfig
	dir string
	buf []byte
}

// verbose prints the per-entry extraction note.
func (x *extractor) verbose(h *Header) {
	if x.cfg.verbose == nil {
		return
	}
	fmt.Fprintf(x.cfg.verbose, "x %s%s\n", h.Name, linkNote(h))
}

// restore applies one accepted entry to the filesystem, or to the
// payload writer in stdout mode. Creation failures are soft: the entry's
// remaining payload is left for the reader to drain.
func (x *extractor) restore(tr *Reader, h *Header) error {
	x.verbose(h)

	if x.cfg.stdout != nil {
		return x.restoreStdout(tr, h)
	}
	if escapesDest(h.Name) {
		x.soft(&fs.PathError{Op: "extract", Path: h.Name, Err: errEscapesDest})
		return nil
	}

	dest := filepath.Join(x.dir, filepath.FromSlash(h.Name))
	switch h.Kind {
	case KindHardlink:
		x.restoreHardlink(h, dest)
	case KindSymlink:
		x.restoreSymlink(h, dest)
	case KindDirectory:
		x.restoreDir(h, dest)
	case KindRegular:
		return x.restoreFile(tr, h, dest)
	default: // char, block, fifo, socket
		x.restoreNode(h, dest)
	}
	return nil
}

// restoreStdout streams a regular entry's payload to the configured
// writer. Nothing touches the filesystem in this mode; other kinds are
// announced by verbose and dropped.
func (x *extractor) restoreStdout(tr *Reader, h *Header) error {
	if h.Kind != KindRegular {
		x.stats.Skipped++
		return nil
	}
	n, err := io.Copy(x.cfg.stdout, tr)
	x.stats.TotalBytes += n
	if err != nil {
		return err
	}
	x.stats.Entries++
	return nil
}

// restoreHardlink links dest to an earlier entry. The stored target is
// anchored under the destination the same way entry names are; a target
// that escapes is refused.
func (x *extractor) restoreHardlink(h *Header, dest string) {
	target, _ := relativeName(h.Linkname)
	if escapesDest(target) {
		x.soft(&fs.PathError{Op: "link", Path: h.Linkname, Err: errEscapesDest})
		return
	}
	if err := os.Link(filepath.Join(x.dir, filepath.FromSlash(target)), dest); err != nil {
		x.soft(err)
		return
	}
	x.applyMetadata(h, dest)
	x.stats.Entries++
}

// restoreSymlink recreates a symlink with its stored target verbatim;
// relative targets resolve from the link's own location. Times and mode
// are deliberately left alone, and ownership transfers only where the
// platform allows it.
func (x *extractor) restoreSymlink(h *Header, dest string) {
	if err := os.Symlink(h.Linkname, dest); err != nil {
		x.soft(err)
		return
	}
	if err := os.Lchown(dest, h.Uid, h.Gid); err != nil {
		x.log().Debug("ownership not restored", "path", h.Name, "error", err)
	}
	x.stats.Entries++
}

func (x *extractor) restoreDir(h *Header, dest string) {
	if err := os.MkdirAll(dest, h.Mode.Perm()); err != nil {
		x.soft(err)
		return
	}
	x.applyMetadata(h, dest)
	x.stats.Entries++
}

// restoreFile creates a regular file and streams its payload. Metadata
// lands right after creation, matching the historical order, and the
// mtime is set again after the data writes so they do not clobber it.
func (x *extractor) restoreFile(tr *Reader, h *Header, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o777); err != nil {
		x.soft(err)
		return nil
	}
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, h.Mode)
	if err != nil {
		x.soft(err)
		return nil
	}
	x.applyMetadata(h, dest)

	for {
		n, rerr := tr.Read(x.buf)
		if n > 0 {
			if _, werr := f.Write(x.buf[:n]); werr != nil {
				_ = f.Close() //nolint:errcheck // the write error is what matters
				x.soft(werr)
				return nil
			}
			x.stats.TotalBytes += int64(n)
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			_ = f.Close() //nolint:errcheck // the stream is already lost
			return rerr
		}
	}

	if err := f.Close(); err != nil {
		x.soft(err)
		return nil
	}
	if err := os.Chtimes(dest, h.ModTime, h.ModTime); err != nil {
		x.soft(err)
	}
	x.stats.Entries++
	return nil
}

// restoreNode recreates fifo, device, and socket entries. Any payload
// such an entry declares is drained by the reader, never written to the
// node.
func (x *extractor) restoreNode(h *Header, dest string) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o777); err != nil {
		x.soft(err)
		return
	}
	var err error
	if h.Kind == KindFifo {
		err = platform.Mkfifo(dest, h.Mode)
	} else {
		err = platform.Mknod(dest, h.FileInfo().Mode(), uint32(h.Devmajor), uint32(h.Devminor))
	}
	if err != nil {
		x.soft(err)
		return
	}
	x.applyMetadata(h, dest)
	x.stats.Entries++
}

// applyMetadata restores ownership, permissions, and times. Ownership
// comes first: chown clears setuid bits, so the chmod must follow it.
// Chown failures are the normal case for unprivileged runs and are only
// logged at debug.
func (x *extractor) applyMetadata(h *Header, dest string) {
	if err := os.Chown(dest, h.Uid, h.Gid); err != nil {
		x.log().Debug("ownership not restored", "path", h.Name, "error", err)
	}
	if err := os.Chmod(dest, h.Mode); err != nil {
		x.soft(err)
	}
	if err := os.Chtimes(dest, h.ModTime, h.ModTime); err != nil {
		x.soft(err)
	}
}

// linkNote renders the annotation listing and verbose output attach to
// link entries.
func linkNote(h *Header) string {
	switch h.Kind {
	case KindHardlink:
		return fmt.Sprintf(" (link to %q)", h.Linkname)
	case KindSymlink:
		return fmt.Sprintf(" (symlink to %q)", h.Linkname)
	}
	return ""
}
