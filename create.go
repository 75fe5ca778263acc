package ustar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/meigma/ustar/internal/octal"
	"github.com/meigma/ustar/internal/platform"
)

// Create writes an archive of the named roots to w, in order, and
// finishes it with the end-of-archive terminator.
//
// The walk never follows symlinks; they are archived as symlink entries
// with their targets stored verbatim. Paths too long for the header name
// field, unsupported file types, and the archive's own output file are
// reported and skipped. A file that shrinks while being read is
// zero-filled to the size its header declared so the stream stays
// aligned. The error return is reserved for archive write failures and
// cancellation; per-entry problems are logged and counted in Stats.
//
// The context is checked between entries.
func Create(ctx context.Context, w io.Writer, roots []string, opts ...CreateOption) (Stats, error) {
	cfg := createConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &creator{
		session: session{logger: cfg.logger},
		cfg:     cfg,
		tw:      NewWriter(w),
		buf:     make([]byte, 32*1024),
	}
	if f, ok := w.(*os.File); ok {
		if info, err := f.Stat(); err == nil {
			c.self = info
		}
	}
	c.log().Debug("creating archive", "roots", len(roots))

	for _, root := range roots {
		if err := c.add(ctx, root); err != nil {
			return c.stats, err
		}
	}
	if err := c.tw.Close(); err != nil {
		return c.stats, err
	}
	return c.stats, nil
}

// creator holds per-run state for archive creation.
type creator struct {
	session
	cfg  createConfig
	tw   *Writer
	buf  []byte
	self os.FileInfo // identity of the output file, when known
}

// verbose prints the per-entry note.
func (c *creator) verbose(name string) {
	if c.cfg.verbose == nil {
		return
	}
	fmt.Fprintf(c.cfg.verbose, "a %s\n", name)
}

// add walks one root lexically, emitting an entry per object. Walk-level
// failures (unreadable directories, vanished roots) are soft; the rest
// of the tree still archives.
func (c *creator) add(ctx context.Context, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			c.soft(walkErr)
			return nil
		}
		return c.addEntry(path, d)
	})
}

// addEntry dispatches one walked object by type.
func (c *creator) addEntry(fsPath string, d fs.DirEntry) error {
	name := filepath.ToSlash(fsPath)
	c.verbose(name)

	info, err := d.Info()
	if err != nil {
		c.soft(err)
		return nil
	}

	if c.self != nil && os.SameFile(c.self, info) {
		c.log().Warn("skipping archive file itself", "path", name)
		c.stats.Skipped++
		return nil
	}
	if len(name) >= nameSize {
		c.soft(fmt.Errorf("%s: %w", name, ErrFieldTooLong))
		if info.IsDir() {
			return fs.SkipDir
		}
		return nil
	}

	switch {
	case info.IsDir():
		return c.addDir(name, info)
	case info.Mode().IsRegular():
		return c.addFile(fsPath, name, info)
	case info.Mode()&fs.ModeSymlink != 0:
		return c.addSymlink(fsPath, name, info)
	default:
		c.log().Warn("unsupported file type, skipping", "path", name, "mode", info.Mode().String())
		c.stats.Skipped++
		return nil
	}
}

// addDir emits the directory's header; children follow as the walk
// descends. The trailing slash is what marks a directory on the wire.
func (c *creator) addDir(name string, info fs.FileInfo) error {
	hdr := c.fileHeader(strings.TrimSuffix(name, "/")+"/", info, "")
	if err := c.tw.WriteHeader(hdr); err != nil {
		return c.headerErr(hdr, err)
	}
	c.stats.Entries++
	return nil
}

// addSymlink stores the link itself, never the target.
func (c *creator) addSymlink(fsPath, name string, info fs.FileInfo) error {
	target, err := os.Readlink(fsPath)
	if err != nil {
		c.soft(err)
		return nil
	}
	hdr := c.fileHeader(name, info, target)
	if err := c.tw.WriteHeader(hdr); err != nil {
		return c.headerErr(hdr, err)
	}
	c.stats.Entries++
	return nil
}

// addFile emits a header sized from lstat and exactly that many payload
// bytes. A file that grew since the stat is cut off at the declared
// size; one that shrank is zero-filled to it.
func (c *creator) addFile(fsPath, name string, info fs.FileInfo) error {
	f, err := os.Open(fsPath)
	if err != nil {
		c.soft(err)
		return nil
	}
	defer f.Close()

	hdr := c.fileHeader(name, info, "")
	if err := c.tw.WriteHeader(hdr); err != nil {
		return c.headerErr(hdr, err)
	}

	remaining := hdr.Size
	for remaining > 0 {
		n, rerr := f.Read(c.buf[:min(int64(len(c.buf)), remaining)])
		if n > 0 {
			if _, werr := c.tw.Write(c.buf[:n]); werr != nil {
				return werr
			}
			remaining -= int64(n)
			c.stats.TotalBytes += int64(n)
		}
		if rerr == nil {
			continue
		}
		if !errors.Is(rerr, io.EOF) {
			c.soft(fmt.Errorf("reading %s: %w", name, rerr))
		} else if remaining > 0 {
			c.soft(fmt.Errorf("short read from %s, zero-filling %d bytes", name, remaining))
		}
		if remaining > 0 {
			if err := c.zeroFill(remaining); err != nil {
				return err
			}
		}
		break
	}
	c.stats.Entries++
	return nil
}

// zeroFill pads the current entry's payload with zeros. The header's
// size is already on the wire; these bytes are owed.
func (c *creator) zeroFill(n int64) error {
	for n > 0 {
		chunk := min(int64(blockSize), n)
		if _, err := c.tw.Write(zeroBlock[:chunk]); err != nil {
			return err
		}
		c.stats.TotalBytes += chunk
		n -= chunk
	}
	return nil
}

// headerErr sorts a WriteHeader failure: marshal problems skip the entry
// without touching the stream, stream problems end the run.
func (c *creator) headerErr(h *Header, err error) error {
	if errors.Is(err, ErrFieldTooLong) || errors.Is(err, octal.ErrTooLarge) {
		c.soft(fmt.Errorf("%s: %w", h.Name, err))
		return nil
	}
	return err
}

// fileHeader builds the header for one filesystem object from its lstat
// info.
func (c *creator) fileHeader(name string, info fs.FileInfo, link string) *Header {
	uid, gid := platform.Owner(info)
	h := &Header{
		Name:     name,
		Mode:     info.Mode() & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky),
		Uid:      uid,
		Gid:      gid,
		ModTime:  info.ModTime(),
		Linkname: link,
	}
	switch {
	case info.IsDir():
		h.Kind = KindDirectory
	case info.Mode()&fs.ModeSymlink != 0:
		h.Kind = KindSymlink
	default:
		h.Kind = KindRegular
		h.Size = info.Size()
	}
	return h
}
