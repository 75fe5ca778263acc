package ustar

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildArchive runs fn against a fresh Writer and returns the finished
// archive bytes.
func buildArchive(t *testing.T, fn func(tw *Writer)) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := NewWriter(&buf)
	fn(tw)
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

// writeEntry writes one complete entry, failing the test on any error.
func writeEntry(t *testing.T, tw *Writer, h *Header, payload string) {
	t.Helper()
	require.NoError(t, tw.WriteHeader(h))
	if payload != "" {
		_, err := io.WriteString(tw, payload)
		require.NoError(t, err)
	}
}

func TestExtractTree(t *testing.T) {
	t.Parallel()

	mtime := time.Unix(1577934245, 0)
	archive := buildArchive(t, func(tw *Writer) {
		writeEntry(t, tw, &Header{Name: "dir/", Kind: KindDirectory, Mode: 0o755, ModTime: mtime}, "")
		writeEntry(t, tw, &Header{Name: "dir/file.txt", Kind: KindRegular, Mode: 0o640, Size: 5, ModTime: mtime}, "alpha")
		writeEntry(t, tw, &Header{Name: "lnk", Kind: KindSymlink, Mode: 0o777, Linkname: "dir/file.txt", ModTime: mtime}, "")
	})

	dest := t.TempDir()
	stats, err := Extract(context.Background(), bytes.NewReader(archive), dest)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, int64(5), stats.TotalBytes)

	content, err := os.ReadFile(filepath.Join(dest, "dir", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(content))

	info, err := os.Stat(filepath.Join(dest, "dir", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o640), info.Mode().Perm())
	assert.True(t, info.ModTime().Equal(mtime), "file mtime must be restored")

	dirInfo, err := os.Stat(filepath.Join(dest, "dir"))
	require.NoError(t, err)
	assert.True(t, dirInfo.IsDir())
	assert.Equal(t, fs.FileMode(0o755), dirInfo.Mode().Perm())

	target, err := os.Readlink(filepath.Join(dest, "lnk"))
	require.NoError(t, err)
	assert.Equal(t, "dir/file.txt", target)
}

func TestExtractHardlink(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, func(tw *Writer) {
		writeEntry(t, tw, &Header{Name: "orig.txt", Kind: KindRegular, Mode: 0o644, Size: 4}, "data")
		writeEntry(t, tw, &Header{Name: "copy.txt", Kind: KindHardlink, Mode: 0o644, Linkname: "orig.txt"}, "")
	})

	dest := t.TempDir()
	stats, err := Extract(context.Background(), bytes.NewReader(archive), dest)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)

	a, err := os.Stat(filepath.Join(dest, "orig.txt"))
	require.NoError(t, err)
	b, err := os.Stat(filepath.Join(dest, "copy.txt"))
	require.NoError(t, err)
	assert.True(t, os.SameFile(a, b), "hardlink must share the original's inode")

	content, err := os.ReadFile(filepath.Join(dest, "copy.txt"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
}

func TestExtractMissingParents(t *testing.T) {
	t.Parallel()

	// No directory entry precedes the file; the parents are implied.
	archive := buildArchive(t, func(tw *Writer) {
		writeEntry(t, tw, &Header{Name: "a/b/c/deep.txt", Kind: KindRegular, Mode: 0o644, Size: 2}, "ok")
	})

	dest := t.TempDir()
	stats, err := Extract(context.Background(), bytes.NewReader(archive), dest)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)

	content, err := os.ReadFile(filepath.Join(dest, "a", "b", "c", "deep.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(content))
}

func TestExtractSetuidBit(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, func(tw *Writer) {
		writeEntry(t, tw, &Header{Name: "tool", Kind: KindRegular, Mode: 0o755 | fs.ModeSetuid, Size: 2}, "#!")
	})

	dest := t.TempDir()
	_, err := Extract(context.Background(), bytes.NewReader(archive), dest)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dest, "tool"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&fs.ModeSetuid, "setuid bit must survive extraction")
}

func TestExtractAbsoluteNames(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, func(tw *Writer) {
		writeEntry(t, tw, &Header{Name: "/abs/file.txt", Kind: KindRegular, Mode: 0o644, Size: 3}, "abc")
	})

	var logbuf bytes.Buffer
	dest := t.TempDir()
	stats, err := Extract(context.Background(), bytes.NewReader(archive), dest,
		ExtractWithLogger(slog.New(slog.NewTextHandler(&logbuf, nil))))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 0, stats.Errors, "absolute names are a warning, not an error")

	content, err := os.ReadFile(filepath.Join(dest, "abs", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(content))
	assert.Contains(t, logbuf.String(), "removing leading '/'")
}

func TestExtractTraversalRejected(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, func(tw *Writer) {
		writeEntry(t, tw, &Header{Name: "../evil.txt", Kind: KindRegular, Mode: 0o644, Size: 600}, strings.Repeat("x", 600))
		writeEntry(t, tw, &Header{Name: "good.txt", Kind: KindRegular, Mode: 0o644, Size: 2}, "ok")
	})

	parent := t.TempDir()
	dest := filepath.Join(parent, "out")
	require.NoError(t, os.Mkdir(dest, 0o755))

	stats, err := Extract(context.Background(), bytes.NewReader(archive), dest)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, stats.Entries)

	_, err = os.Stat(filepath.Join(parent, "evil.txt"))
	assert.ErrorIs(t, err, fs.ErrNotExist, "traversal entry must not land outside the destination")

	// The rejected entry's payload was drained, keeping later entries
	// intact.
	content, err := os.ReadFile(filepath.Join(dest, "good.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(content))
}

func TestExtractHardlinkTargetEscapes(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, func(tw *Writer) {
		writeEntry(t, tw, &Header{Name: "sneaky", Kind: KindHardlink, Linkname: "../../etc/passwd"}, "")
	})

	dest := t.TempDir()
	stats, err := Extract(context.Background(), bytes.NewReader(archive), dest)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 0, stats.Entries)

	_, err = os.Lstat(filepath.Join(dest, "sneaky"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestExtractMembers(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, func(tw *Writer) {
		writeEntry(t, tw, &Header{Name: "a.txt", Kind: KindRegular, Mode: 0o644, Size: 1}, "a")
		writeEntry(t, tw, &Header{Name: "sub/", Kind: KindDirectory, Mode: 0o755}, "")
		writeEntry(t, tw, &Header{Name: "sub/b.txt", Kind: KindRegular, Mode: 0o644, Size: 1}, "b")
		writeEntry(t, tw, &Header{Name: "subdir/c.txt", Kind: KindRegular, Mode: 0o644, Size: 1}, "c")
	})

	dest := t.TempDir()
	stats, err := Extract(context.Background(), bytes.NewReader(archive), dest,
		ExtractWithMembers([]string{"sub"}))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 2, stats.Skipped)

	_, err = os.Stat(filepath.Join(dest, "sub", "b.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dest, "a.txt"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = os.Stat(filepath.Join(dest, "subdir"))
	assert.ErrorIs(t, err, fs.ErrNotExist, "prefix match must stop at path boundaries")
}

func TestExtractToStdout(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, func(tw *Writer) {
		writeEntry(t, tw, &Header{Name: "dir/", Kind: KindDirectory, Mode: 0o755}, "")
		writeEntry(t, tw, &Header{Name: "dir/one.txt", Kind: KindRegular, Mode: 0o644, Size: 6}, "alpha\n")
		writeEntry(t, tw, &Header{Name: "ln", Kind: KindSymlink, Linkname: "dir/one.txt"}, "")
		writeEntry(t, tw, &Header{Name: "dir/two.txt", Kind: KindRegular, Mode: 0o644, Size: 5}, "beta\n")
	})

	var out bytes.Buffer
	dest := t.TempDir()
	stats, err := Extract(context.Background(), bytes.NewReader(archive), dest,
		ExtractWithStdout(&out))
	require.NoError(t, err)
	assert.Equal(t, "alpha\nbeta\n", out.String())
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 2, stats.Skipped, "non-regular entries are not streamed")

	// Stdout mode leaves the filesystem untouched.
	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractCreationFailureKeepsStreamAligned(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, func(tw *Writer) {
		writeEntry(t, tw, &Header{Name: "blocked/x.txt", Kind: KindRegular, Mode: 0o644, Size: 700}, strings.Repeat("y", 700))
		writeEntry(t, tw, &Header{Name: "ok.txt", Kind: KindRegular, Mode: 0o644, Size: 2}, "ok")
	})

	dest := t.TempDir()
	// A file where the entry needs a directory makes creation fail.
	require.NoError(t, os.WriteFile(filepath.Join(dest, "blocked"), nil, 0o644))

	stats, err := Extract(context.Background(), bytes.NewReader(archive), dest)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, stats.Entries)

	content, err := os.ReadFile(filepath.Join(dest, "ok.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(content))
}

func TestExtractBadHeaderWarnsOnce(t *testing.T) {
	t.Parallel()

	// A good header re-arms the bad-header warning, so two separated
	// runs of garbage warn twice while every bad block still counts.
	stream := bytes.Join([][]byte{
		garbageBlock(),
		garbageBlock(),
		sizedEntry("ok.txt", 2),
		payloadBlocks([]byte("ok")),
		garbageBlock(),
		sizedEntry("ok2.txt", 0),
		make([]byte, blockSize),
	}, nil)

	var logbuf bytes.Buffer
	dest := t.TempDir()
	stats, err := Extract(context.Background(), bytes.NewReader(stream), dest,
		ExtractWithLogger(slog.New(slog.NewTextHandler(&logbuf, nil))))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Errors, "every bad block counts")
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 2, strings.Count(logbuf.String(), "skipping bad header block"),
		"one warning per run of bad blocks")
}

func TestExtractTruncatedArchive(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, func(tw *Writer) {
		writeEntry(t, tw, &Header{Name: "a.txt", Kind: KindRegular, Mode: 0o644, Size: 3}, "abc")
	})
	// Chop off the terminator and half the payload block.
	truncated := archive[:blockSize+200]

	dest := t.TempDir()
	_, err := Extract(context.Background(), bytes.NewReader(truncated), dest)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestExtractCanceled(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, func(tw *Writer) {
		writeEntry(t, tw, &Header{Name: "a.txt", Kind: KindRegular, Mode: 0o644, Size: 1}, "a")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Extract(ctx, bytes.NewReader(archive), t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractFifo(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("fifos need a unix filesystem")
	}

	archive := buildArchive(t, func(tw *Writer) {
		writeEntry(t, tw, &Header{Name: "pipe", Kind: KindFifo, Mode: 0o600}, "")
	})

	dest := t.TempDir()
	stats, err := Extract(context.Background(), bytes.NewReader(archive), dest)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 0, stats.Errors)

	info, err := os.Stat(filepath.Join(dest, "pipe"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&fs.ModeNamedPipe)
}

func TestExtractVerbose(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, func(tw *Writer) {
		writeEntry(t, tw, &Header{Name: "f.txt", Kind: KindRegular, Mode: 0o644, Size: 1}, "x")
		writeEntry(t, tw, &Header{Name: "ln", Kind: KindSymlink, Linkname: "f.txt"}, "")
	})

	var verbose bytes.Buffer
	dest := t.TempDir()
	_, err := Extract(context.Background(), bytes.NewReader(archive), dest,
		ExtractWithVerbose(&verbose))
	require.NoError(t, err)
	assert.Equal(t, "x f.txt\nx ln (symlink to \"f.txt\")\n", verbose.String())
}
