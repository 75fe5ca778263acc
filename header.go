package ustar

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/meigma/ustar/internal/octal"
)

// blockSize is the archive's unit of transfer. Headers occupy one block;
// payloads are zero-padded to a multiple of it.
const blockSize = 512

const (
	nameSize = 100
	linkSize = 100

	chksumOffset = 148
	chksumSize   = 8

	headerMagic   = "ustar\x00"
	headerVersion = "00"
)

// zeroBlock backs terminator detection and padding writes.
var zeroBlock = make([]byte, blockSize)

// Type flag values the basic format wire-encodes. Old archives use NUL
// instead of '0' for regular files. Directories and special files are
// recognized from the name or the mode's type bits instead of a flag.
const (
	typeRegular    = '0'
	typeRegularOld = 0
	typeHardlink   = '1'
	typeSymlink    = '2'
)

// Mode bits as stored in the wire mode field.
const (
	modeSetuid = 0o4000
	modeSetgid = 0o2000
	modeSticky = 0o1000

	modeTypeMask = 0o170000
	modeFifo     = 0o010000
	modeChar     = 0o020000
	modeDir      = 0o040000
	modeBlock    = 0o060000
	modeRegular  = 0o100000
	modeSymlink  = 0o120000
	modeSocket   = 0o140000
)

// Kind classifies an archive entry. It is derived once when a header is
// decoded and drives every later dispatch: payload accounting, restoration,
// and listing.
type Kind uint8

const (
	KindRegular Kind = iota
	KindHardlink
	KindSymlink
	KindDirectory
	KindChar
	KindBlock
	KindFifo
	KindSocket
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindHardlink:
		return "hardlink"
	case KindSymlink:
		return "symlink"
	case KindDirectory:
		return "directory"
	case KindChar:
		return "char device"
	case KindBlock:
		return "block device"
	case KindFifo:
		return "fifo"
	case KindSocket:
		return "socket"
	default:
		return "unknown"
	}
}

// hasPayload reports whether entries of this kind carry data blocks after
// the header. Link and directory entries never do; their size field is
// informational only.
func (k Kind) hasPayload() bool {
	switch k {
	case KindHardlink, KindSymlink, KindDirectory:
		return false
	}
	return true
}

// Header describes one archive entry.
type Header struct {
	// Name is the slash-separated path as stored, minus any leading
	// slashes. Directory entries keep their trailing slash.
	Name string

	// Kind is the entry classification.
	Kind Kind

	// Mode holds the permission and setuid/setgid/sticky bits. Type bits
	// are carried by Kind, not Mode.
	Mode fs.FileMode

	Uid int
	Gid int

	// Size is the size field as stored. Kinds without payload consume no
	// archive bytes regardless of this value.
	Size int64

	ModTime time.Time

	// Linkname is the link target for hardlink and symlink entries.
	Linkname string

	// Devmajor and Devminor are the device numbers for char and block
	// entries.
	Devmajor int64
	Devminor int64

	// ChecksumOK records whether the stored checksum matched the block
	// sum under either historical convention. A mismatch does not fail
	// decoding; consumers warn instead.
	ChecksumOK bool

	// Absolute records that the stored name began with '/' and was made
	// relative during decoding.
	Absolute bool
}

// payloadSize returns the number of data bytes following this header in
// the stream, before padding.
func (h *Header) payloadSize() int64 {
	if !h.Kind.hasPayload() {
		return 0
	}
	return h.Size
}

// parseHeader decodes a header block. The caller has already ruled out the
// all-zero terminator. Malformed blocks return an error wrapping
// ErrBadHeader; the permissive fields (mtime, checksum, device numbers)
// fall back to zero rather than failing, as the original tools did.
func parseHeader(block []byte) (*Header, error) {
	s := slicer(block)
	rawName := cString(s.next(nameSize))
	mode, err := octal.Parse(s.next(8))
	if err != nil {
		return nil, fmt.Errorf("%w: mode: %v", ErrBadHeader, err)
	}
	uid, err := octal.Parse(s.next(8))
	if err != nil {
		return nil, fmt.Errorf("%w: uid: %v", ErrBadHeader, err)
	}
	gid, err := octal.Parse(s.next(8))
	if err != nil {
		return nil, fmt.Errorf("%w: gid: %v", ErrBadHeader, err)
	}
	size, err := octal.Parse(s.next(12))
	if err != nil {
		return nil, fmt.Errorf("%w: size: %v", ErrBadHeader, err)
	}
	mtime, _ := octal.Parse(s.next(12))
	storedSum, sumErr := octal.Parse(s.next(chksumSize))
	flag := s.next(1)[0]
	linkname := cString(s.next(linkSize))
	s.next(6 + 2 + 32 + 32) // magic, version, uname, gname: not examined
	devMajor, _ := octal.Parse(s.next(8))
	devMinor, _ := octal.Parse(s.next(8))

	name, absolute := relativeName(rawName)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrBadHeader)
	}

	unsigned, signed64 := checksum(block)

	return &Header{
		Name:       name,
		Kind:       classifyEntry(flag, mode, name),
		Mode:       permMode(mode),
		Uid:        int(uid),
		Gid:        int(gid),
		Size:       size,
		ModTime:    time.Unix(mtime, 0),
		Linkname:   linkname,
		Devmajor:   devMajor,
		Devminor:   devMinor,
		ChecksumOK: sumErr == nil && (storedSum == unsigned || storedSum == signed64),
		Absolute:   absolute,
	}, nil
}

// marshal encodes h into block, which must be blockSize bytes of zeros.
//
// Kinds without payload store size zero so readers never look for data
// blocks that are not there. Times before the epoch (and the zero time)
// are stored as zero; the format has no representation for them.
func (h *Header) marshal(block []byte) error {
	if len(h.Name) > nameSize {
		return fmt.Errorf("%w: name %q", ErrFieldTooLong, h.Name)
	}
	if len(h.Linkname) > linkSize {
		return fmt.Errorf("%w: link target %q", ErrFieldTooLong, h.Linkname)
	}

	s := slicer(block)
	copy(s.next(nameSize), h.Name)
	if err := octal.Format(s.next(8), h.wireMode()); err != nil {
		return fmt.Errorf("mode field: %w", err)
	}
	if err := octal.Format(s.next(8), int64(h.Uid)); err != nil {
		return fmt.Errorf("uid field: %w", err)
	}
	if err := octal.Format(s.next(8), int64(h.Gid)); err != nil {
		return fmt.Errorf("gid field: %w", err)
	}
	if err := octal.Format(s.next(12), h.payloadSize()); err != nil {
		return fmt.Errorf("size field: %w", err)
	}
	mtime := h.ModTime.Unix()
	if h.ModTime.IsZero() || mtime < 0 {
		mtime = 0
	}
	if err := octal.Format(s.next(12), mtime); err != nil {
		return fmt.Errorf("mtime field: %w", err)
	}
	s.next(chksumSize) // summed as spaces, written last
	s.next(1)[0] = h.wireType()
	link := s.next(linkSize)
	switch h.Kind {
	case KindHardlink, KindSymlink:
		copy(link, h.Linkname)
	}
	copy(s.next(6), headerMagic)
	copy(s.next(2), headerVersion)
	s.next(32 + 32) // uname, gname stay zero
	devMajor := s.next(8)
	devMinor := s.next(8)
	if h.Kind == KindChar || h.Kind == KindBlock {
		if err := octal.Format(devMajor, h.Devmajor); err != nil {
			return fmt.Errorf("devmajor field: %w", err)
		}
		if err := octal.Format(devMinor, h.Devminor); err != nil {
			return fmt.Errorf("devminor field: %w", err)
		}
	}

	unsigned, _ := checksum(block)
	if err := octal.Format(block[chksumOffset:chksumOffset+chksumSize], unsigned); err != nil {
		return fmt.Errorf("checksum field: %w", err)
	}
	return nil
}

// wireType maps the kind back to a type flag. Directories and special
// files travel as '0'; readers recover them from the name or mode bits.
func (h *Header) wireType() byte {
	switch h.Kind {
	case KindHardlink:
		return typeHardlink
	case KindSymlink:
		return typeSymlink
	default:
		return typeRegular
	}
}

// wireMode is the inverse of permMode, plus type bits for the kinds the
// type flag cannot express.
func (h *Header) wireMode() int64 {
	raw := int64(h.Mode & fs.ModePerm)
	if h.Mode&fs.ModeSetuid != 0 {
		raw |= modeSetuid
	}
	if h.Mode&fs.ModeSetgid != 0 {
		raw |= modeSetgid
	}
	if h.Mode&fs.ModeSticky != 0 {
		raw |= modeSticky
	}
	switch h.Kind {
	case KindChar:
		raw |= modeChar
	case KindBlock:
		raw |= modeBlock
	case KindFifo:
		raw |= modeFifo
	case KindSocket:
		raw |= modeSocket
	}
	return raw
}

// classifyEntry derives the entry kind. A trailing slash forces directory
// regardless of the type flag; explicit link flags come next; anything
// else falls to the mode's type bits, defaulting to regular.
func classifyEntry(flag byte, mode int64, name string) Kind {
	if strings.HasSuffix(name, "/") {
		return KindDirectory
	}
	switch flag {
	case typeHardlink:
		return KindHardlink
	case typeSymlink:
		return KindSymlink
	}
	switch mode & modeTypeMask {
	case modeDir:
		return KindDirectory
	case modeChar:
		return KindChar
	case modeBlock:
		return KindBlock
	case modeFifo:
		return KindFifo
	case modeSocket:
		return KindSocket
	}
	return KindRegular
}

// permMode maps wire permission and s-bits into an fs.FileMode.
func permMode(raw int64) fs.FileMode {
	m := fs.FileMode(raw) & fs.ModePerm
	if raw&modeSetuid != 0 {
		m |= fs.ModeSetuid
	}
	if raw&modeSetgid != 0 {
		m |= fs.ModeSetgid
	}
	if raw&modeSticky != 0 {
		m |= fs.ModeSticky
	}
	return m
}

// checksum computes the additive checksum of a header block with the
// checksum field read as spaces. Pre-POSIX tars summed signed bytes, so
// both conventions are returned and either satisfies verification.
func checksum(block []byte) (unsigned, signed64 int64) {
	for i, c := range block {
		if chksumOffset <= i && i < chksumOffset+chksumSize {
			c = ' '
		}
		unsigned += int64(c)
		signed64 += int64(int8(c))
	}
	return unsigned, signed64
}

// isZeroBlock reports whether block is an end-of-archive terminator.
func isZeroBlock(block []byte) bool {
	return bytes.Equal(block, zeroBlock)
}

// cString extracts a string from a fixed-width field, stopping at the
// first NUL and trimming the trailing spaces space-padding producers
// leave behind.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimRight(b, " "))
}

// slicer walks a byte slice field by field.
type slicer []byte

func (sp *slicer) next(n int) (b []byte) {
	s := *sp
	b, *sp = s[0:n], s[n:]
	return b
}

// FileInfo returns an fs.FileInfo describing the entry as Lstat would
// report it after restoration. Sys returns the Header itself.
func (h *Header) FileInfo() fs.FileInfo { return headerFileInfo{h} }

type headerFileInfo struct {
	h *Header
}

func (fi headerFileInfo) Name() string {
	if fi.IsDir() {
		return path.Base(path.Clean(fi.h.Name))
	}
	return path.Base(fi.h.Name)
}

func (fi headerFileInfo) Size() int64        { return fi.h.Size }
func (fi headerFileInfo) IsDir() bool        { return fi.h.Kind == KindDirectory }
func (fi headerFileInfo) ModTime() time.Time { return fi.h.ModTime }
func (fi headerFileInfo) Sys() any           { return fi.h }

func (fi headerFileInfo) Mode() fs.FileMode {
	mode := fi.h.Mode
	switch fi.h.Kind {
	case KindDirectory:
		mode |= fs.ModeDir
	case KindSymlink:
		mode |= fs.ModeSymlink
	case KindChar:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case KindBlock:
		mode |= fs.ModeDevice
	case KindFifo:
		mode |= fs.ModeNamedPipe
	case KindSocket:
		mode |= fs.ModeSocket
	}
	return mode
}
