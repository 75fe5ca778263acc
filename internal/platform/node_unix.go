//go:build unix

package platform

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/unix"
)

// Mknod creates a device or socket node at path. mode supplies the
// permission bits and exactly one of ModeCharDevice, ModeDevice, or
// ModeSocket; major and minor are ignored for sockets.
func Mknod(path string, mode fs.FileMode, major, minor uint32) error {
	m := uint32(mode.Perm())
	switch {
	case mode&fs.ModeCharDevice != 0:
		m |= unix.S_IFCHR
	case mode&fs.ModeDevice != 0:
		m |= unix.S_IFBLK
	case mode&fs.ModeSocket != 0:
		m |= unix.S_IFSOCK
	default:
		return &fs.PathError{Op: "mknod", Path: path, Err: errors.New("not a device or socket mode")}
	}
	if err := unix.Mknod(path, m, int(unix.Mkdev(major, minor))); err != nil {
		return &fs.PathError{Op: "mknod", Path: path, Err: err}
	}
	return nil
}

// Mkfifo creates a named pipe at path with the given permissions.
func Mkfifo(path string, mode fs.FileMode) error {
	if err := unix.Mkfifo(path, uint32(mode.Perm())); err != nil {
		return &fs.PathError{Op: "mkfifo", Path: path, Err: err}
	}
	return nil
}
