//go:build !unix

package platform

import (
	"errors"
	"io/fs"
)

// Mknod is unsupported off Unix; device and socket entries cannot be
// restored.
func Mknod(path string, mode fs.FileMode, major, minor uint32) error {
	return &fs.PathError{Op: "mknod", Path: path, Err: errors.ErrUnsupported}
}

// Mkfifo is unsupported off Unix.
func Mkfifo(path string, mode fs.FileMode) error {
	return &fs.PathError{Op: "mkfifo", Path: path, Err: errors.ErrUnsupported}
}
