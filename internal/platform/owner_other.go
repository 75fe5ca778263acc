//go:build !unix

package platform

import "io/fs"

// Owner returns zero UID/GID on non-Unix systems.
func Owner(info fs.FileInfo) (uid, gid int) {
	return 0, 0
}
