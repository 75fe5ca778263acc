package ustar

import (
	"path"
	"strings"
)

// relativeName strips leading slashes from an archived name, reporting
// whether the name was absolute. Archives that store absolute paths are
// extracted relative to the destination instead; callers warn once per
// run when the second result is true.
func relativeName(name string) (string, bool) {
	trimmed := strings.TrimLeft(name, "/")
	return trimmed, trimmed != name
}

// matchesMember reports whether an entry name is selected by the
// requested member paths. An empty request selects everything. Otherwise
// a name matches when it equals a member exactly or lives underneath one
// ("sub" selects "sub/file.txt" but never "subdir/other.txt"). Directory
// entries match their own member through the trailing slash rule.
func matchesMember(name string, members []string) bool {
	if len(members) == 0 {
		return true
	}
	for _, m := range members {
		if name == m {
			return true
		}
		if strings.HasPrefix(name, m) && len(name) > len(m) && name[len(m)] == '/' {
			return true
		}
	}
	return false
}

// escapesDest reports whether a decoded entry name would resolve outside
// the destination root. Leading slashes are already stripped by the
// decoder, so the remaining escape vector is ".." traversal.
func escapesDest(name string) bool {
	clean := path.Clean(name)
	return clean == ".." || strings.HasPrefix(clean, "../")
}
