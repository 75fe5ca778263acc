package ustar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelativeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       string
		want     string
		absolute bool
	}{
		{"relative untouched", "a/b.txt", "a/b.txt", false},
		{"absolute stripped", "/etc/passwd", "etc/passwd", true},
		{"doubled slashes stripped", "//srv//x", "srv//x", true},
		{"root only", "/", "", true},
		{"dot segments kept", "../up", "../up", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, absolute := relativeName(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.absolute, absolute)
		})
	}
}

func TestMatchesMember(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entry   string
		members []string
		want    bool
	}{
		{"no members selects all", "any/path", nil, true},
		{"empty slice selects all", "any/path", []string{}, true},
		{"exact file", "sub/file.txt", []string{"sub/file.txt"}, true},
		{"under directory member", "sub/file.txt", []string{"sub"}, true},
		{"deeply under member", "sub/a/b/c.txt", []string{"sub"}, true},
		{"prefix stops at boundary", "subdir/other.txt", []string{"sub"}, false},
		{"directory entry of member", "sub/", []string{"sub"}, true},
		{"unrelated", "other.txt", []string{"sub"}, false},
		{"second member hits", "b.txt", []string{"a.txt", "b.txt"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, matchesMember(tt.entry, tt.members))
		})
	}
}

func TestEscapesDest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"plain path", "safe/path.txt", false},
		{"dot dot alone", "..", true},
		{"leading dot dot", "../evil", true},
		{"climbs out through clean", "a/../../evil", true},
		{"internal dot dot resolves inside", "a/../b.txt", false},
		{"resolves to dot", "a/..", false},
		{"dot dot as suffix name", "a..b/c", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, escapesDest(tt.in))
		})
	}
}
