// Package platform isolates the filesystem operations that differ across
// operating systems: device and fifo node creation, and ownership lookup
// from stat results.
package platform
