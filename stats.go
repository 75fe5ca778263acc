package ustar

// Stats summarizes one archive operation.
type Stats struct {
	// Entries is the number of entries fully processed: restored, listed,
	// or written to the archive.
	Entries int

	// Skipped is the number of entries rejected by the member filter or
	// deliberately left out (self-inclusion, unsupported file types).
	Skipped int

	// TotalBytes is the payload bytes moved, excluding headers and
	// padding.
	TotalBytes int64

	// Errors is the number of recoverable errors encountered. The stream
	// stays aligned past each one; callers deciding an exit status should
	// treat a nonzero count as failure.
	Errors int
}
