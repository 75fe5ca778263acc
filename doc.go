// Package ustar reads and writes POSIX ustar tape archives as pure
// streams: fixed 512-byte blocks in, fixed 512-byte blocks out, with no
// seeking and no buffering beyond one block.
//
// This package provides high-level engines through [Create], [Extract],
// and [List] for working with archives on the filesystem. For low-level
// entry-at-a-time access, use [Reader] and [Writer] directly.
//
// The format implemented is the original ustar layout:
//   - Header block: one 512-byte block of fixed-width ASCII fields
//   - Payload: the entry's bytes, zero-padded to a block boundary
//   - Terminator: a block of zeros after the last entry
//
// Member names are limited to the 100-byte name field; the prefix
// extension is not implemented. Reading is deliberately permissive (bad
// checksums and absolute names are tolerated with a diagnostic),
// writing is strict.
//
// # Quick Start
//
// Archive a tree:
//
//	f, err := os.Create("src.tar")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//	stats, err := ustar.Create(ctx, f, []string{"./src"})
//
// Extract selected members:
//
//	stats, err := ustar.Extract(ctx, f, "/tmp/out",
//	    ustar.ExtractWithMembers([]string{"src/main.go"}),
//	)
//
// # Streaming
//
// Both ends work on plain io.Reader and io.Writer, so archives can flow
// through pipes and sockets:
//
//	tr := ustar.NewReader(os.Stdin)
//	for {
//	    hdr, err := tr.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    _, _ = io.Copy(io.Discard, tr)
//	    fmt.Println(hdr.Name)
//	}
package ustar
