// Package octal implements the fixed-width octal ASCII fields used by tar
// headers. Parsing tolerates the padding variants found in the wild; writing
// produces the historical space-prefixed form and degrades field by field
// when a value is too large for the preferred layout.
package octal

import "errors"

var (
	// ErrInvalid is returned when a field contains no octal digits or has
	// junk bytes where padding was expected.
	ErrInvalid = errors.New("octal: invalid field")

	// ErrTooLarge is returned when a value cannot be represented in the
	// field width, even with all padding dropped.
	ErrTooLarge = errors.New("octal: value too large for field")
)

// Parse decodes a fixed-width octal field.
//
// Leading spaces are skipped, then at least one octal digit is required.
// Digits accumulate base-8 until the first non-digit. Trailing spaces are
// skipped; the field must then be exhausted or terminated by a NUL (bytes
// after a NUL are ignored, matching the C string scan this format grew up
// with). Anything else returns ErrInvalid.
func Parse(b []byte) (int64, error) {
	i := 0
	for i < len(b) && b[i] == ' ' {
		i++
	}
	start := i
	var v int64
	for i < len(b) && b[i] >= '0' && b[i] <= '7' {
		v = v<<3 | int64(b[i]-'0')
		i++
	}
	if i == start {
		return 0, ErrInvalid
	}
	for i < len(b) && b[i] == ' ' {
		i++
	}
	if i < len(b) && b[i] != 0 {
		return 0, ErrInvalid
	}
	return v, nil
}

// Format encodes v into dst as octal ASCII, using the full width of dst.
//
// The preferred layout is a leading space, the value zero-padded to
// len(dst)-2 digits, and a trailing NUL. If the value needs more room the
// leading space is dropped, then the trailing NUL. A value that does not
// fit even then, or a negative value, returns ErrTooLarge and leaves dst
// untouched.
func Format(dst []byte, v int64) error {
	if v < 0 {
		return ErrTooLarge
	}
	digits := octalLen(v)
	switch {
	case digits <= len(dst)-2:
		dst[0] = ' '
		putDigits(dst[1:len(dst)-1], v)
		dst[len(dst)-1] = 0
	case digits == len(dst)-1:
		putDigits(dst[:len(dst)-1], v)
		dst[len(dst)-1] = 0
	case digits == len(dst):
		putDigits(dst, v)
	default:
		return ErrTooLarge
	}
	return nil
}

// octalLen returns the number of octal digits needed to represent v.
func octalLen(v int64) int {
	n := 1
	for v > 7 {
		v >>= 3
		n++
	}
	return n
}

// putDigits writes v into dst right-aligned with zero padding. dst must be
// large enough; callers guarantee this.
func putDigits(dst []byte, v int64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte('0' + v&7)
		v >>= 3
	}
}
