package octal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr error
	}{
		{name: "mode field", in: " 000644\x00", want: 0o644},
		{name: "size field", in: " 0000000013\x00", want: 11},
		{name: "leading spaces", in: "   17\x00\x00\x00", want: 0o17},
		{name: "digits fill field", in: "7777", want: 0o7777},
		{name: "trailing spaces then nul", in: "12  \x00", want: 0o12},
		{name: "trailing spaces then end", in: "12  ", want: 0o12},
		{name: "gnu style nul space", in: "000644\x00 ", want: 0o644},
		{name: "junk after nul ignored", in: "12\x00xx", want: 0o12},
		{name: "zero", in: " 000000\x00", want: 0},
		{name: "empty", in: "", wantErr: ErrInvalid},
		{name: "all spaces", in: "    ", wantErr: ErrInvalid},
		{name: "nul without digits", in: "  \x00\x00", wantErr: ErrInvalid},
		{name: "non octal digit", in: " 008\x00", wantErr: ErrInvalid},
		{name: "letters", in: "abcd", wantErr: ErrInvalid},
		{name: "junk after digits", in: "12x\x00", wantErr: ErrInvalid},
		{name: "junk after trailing space", in: "12 x", wantErr: ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse([]byte(tt.in))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		width   int
		v       int64
		want    string
		wantErr error
	}{
		{name: "mode", width: 8, v: 0o644, want: " 000644\x00"},
		{name: "size", width: 12, v: 11, want: " 0000000013\x00"},
		{name: "zero", width: 8, v: 0, want: " 000000\x00"},
		{name: "fits with padding", width: 4, v: 0o77, want: " 77\x00"},
		{name: "drops space", width: 4, v: 0o777, want: "777\x00"},
		{name: "drops nul", width: 4, v: 0o7777, want: "7777"},
		{name: "too large", width: 4, v: 0o77777, wantErr: ErrTooLarge},
		{name: "negative", width: 8, v: -1, wantErr: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dst := make([]byte, tt.width)
			err := Format(dst, tt.v)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, make([]byte, tt.width), dst, "dst must be untouched on error")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(dst))
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	t.Parallel()

	values := []int64{0, 1, 7, 8, 0o644, 0o755, 0o7777, 511, 1048576, 0o77777777777}
	for _, v := range values {
		dst := make([]byte, 12)
		require.NoError(t, Format(dst, v))

		got, err := Parse(dst)
		require.NoError(t, err)
		assert.Equal(t, v, got, "value %d", v)
	}
}
