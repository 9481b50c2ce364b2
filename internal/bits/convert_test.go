package bits

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDecimalToBinary(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{name: "fits", text: "5", width: 3, want: "101"},
		{name: "keeps low bits", text: "9", width: 3, want: "001"},
		{name: "malformed", text: "abc", width: 4, want: "0000"},
		{name: "pads left", text: "1", width: 8, want: "00000001"},
		{name: "zero width", text: "7", width: 0, want: ""},
		{name: "surrounding space", text: " 48 ", width: 13, want: "0000000110000"},
		{name: "negative wraps", text: "-1", width: 4, want: "1111"},
		{name: "empty", text: "", width: 2, want: "00"},
		{name: "larger than uint64", text: "36893488147419103233", width: 3, want: "001"},
		{name: "max for width", text: "8191", width: 13, want: "1111111111111"},
		{name: "one past max", text: "8192", width: 13, want: "0000000000000"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DecimalToBinary(tc.text, tc.width))
		})
	}
}

func TestFormatUintMatchesDecimalToBinary(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint64().Draw(t, "v")
		width := rapid.IntRange(1, 64).Draw(t, "width")
		require.Equal(t, DecimalToBinary(strconv.FormatUint(v, 10), width), FormatUint(v, width))
	})
}

func TestHexToBinary(t *testing.T) {
	assert.Equal(t, "11111111", HexToBinary("FF"))
	assert.Equal(t, "000001100000000001100001", HexToBinary("060061"))
	assert.Equal(t, "10101011", HexToBinary("a-b"), "non-hex characters are skipped")
	assert.Equal(t, "", HexToBinary("xyz"))
}

func TestBinaryToHex(t *testing.T) {
	assert.Equal(t, "FF", BinaryToHex("11111111"))
	assert.Equal(t, "8", BinaryToHex("1"), "right padded to a nibble")
	assert.Equal(t, "A0", BinaryToHex("10100"))
	assert.Equal(t, "", BinaryToHex(""))
}

func TestHexBinarySymmetry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOf(rapid.Byte()).Draw(t, "raw")
		h := BytesToHex(raw)
		if rapid.Bool().Draw(t, "lower") {
			h = strings.ToLower(h)
		}
		require.Equal(t, strings.ToUpper(h), BinaryToHex(HexToBinary(h)))
	})
}

func TestHexBytes(t *testing.T) {
	b, err := HexToBytes("0600612201f7")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x06, 0x00, 0x61, 0x22, 0x01, 0xF7}, b)
	assert.Equal(t, "0600612201F7", BytesToHex(b))

	_, err = HexToBytes("ABC")
	assert.Error(t, err)
}

func TestReader(t *testing.T) {
	r := NewHexReader("0600612201F7")
	require.Equal(t, 48, r.Len())

	tag, err := r.Peek(8)
	require.NoError(t, err)
	assert.EqualValues(t, 6, tag)
	assert.Equal(t, 0, r.Pos(), "peek does not advance")

	tag, err = r.Read(8)
	require.NoError(t, err)
	assert.EqualValues(t, 6, tag)

	dir, err := r.Read(2)
	require.NoError(t, err)
	assert.EqualValues(t, 0, dir)

	length, err := r.Read(13)
	require.NoError(t, err)
	assert.EqualValues(t, 48, length)
	assert.Equal(t, 25, r.Remaining())

	_, err = r.Read(26)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTruncated))
	var te *TruncatedError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 23, te.Offset)
	assert.Equal(t, 26, te.Want)
	assert.Equal(t, 25, te.Have)
	assert.Equal(t, 23, r.Pos(), "failed read does not advance")

	s, err := r.ReadBits(25)
	require.NoError(t, err)
	assert.Equal(t, "1001000100000000111110111", s)
	assert.Equal(t, 0, r.Remaining())

	_, err = r.Read(65)
	assert.True(t, errors.Is(err, ErrInvalidWidth))
}

func TestWriter(t *testing.T) {
	var w Writer
	w.WriteUint(6, 8)
	w.WriteUint(9, 3)
	w.WriteBits("11")
	assert.Equal(t, "00000110"+"001"+"11", w.String())
	assert.Equal(t, 13, w.Len())
}

func TestIsBinary(t *testing.T) {
	assert.True(t, IsBinary("0101"))
	assert.True(t, IsBinary(""))
	assert.False(t, IsBinary("012"))
}
