package balise

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/balisegate/internal/bits"
)

func TestCatalogFor(t *testing.T) {
	tests := []struct {
		version Version
		want    *Catalog
	}{
		{Version1_0, Baseline2},
		{Version1_1, Baseline2},
		{Version2_0, Baseline3},
		{Version2_1, Baseline3},
		{Version(0), Baseline3},
		{Version(0x7F), Baseline3},
	}
	for _, tc := range tests {
		assert.Same(t, tc.want, CatalogFor(tc.version), tc.version.String())
	}
}

func TestCatalogContents(t *testing.T) {
	tags := func(c *Catalog) []int {
		var out []int
		for _, l := range c.Layouts() {
			out = append(out, l.Tag)
		}
		return out
	}
	assert.Equal(t, []int{0, 5, 6, 12, 21, 27, 41, 65, 66, 79, 132, 137, 254, 255}, tags(Baseline2))
	assert.Equal(t, []int{0, 5, 6, 12, 21, 27, 41, 65, 66, 79, 132, 136, 137, 254, 255}, tags(Baseline3))

	l, ok := Baseline2.Layout(27)
	require.True(t, ok)
	assert.Same(t, SpeedProfileB2, l)
	l, ok = Baseline3.Layout(27)
	require.True(t, ok)
	assert.Same(t, SpeedProfileB3, l)
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	assert.Panics(t, func() { newCatalog("dup", TSR, TSR) })
	assert.Panics(t, func() { newCatalog("untagged", Header) })
}

func TestDecodeEndOnly(t *testing.T) {
	for _, v := range []Version{Version1_0, Version2_0} {
		packets, err := DecodeHex("FF", v)
		require.NoError(t, err)
		require.Len(t, packets, 1)
		assert.Equal(t, EndTag, packets[0].Tag())
	}
}

func TestDecodeStopsAtEnd(t *testing.T) {
	packets, err := DecodeHex("0600612201F7FF"+"0600612201F7", Version2_0)
	require.NoError(t, err)
	require.Len(t, packets, 2)
	assert.Equal(t, 6, packets[0].Tag())
	assert.Equal(t, EndTag, packets[1].Tag())
}

func TestDecodeShortTail(t *testing.T) {
	packets, err := Decode("1111111", Version2_0)
	require.NoError(t, err)
	assert.Empty(t, packets)

	packets, err = Decode(bits.HexToBinary("0600612201F7")+"0101", Version2_0)
	require.NoError(t, err)
	assert.Len(t, packets, 1)
}

func TestDecodeUnknownTag(t *testing.T) {
	packets, err := DecodeHex("0600612201F7"+"07FF", Version2_0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPacket)

	var ue *UnknownTagError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, uint8(7), ue.Tag)
	assert.Equal(t, 48, ue.Offset)
	assert.Equal(t, "baseline 3", ue.Catalog)

	require.Len(t, packets, 2)
	assert.False(t, packets[0].IsUnknown())
	assert.True(t, packets[1].IsUnknown())
	assert.Equal(t, 7, packets[1].Tag())
	assert.Equal(t, "00000111", packets[1].Encode())
}

func TestInfillOnlyInBaseline3(t *testing.T) {
	p := InfillLocation.Default()
	input := p.Encode() + "11111111"

	packets, err := Decode(input, Version2_0)
	require.NoError(t, err)
	require.Len(t, packets, 2)
	assert.Same(t, InfillLocation, packets[0].Layout)

	packets, err = Decode(input, Version1_1)
	assert.ErrorIs(t, err, ErrUnknownPacket)
	require.Len(t, packets, 1)
	assert.True(t, packets[0].IsUnknown())
}

func TestDecodeErrorKeepsPrefix(t *testing.T) {
	packets, err := DecodeHex("06006122", Version2_0)
	require.Error(t, err)
	assert.True(t, IsTruncated(err))
	require.Len(t, packets, 0)

	// A default information packet (23 bits) followed by a cut VBC order.
	input := DefaultInformation.Default().Encode() + bits.HexToBinary("0600")
	packets, err = Decode(input, Version2_0)
	assert.True(t, IsTruncated(err))

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 23, de.Offset)
	require.Len(t, packets, 1)
	assert.Equal(t, 254, packets[0].Tag())
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "2.0", Version2_0.String())
	assert.Equal(t, "1.1", Version1_1.String())
	assert.Equal(t, 1, Version1_0.Major())
	assert.Equal(t, 2, Version2_1.Major())
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{in: "2.0", want: Version2_0},
		{in: " 1.1 ", want: Version1_1},
		{in: "33", want: Version2_1},
		{in: "8.0", wantErr: true},
		{in: "1.16", wantErr: true},
		{in: "128", wantErr: true},
		{in: "two", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseVersion(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
