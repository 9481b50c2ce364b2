package balise

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"example.com/balisegate/internal/bits"
	"example.com/balisegate/internal/dict"
)

func TestDecodeVirtualBaliseCoverOrder(t *testing.T) {
	p, err := VBCOrder.Decode(bits.NewHexReader("0600612201F7"))
	require.NoError(t, err)

	want := map[string]uint64{
		"NID_PACKET": 6,
		"Q_DIR":      0,
		"L_PACKET":   48,
		"Q_VBCO":     1,
		"NID_VBCMK":  8,
		"NID_C":      513,
		"T_VBC":      247,
	}
	assert.Equal(t, want, p.Values())
	assert.Equal(t, VBCOrder.Default().Values(), p.Values())
	assert.Equal(t, "0600612201F7", bits.BinaryToHex(p.Encode()))
}

func TestDefaultLengthsMatchEncoding(t *testing.T) {
	for _, c := range []*Catalog{Baseline2, Baseline3} {
		for _, l := range c.Layouts() {
			if !l.HasLength() {
				continue
			}
			p := l.Default()
			literal, ok := p.Length()
			require.True(t, ok)
			assert.Equal(t, int(literal), len(p.Encode()), "%s: %s", c.Name, l.Name)
		}
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	for _, c := range []*Catalog{Baseline2, Baseline3} {
		for _, l := range c.Layouts() {
			l := l
			t.Run(c.Name+"/"+l.Name, func(t *testing.T) {
				rapid.Check(t, func(t *rapid.T) {
					raw := rapid.SliceOfN(rapid.Byte(), 1, 256).Draw(t, "raw")
					input := bits.FormatUint(uint64(l.Tag), TagWidth) + bits.HexToBinary(bits.BytesToHex(raw))

					p, err := l.Decode(bits.NewReader(input))
					if err != nil {
						require.ErrorIs(t, err, ErrTruncated)
						return
					}
					encoded, strictErr := p.EncodeStrict()
					if length, ok := p.Length(); ok && strictErr == nil {
						require.Equal(t, int(length), len(encoded))
					}

					q, err := l.Decode(bits.NewReader(encoded))
					require.NoError(t, err)
					require.Equal(t, p.Values(), q.Values())
					require.Equal(t, encoded, q.Encode())
					require.Equal(t, encoded, l.Build(p.Values()).Encode())
				})
			})
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	_, err := VBCOrder.Decode(bits.NewHexReader("0600612201"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncated)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 6, de.Tag)
	assert.Equal(t, 0, de.Offset)

	// T_VBC is the first field that does not fit.
	var te *bits.TruncatedError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 40, te.Offset)
	assert.Equal(t, 8, te.Want)
	assert.Equal(t, 0, te.Have)
}

func TestIterationCount(t *testing.T) {
	p := GradientProfile.Build(map[string]uint64{
		"N_ITER":               3,
		"N_ITER[1].D_GRADIENT": 250,
		"N_ITER[2].G_A":        12,
	})
	g, ok := p.Group("N_ITER")
	require.True(t, ok)
	assert.Equal(t, 3, g.Len())

	encoded := p.Encode()
	assert.Len(t, encoded, 54+3*24)

	q, err := GradientProfile.Decode(bits.NewReader(encoded))
	require.NoError(t, err)
	g, ok = q.Group("N_ITER")
	require.True(t, ok)
	require.Equal(t, 3, g.Len())

	f, ok := g.Field(1, 0)
	require.True(t, ok)
	assert.Equal(t, uint64(250), f.Value())
	assert.Equal(t, "D_GRADIENT", f.Var.Name)

	inst := g.Instance(2)
	require.Len(t, inst, 3)
	assert.Equal(t, uint64(12), inst[2].Value())
	assert.Nil(t, g.Instance(3))
}

var (
	testOuter = &Variable{Name: "N_A", Width: 2}
	testMid   = &Variable{Name: "N_B", Width: 2}
	testInner = &Variable{Name: "N_C", Width: 3}
	testValue = &Variable{Name: "X", Width: 4}

	testNested = NewLayout(200, "Nested",
		Var(NIDPacket, 200),
		Var(LPacket, 0),
		Repeat(testOuter, 0,
			Var(testValue, 1),
			Repeat(testMid, 0,
				Var(testValue, 2),
				Repeat(testInner, 0,
					Var(testValue, 3),
				),
			),
		),
	)
)

func TestNestedIterations(t *testing.T) {
	p := testNested.Build(map[string]uint64{
		"N_A":                    2,
		"N_A[0].X":               5,
		"N_A[0].N_B":             1,
		"N_A[0].N_B[0].X":        6,
		"N_A[0].N_B[0].N_C":      3,
		"N_A[0].N_B[0].N_C[2].X": 9,
	})
	encoded := p.Encode()
	// header 23 + N_A 2 + (X 4 + N_B 2 + X 4 + N_C 3 + 3*4) + (X 4 + N_B 2)
	assert.Len(t, encoded, 54)

	q, err := testNested.Decode(bits.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, p.Values(), q.Values())

	outer, ok := q.Group("N_A")
	require.True(t, ok)
	require.Equal(t, 2, outer.Len())

	mid, ok := outer.Group(0, 1)
	require.True(t, ok)
	require.Equal(t, 1, mid.Len())

	inner, ok := mid.Group(0, 1)
	require.True(t, ok)
	require.Equal(t, 3, inner.Len())

	f, ok := inner.Field(2, 0)
	require.True(t, ok)
	assert.Equal(t, uint64(9), f.Value())
	f, ok = inner.Field(0, 0)
	require.True(t, ok)
	assert.Equal(t, uint64(3), f.Value())

	empty, ok := outer.Group(1, 1)
	require.True(t, ok)
	assert.Equal(t, 0, empty.Len())

	f, ok = q.Lookup("N_A[0].N_B[0].N_C[2].X")
	require.True(t, ok)
	assert.Equal(t, uint64(9), f.Value())
}

func TestLengthOverflow(t *testing.T) {
	big := &Variable{Name: "N_BIG", Width: 10}
	oversized := NewLayout(201, "Oversized",
		Var(NIDPacket, 201),
		Var(LPacket, 0),
		Repeat(big, 600, Var(DStatic, 0)),
	)

	p := oversized.Default()
	encoded, err := p.EncodeStrict()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLengthOverflow)
	assert.Len(t, encoded, 9031)

	var oe *OverflowError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, "L_PACKET", oe.Field)
	assert.Equal(t, uint64(9031), oe.Actual)
	assert.Equal(t, uint64(8191), oe.Max)

	length, ok := p.Length()
	require.True(t, ok)
	assert.Equal(t, uint64(9031&8191), length)

	// Encode writes the same bits and only logs.
	assert.Equal(t, encoded, p.Encode())
}

func TestCountOverflow(t *testing.T) {
	p := GradientProfile.Build(map[string]uint64{"N_ITER": 31})
	g, ok := p.Group("N_ITER")
	require.True(t, ok)
	g.Instances = append(g.Instances, g.Instances[0], g.Instances[0])

	encoded, err := p.EncodeStrict()
	require.Error(t, err)

	var oe *OverflowError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, "N_ITER", oe.Field)
	assert.Equal(t, uint64(33), oe.Actual)
	assert.Equal(t, uint64(31), oe.Max)

	q, err := GradientProfile.Decode(bits.NewReader(encoded))
	require.NoError(t, err)
	g, ok = q.Group("N_ITER")
	require.True(t, ok)
	assert.Equal(t, 1, g.Len(), "count wraps modulo 32")
}

func TestOptionalBlock(t *testing.T) {
	p := Linking.Default()
	_, ok := p.Lookup("NID_C")
	assert.False(t, ok)
	assert.Len(t, p.Encode(), 69)

	require.NoError(t, p.Set("Q_NEWCOUNTRY", 1))
	require.NoError(t, p.Set("NID_C", 42))
	encoded := p.Encode()
	assert.Len(t, encoded, 79)

	q, err := Linking.Decode(bits.NewReader(encoded))
	require.NoError(t, err)
	f, ok := q.Lookup("NID_C")
	require.True(t, ok)
	assert.Equal(t, uint64(42), f.Value())

	require.NoError(t, p.Set("Q_NEWCOUNTRY", 0))
	assert.Len(t, p.Encode(), 69)
	assert.NotContains(t, p.Values(), "NID_C")

	require.NoError(t, p.Set("Q_NEWCOUNTRY", 1))
	f, ok = p.Lookup("NID_C")
	require.True(t, ok)
	assert.Equal(t, uint64(42), f.Value(), "inactive blocks keep their values")
}

func TestSpeedDifferenceQualifier(t *testing.T) {
	p := SpeedProfileB3.Build(map[string]uint64{
		"N_ITER":              2,
		"N_ITER[0].Q_DIFF":    0,
		"N_ITER[0].NC_CDDIFF": 4,
		"N_ITER[1].Q_DIFF":    2,
		"N_ITER[1].NC_DIFF":   2,
		"N_ITER#2":            0,
	})
	encoded := p.Encode()
	// 53 + 2*(2+4+7) + 5
	assert.Len(t, encoded, 84)

	q, err := SpeedProfileB3.Decode(bits.NewReader(encoded))
	require.NoError(t, err)
	values := q.Values()
	assert.Equal(t, uint64(4), values["N_ITER[0].NC_CDDIFF"])
	assert.NotContains(t, values, "N_ITER[0].NC_DIFF")
	assert.Equal(t, uint64(2), values["N_ITER[1].NC_DIFF"])
	assert.NotContains(t, values, "N_ITER[1].NC_CDDIFF")
}

func TestSetErrors(t *testing.T) {
	p := GradientProfile.Default()
	assert.ErrorIs(t, p.Set("NID_PACKET", 7), ErrReadOnly)
	assert.ErrorIs(t, p.Set("L_PACKET", 5), ErrReadOnly)
	assert.ErrorIs(t, p.Set("N_ITER", 5), ErrReadOnly)
	assert.ErrorIs(t, p.SetText("N_ITER", "5"), ErrReadOnly)
	assert.ErrorIs(t, p.Set("D_LINK", 5), ErrUnknownField)
	assert.ErrorIs(t, p.SetText("N_ITER[4].G_A", "1"), ErrUnknownField)

	for _, e := range p.Fields() {
		switch e.Key {
		case "NID_PACKET", "L_PACKET", "N_ITER":
			assert.True(t, e.ReadOnly, e.Key)
		default:
			assert.False(t, e.ReadOnly, e.Key)
		}
	}
}

func TestTagSlotFollowsLayout(t *testing.T) {
	_, err := VBCOrder.BuildChecked(map[string]uint64{"NID_PACKET": 7})
	require.ErrorIs(t, err, ErrReadOnly)

	p, err := VBCOrder.BuildChecked(map[string]uint64{"NID_PACKET": 6, "T_VBC": 9})
	require.NoError(t, err)
	assert.Equal(t, "00000110", p.Encode()[:TagWidth])

	// Build ignores a conflicting tag; the encoder writes the layout's.
	forced := VBCOrder.Build(map[string]uint64{"NID_PACKET": 7})
	f, ok := forced.Lookup("NID_PACKET")
	require.True(t, ok)
	assert.Equal(t, uint64(6), f.Value())

	packets, err := Decode(forced.Encode(), Version2_0)
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, 6, packets[0].Tag())
	assert.False(t, packets[0].IsUnknown())
}

func TestSetTruncatesAndParses(t *testing.T) {
	p := TSR.Default()

	require.NoError(t, p.Set("V_TSR", 200))
	f, _ := p.Lookup("V_TSR")
	assert.Equal(t, uint64(72), f.Value())

	require.NoError(t, p.SetText("V_TSR", "fast"))
	assert.Equal(t, uint64(0), f.Value())
	assert.Equal(t, "0000000", f.Bits())

	require.NoError(t, p.SetText("V_TSR", " 24 "))
	assert.Equal(t, "24", f.Text())
	assert.Equal(t, "0011000", f.Bits())
}

func TestClone(t *testing.T) {
	p := GradientProfile.Build(map[string]uint64{"N_ITER": 2})
	require.NoError(t, p.Set("N_ITER[0].G_A", 3))
	c := p.Clone()
	require.NoError(t, c.Set("N_ITER[0].G_A", 7))

	orig, _ := p.Lookup("N_ITER[0].G_A")
	copied, _ := c.Lookup("N_ITER[0].G_A")
	assert.Equal(t, uint64(3), orig.Value())
	assert.Equal(t, uint64(7), copied.Value())
	assert.NotEqual(t, p.Encode(), c.Encode())
}

func TestFieldKeys(t *testing.T) {
	p := SpeedProfileB2.Build(map[string]uint64{"N_ITER#2": 1, "N_ITER#2[0].N_ITER": 1})
	var keys []string
	for _, e := range p.Fields() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{
		"NID_PACKET", "Q_DIR", "L_PACKET", "Q_SCALE", "D_STATIC", "V_STATIC", "Q_FRONT",
		"N_ITER",
		"N_ITER#2",
		"N_ITER#2[0].D_STATIC", "N_ITER#2[0].V_STATIC", "N_ITER#2[0].Q_FRONT",
		"N_ITER#2[0].N_ITER",
		"N_ITER#2[0].N_ITER[0].NC_DIFF", "N_ITER#2[0].N_ITER[0].V_DIFF",
	}, keys)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "End of profile", VStatic.Format(127, nil))
	assert.Equal(t, "120 km/h", VStatic.Format(24, nil))
	assert.Equal(t, "Nominal", QDir.Format(1, nil))
	assert.Equal(t, "5", NIDC.Format(5, nil))
	assert.Equal(t, "Infinite", TLoa.Format(1023, nil))
	assert.Equal(t, "30 s", TLoa.Format(30, nil))
	assert.Equal(t, "Use national value", VReleaseDP.Format(127, nil))
	assert.Equal(t, "Use on-board calculated release speed", VReleaseDP.Format(126, nil))

	store, err := dict.FromFile(dict.File{Variables: []dict.FileVariable{
		{Name: "NID_C", Labels: map[string]string{"513": "Test country"}},
	}})
	require.NoError(t, err)
	require.NoError(t, store.Validate(VariableWidth))

	f, ok := VBCOrder.Default().Lookup("NID_C")
	require.True(t, ok)
	assert.Equal(t, "Test country", f.Label(store))
	assert.Equal(t, "513", f.Label(nil))
}

func TestVariableNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, v := range Variables() {
		assert.False(t, seen[v.Name], v.Name)
		seen[v.Name] = true
		assert.Positive(t, v.Width, v.Name)
	}
	w, ok := VariableWidth("L_PACKET")
	require.True(t, ok)
	assert.Equal(t, 13, w)
	_, ok = VariableWidth("NOPE")
	assert.False(t, ok)
}
