package balise

import (
	"strconv"

	"example.com/balisegate/internal/bits"
	"example.com/balisegate/internal/dict"
)

// Variable describes one named fixed-width field type. Every field in the
// catalog is an instance of this record; labels and the reserved sentinel
// value are data, not behaviour.
type Variable struct {
	Name        string
	Description string
	Width       int
	Table       *dict.Table
	Sentinel    *dict.Sentinel
	// Unit and Resolution only affect Format.
	Unit       string
	Resolution uint64
}

// Max returns the largest value representable in the variable's width.
func (v *Variable) Max() uint64 {
	if v.Width >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<uint(v.Width) - 1
}

// Label resolves x against the sentinel and then the table.
func (v *Variable) Label(x uint64) (string, bool) {
	return dict.Resolve(v.Sentinel, v.Table, x)
}

// Format renders x for display. Overrides in store win over built-in labels.
func (v *Variable) Format(x uint64, store *dict.Store) string {
	if label, ok := store.Lookup(v.Name, x); ok {
		return label
	}
	if label, ok := v.Label(x); ok {
		return label
	}
	if v.Unit != "" {
		res := v.Resolution
		if res == 0 {
			res = 1
		}
		return strconv.FormatUint(x*res, 10) + " " + v.Unit
	}
	return strconv.FormatUint(x, 10)
}

// Field is one decoded occurrence of a Variable.
type Field struct {
	Var   *Variable
	value uint64
}

func newField(v *Variable, x uint64) *Field {
	f := &Field{Var: v}
	f.set(x)
	return f
}

// Value returns the current value.
func (f *Field) Value() uint64 { return f.value }

// Text returns the value in decimal.
func (f *Field) Text() string { return strconv.FormatUint(f.value, 10) }

// Bits returns the value as it is emitted on the wire.
func (f *Field) Bits() string { return bits.FormatUint(f.value, f.Var.Width) }

// Label returns the display form of the value.
func (f *Field) Label(store *dict.Store) string { return f.Var.Format(f.value, store) }

// set stores x modulo 2^width, the same wraparound the wire encoding applies.
func (f *Field) set(x uint64) {
	f.value = x & f.Var.Max()
}

// setText parses operator input. Text that is not a number encodes as zero.
func (f *Field) setText(s string) {
	v, err := bits.NewReader(bits.DecimalToBinary(s, f.Var.Width)).Read(f.Var.Width)
	if err != nil {
		v = 0
	}
	f.value = v
}

func (f *Field) encode(e *encoder, _ *scope) {
	e.w.WriteUint(f.value, f.Var.Width)
}

func (f *Field) clone() node {
	return &Field{Var: f.Var, value: f.value}
}
