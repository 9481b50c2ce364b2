package bits

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTruncated is returned when a read runs past the end of the bit string.
var ErrTruncated = errors.New("bits: truncated input")

// ErrInvalidWidth is returned for widths outside 0..64.
var ErrInvalidWidth = errors.New("bits: invalid width")

// TruncatedError records where a short read happened.
type TruncatedError struct {
	Offset int
	Want   int
	Have   int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("%s: need %d bits at offset %d, have %d", ErrTruncated, e.Want, e.Offset, e.Have)
}

func (e *TruncatedError) Is(target error) bool {
	return target == ErrTruncated
}

// Reader is a read cursor over an immutable bit string. The position only
// moves forward, and only on successful reads.
type Reader struct {
	bits string
	pos  int
}

// NewReader returns a cursor positioned at the first bit of s.
func NewReader(s string) *Reader {
	return &Reader{bits: s}
}

// NewHexReader expands h with HexToBinary and returns a cursor over it.
func NewHexReader(h string) *Reader {
	return NewReader(HexToBinary(h))
}

// Pos returns the number of bits consumed so far.
func (r *Reader) Pos() int { return r.pos }

// Len returns the total length of the underlying bit string.
func (r *Reader) Len() int { return len(r.bits) }

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() int { return len(r.bits) - r.pos }

func (r *Reader) check(width int) error {
	if width < 0 || width > 64 {
		return fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	if width > r.Remaining() {
		return &TruncatedError{Offset: r.pos, Want: width, Have: r.Remaining()}
	}
	return nil
}

// Peek returns the next width bits as an unsigned value without advancing.
func (r *Reader) Peek(width int) (uint64, error) {
	if err := r.check(width); err != nil {
		return 0, err
	}
	var v uint64
	for i := r.pos; i < r.pos+width; i++ {
		v <<= 1
		if r.bits[i] == '1' {
			v |= 1
		}
	}
	return v, nil
}

// Read returns the next width bits as an unsigned value and advances.
func (r *Reader) Read(width int) (uint64, error) {
	v, err := r.Peek(width)
	if err != nil {
		return 0, err
	}
	r.pos += width
	return v, nil
}

// ReadBits returns the next width characters verbatim and advances.
func (r *Reader) ReadBits(width int) (string, error) {
	if width < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	if width > r.Remaining() {
		return "", &TruncatedError{Offset: r.pos, Want: width, Have: r.Remaining()}
	}
	s := r.bits[r.pos : r.pos+width]
	r.pos += width
	return s, nil
}

// Writer accumulates a bit string.
type Writer struct {
	b strings.Builder
}

// WriteUint appends v as exactly width bits, dropping high-order bits that
// do not fit.
func (w *Writer) WriteUint(v uint64, width int) {
	w.b.WriteString(FormatUint(v, width))
}

// WriteBits appends s verbatim.
func (w *Writer) WriteBits(s string) {
	w.b.WriteString(s)
}

// Len returns the number of bits written.
func (w *Writer) Len() int { return w.b.Len() }

func (w *Writer) String() string { return w.b.String() }
