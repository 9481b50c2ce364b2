package balise

import (
	"errors"
	"fmt"

	"example.com/balisegate/internal/bits"
)

var (
	// ErrTruncated is returned when a packet runs past the end of its input.
	ErrTruncated = bits.ErrTruncated
	// ErrUnknownPacket is returned when a tag has no layout in the active catalog.
	ErrUnknownPacket = errors.New("balise: unknown packet tag")
	// ErrLengthOverflow is reported when a packet or group is too large for the
	// fixed-width field that carries its length or count.
	ErrLengthOverflow = errors.New("balise: value exceeds field width")
	// ErrUnknownField is returned for keys that do not address a field.
	ErrUnknownField = errors.New("balise: unknown field")
	// ErrReadOnly is returned when writing a field the encoder owns.
	ErrReadOnly = errors.New("balise: field is derived by the encoder")
)

// DecodeError wraps a failure while decoding one packet.
type DecodeError struct {
	Packet string
	Tag    int
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("balise: decode %s (tag %d) at bit %d: %v", e.Packet, e.Tag, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnknownTagError reports a tag missing from the catalog in use.
type UnknownTagError struct {
	Tag     uint8
	Offset  int
	Catalog string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("%s %d at bit %d (%s)", ErrUnknownPacket, e.Tag, e.Offset, e.Catalog)
}

func (e *UnknownTagError) Is(target error) bool {
	return target == ErrUnknownPacket
}

// OverflowError reports a length or count that did not fit its field. The
// encoded value is the low-order bits of Actual.
type OverflowError struct {
	Packet string
	Field  string
	Actual uint64
	Max    uint64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s: %s.%s (%d > %d)", ErrLengthOverflow, e.Packet, e.Field, e.Actual, e.Max)
}

func (e *OverflowError) Is(target error) bool {
	return target == ErrLengthOverflow
}
