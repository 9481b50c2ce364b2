package balise

import (
	"fmt"
	"strings"

	"example.com/balisegate/internal/bits"
)

const (
	// ShortTelegramBits is the user-data size of a short telegram.
	ShortTelegramBits = 210
	// LongTelegramBits is the user-data size of a long telegram.
	LongTelegramBits = 830
)

// Pad fills s with ones up to the smallest telegram size that holds it.
// Content longer than a long telegram is returned unchanged.
func Pad(s string) string {
	switch {
	case len(s) <= ShortTelegramBits:
		return s + strings.Repeat("1", ShortTelegramBits-len(s))
	case len(s) <= LongTelegramBits:
		return s + strings.Repeat("1", LongTelegramBits-len(s))
	default:
		return s
	}
}

// EncodePackets concatenates the two-pass encoding of each packet and pads
// the result.
func EncodePackets(packets []*Packet) string {
	var w bits.Writer
	for _, p := range packets {
		w.WriteBits(p.Encode())
	}
	return Pad(w.String())
}

// Telegram is a header followed by packets, normally ending with the
// end-of-information packet.
type Telegram struct {
	Header  *Packet
	Packets []*Packet
}

// NewTelegram returns a telegram with a default header for version and an
// end-of-information packet.
func NewTelegram(version Version) *Telegram {
	h := Header.Default()
	if err := h.Set(MVersion.Name, uint64(version)); err != nil {
		panic(err)
	}
	return &Telegram{Header: h, Packets: []*Packet{EndOfInformation.Default()}}
}

// DecodeTelegram decodes a hex telegram: header, then packets using the
// catalog selected by the header's M_VERSION. A non-nil telegram is
// returned whenever the header decoded; err then explains an early stop.
func DecodeTelegram(h string) (*Telegram, error) {
	return DecodeTelegramBits(bits.HexToBinary(h))
}

// DecodeTelegramBits is DecodeTelegram for a bit string.
func DecodeTelegramBits(s string) (*Telegram, error) {
	r := bits.NewReader(s)
	header, err := Header.Decode(r)
	if err != nil {
		return nil, err
	}
	t := &Telegram{Header: header}
	t.Packets, err = t.Catalog().Decode(r)
	return t, err
}

// Version returns the header's M_VERSION.
func (t *Telegram) Version() Version {
	f, ok := t.Header.Lookup(MVersion.Name)
	if !ok {
		return Version2_0
	}
	return Version(f.Value())
}

// Catalog returns the catalog matching the header version.
func (t *Telegram) Catalog() *Catalog {
	return CatalogFor(t.Version())
}

// Encode returns the padded bit string of header and packets.
func (t *Telegram) Encode() string {
	var w bits.Writer
	if t.Header != nil {
		w.WriteBits(t.Header.Encode())
	}
	for _, p := range t.Packets {
		w.WriteBits(p.Encode())
	}
	return Pad(w.String())
}

// Hex returns Encode in hexadecimal.
func (t *Telegram) Hex() string {
	return bits.BinaryToHex(t.Encode())
}

// Terminated reports whether the last packet is end-of-information.
func (t *Telegram) Terminated() bool {
	return len(t.Packets) > 0 && t.Packets[len(t.Packets)-1].Tag() == EndTag
}

func (t *Telegram) String() string {
	names := make([]string, len(t.Packets))
	for i, p := range t.Packets {
		names[i] = fmt.Sprintf("%d", p.Tag())
	}
	return fmt.Sprintf("telegram v%s [%s]", t.Version(), strings.Join(names, " "))
}
