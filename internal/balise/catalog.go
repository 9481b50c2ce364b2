package balise

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"example.com/balisegate/internal/bits"
)

// Version is the 7-bit M_VERSION value carried in the telegram header.
type Version uint8

const (
	Version1_0 Version = 16
	Version1_1 Version = 17
	Version2_0 Version = 32
	Version2_1 Version = 33
)

// Major returns the X of an X.Y version.
func (v Version) Major() int { return int(v >> 4) }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v>>4, v&0x0F)
}

// ParseVersion accepts "X.Y" or the raw M_VERSION number.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if major, minor, ok := strings.Cut(s, "."); ok {
		x, errX := strconv.ParseUint(major, 10, 3)
		y, errY := strconv.ParseUint(minor, 10, 4)
		if errX != nil || errY != nil {
			return 0, fmt.Errorf("balise: invalid version %q", s)
		}
		return Version(x<<4 | y), nil
	}
	n, err := strconv.ParseUint(s, 10, 7)
	if err != nil {
		return 0, fmt.Errorf("balise: invalid version %q", s)
	}
	return Version(n), nil
}

const (
	// TagWidth is the width of NID_PACKET.
	TagWidth = 8
	// EndTag terminates a telegram.
	EndTag = 255
)

// Catalog maps packet tags to layouts for one family of system versions.
// Catalogs are built at init and only read afterwards.
type Catalog struct {
	Name    string
	layouts map[uint8]*Layout
}

func newCatalog(name string, layouts ...*Layout) *Catalog {
	c := &Catalog{Name: name, layouts: make(map[uint8]*Layout, len(layouts))}
	for _, l := range layouts {
		if l.Tag < 0 || l.Tag > EndTag {
			panic(fmt.Sprintf("balise: catalog %s: layout %q has no tag", name, l.Name))
		}
		if _, dup := c.layouts[uint8(l.Tag)]; dup {
			panic(fmt.Sprintf("balise: catalog %s: duplicate tag %d", name, l.Tag))
		}
		c.layouts[uint8(l.Tag)] = l
	}
	return c
}

var (
	// Baseline2 serves system versions 1.x.
	Baseline2 = newCatalog("baseline 2",
		VBCMarker, Linking, VBCOrder, MovementAuthority, GradientProfile,
		SpeedProfileB2, LevelTransition, TSR, TSRRevocation, GeographicalPosition,
		DangerForShunting, StopIfInSR, DefaultInformation, EndOfInformation,
	)
	// Baseline3 serves system versions 2.x and anything newer.
	Baseline3 = newCatalog("baseline 3",
		VBCMarker, Linking, VBCOrder, MovementAuthority, GradientProfile,
		SpeedProfileB3, LevelTransition, TSR, TSRRevocation, GeographicalPosition,
		DangerForShunting, InfillLocation, StopIfInSR, DefaultInformation, EndOfInformation,
	)
)

// CatalogFor selects the catalog for a system version.
func CatalogFor(v Version) *Catalog {
	if v.Major() == 1 {
		return Baseline2
	}
	return Baseline3
}

// Layout returns the layout registered for tag.
func (c *Catalog) Layout(tag uint8) (*Layout, bool) {
	l, ok := c.layouts[tag]
	return l, ok
}

// Layouts returns the catalog's layouts ordered by tag.
func (c *Catalog) Layouts() []*Layout {
	out := make([]*Layout, 0, len(c.layouts))
	for _, l := range c.layouts {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// Decode walks r packet by packet. It stops after the end-of-information
// packet, when fewer than TagWidth bits remain, at an unknown tag (after
// appending a placeholder packet) or at the first decode failure. The
// packets decoded so far are always returned; the error only explains an
// abnormal stop.
func (c *Catalog) Decode(r *bits.Reader) ([]*Packet, error) {
	var packets []*Packet
	for r.Remaining() >= TagWidth {
		offset := r.Pos()
		raw, err := r.Peek(TagWidth)
		if err != nil {
			return packets, err
		}
		tag := uint8(raw)
		layout, ok := c.layouts[tag]
		if !ok {
			packets = append(packets, unknownLayout(tag).Default())
			return packets, &UnknownTagError{Tag: tag, Offset: offset, Catalog: c.Name}
		}
		p, err := layout.Decode(r)
		if err != nil {
			return packets, err
		}
		packets = append(packets, p)
		if tag == EndTag {
			break
		}
	}
	return packets, nil
}

// Decode decodes a packet sequence using the catalog for version.
func Decode(bitstring string, version Version) ([]*Packet, error) {
	return CatalogFor(version).Decode(bits.NewReader(bitstring))
}

// DecodeHex is Decode for hex input.
func DecodeHex(h string, version Version) ([]*Packet, error) {
	return Decode(bits.HexToBinary(h), version)
}

// IsTruncated reports whether err stopped a scan because input ran out
// inside a packet.
func IsTruncated(err error) bool {
	return errors.Is(err, ErrTruncated)
}
