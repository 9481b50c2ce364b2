package balise

import (
	"errors"
	"fmt"
	"strconv"

	"example.com/balisegate/internal/bits"
	"example.com/balisegate/internal/common"
)

// NoTag marks layouts that are not selected by a leading tag, such as the
// telegram header.
const NoTag = -1

// Layout is the fixed field layout of one packet type. The top-level
// NID_PACKET and L_PACKET slots, when present, are the tag and length slots:
// the encoder owns their values.
type Layout struct {
	Tag  int
	Name string
	Body []Element

	tagIdx    int
	lengthIdx int
	unknown   bool
}

// NewLayout builds a layout and resolves its tag and length slots.
func NewLayout(tag int, name string, body ...Element) *Layout {
	l := &Layout{Tag: tag, Name: name, Body: body, tagIdx: -1, lengthIdx: -1}
	for i, el := range body {
		s, ok := el.(Slot)
		if !ok {
			continue
		}
		switch {
		case s.Var == NIDPacket && l.tagIdx < 0 && tag != NoTag:
			l.tagIdx = i
		case s.Var == LPacket && l.lengthIdx < 0:
			l.lengthIdx = i
		}
	}
	return l
}

func unknownLayout(tag uint8) *Layout {
	l := NewLayout(int(tag), "Unknown packet", Var(NIDPacket, uint64(tag)))
	l.unknown = true
	return l
}

// HasLength reports whether the layout carries a self-referential length.
func (l *Layout) HasLength() bool { return l.lengthIdx >= 0 }

// Decode reads one packet from r. Each component consumes exactly its width
// from the shared cursor; a short input yields a *DecodeError wrapping
// ErrTruncated.
func (l *Layout) Decode(r *bits.Reader) (*Packet, error) {
	start := r.Pos()
	nodes, err := decodeNodes(l.Body, r, nil)
	if err != nil {
		return nil, &DecodeError{Packet: l.Name, Tag: l.Tag, Offset: start, Err: err}
	}
	return &Packet{Layout: l, nodes: nodes}, nil
}

// Default returns a packet holding the layout's literal defaults.
func (l *Layout) Default() *Packet {
	return l.Build(nil)
}

// Build returns a packet whose fields take values from the flat key space
// produced by Packet.Fields. Iteration sizes come from their count keys;
// missing keys take the layout defaults. Values are truncated to width.
func (l *Layout) Build(values map[string]uint64) *Packet {
	var b *builder
	if values != nil {
		b = &builder{values: values}
	}
	p := &Packet{Layout: l, nodes: buildNodes(b, l.Body, nil, &keyer{}, "")}
	p.stampTag()
	return p
}

// Packet is one decoded or constructed packet. Instances are exclusively
// owned by their creator; use Clone to share.
type Packet struct {
	Layout *Layout
	nodes  []node
}

func (p *Packet) Tag() int     { return p.Layout.Tag }
func (p *Packet) Name() string { return p.Layout.Name }

// IsUnknown reports whether p is the placeholder emitted for an unknown tag.
func (p *Packet) IsUnknown() bool { return p.Layout.unknown }

func (p *Packet) tagField() *Field {
	if p.Layout.tagIdx < 0 {
		return nil
	}
	return p.nodes[p.Layout.tagIdx].(*Field)
}

// stampTag stores the layout tag in the tag slot.
func (p *Packet) stampTag() {
	if f := p.tagField(); f != nil {
		f.set(uint64(p.Layout.Tag))
	}
}

func (p *Packet) lengthField() *Field {
	if p.Layout.lengthIdx < 0 {
		return nil
	}
	return p.nodes[p.Layout.lengthIdx].(*Field)
}

// Length returns the current value of the length slot.
func (p *Packet) Length() (uint64, bool) {
	f := p.lengthField()
	if f == nil {
		return 0, false
	}
	return f.value, true
}

// Encode serialises the packet. Packets with a length slot are encoded
// twice: once to measure, then again after the measured length has been
// stored. Lengths or counts too large for their field wrap silently; the
// condition is only logged at debug level.
func (p *Packet) Encode() string {
	out, err := p.EncodeStrict()
	if err != nil {
		common.Debugf("%v", err)
	}
	return out
}

// EncodeStrict is Encode that also returns any *OverflowError. The returned
// bits are identical to Encode's.
func (p *Packet) EncodeStrict() (string, error) {
	p.stampTag()
	var errs []error
	first := p.pass(func(field string, actual, max uint64) {
		errs = append(errs, &OverflowError{Packet: p.Layout.Name, Field: field, Actual: actual, Max: max})
	})
	lf := p.lengthField()
	if lf == nil {
		return first, errors.Join(errs...)
	}
	measured := uint64(len(first))
	if measured > lf.Var.Max() {
		errs = append(errs, &OverflowError{Packet: p.Layout.Name, Field: lf.Var.Name, Actual: measured, Max: lf.Var.Max()})
	}
	lf.set(measured)
	second := p.pass(func(string, uint64, uint64) {})
	return second, errors.Join(errs...)
}

func (p *Packet) pass(overflow func(field string, actual, max uint64)) string {
	e := &encoder{packet: p.Layout.Name, overflow: overflow}
	encodeNodes(e, p.nodes, nil)
	return e.w.String()
}

// BitLen returns the encoded length in bits.
func (p *Packet) BitLen() int {
	return len(p.Encode())
}

// Entry is one addressable field of a packet.
type Entry struct {
	Key   string
	Field *Field
	// Group is set on the count entry of an iteration.
	Group *Group
	// ReadOnly entries are derived by the encoder: the tag slot, the length
	// slot and iteration counts.
	ReadOnly bool
}

// Fields returns every wire-present field in encoding order. Keys look like
// "Q_DIR", "N_ITER", "N_ITER[2].D_GRADIENT"; a name repeated on one level
// is suffixed "#2", "#3".
func (p *Packet) Fields() []Entry {
	var out []Entry
	tf, lf := p.tagField(), p.lengthField()
	walkNodes(p.nodes, nil, &keyer{}, "", func(e Entry) {
		if e.Field == tf || e.Field == lf {
			e.ReadOnly = true
		}
		out = append(out, e)
	})
	return out
}

func walkNodes(nodes []node, parent *scope, k *keyer, prefix string, fn func(Entry)) {
	sc := &scope{parent: parent, nodes: make([]node, 0, len(nodes))}
	for _, n := range nodes {
		switch n := n.(type) {
		case *Field:
			fn(Entry{Key: prefix + k.next(n.Var.Name), Field: n})
		case *Group:
			key := prefix + k.next(n.Iter.name())
			n.count.set(uint64(len(n.Instances)))
			fn(Entry{Key: key, Field: n.count, Group: n, ReadOnly: true})
			for i, inst := range n.Instances {
				walkNodes(inst, sc, &keyer{}, key+"["+strconv.Itoa(i)+"].", fn)
			}
		case *Branch:
			n.active = n.Opt.When.holds(sc)
			if n.active {
				walkNodes(n.Nodes, sc, k, prefix, fn)
			}
		}
		sc.nodes = append(sc.nodes, n)
	}
}

// Values returns the flat key/value view of Fields. Layout.Build(p.Values())
// reproduces p.
func (p *Packet) Values() map[string]uint64 {
	out := make(map[string]uint64)
	for _, e := range p.Fields() {
		out[e.Key] = e.Field.value
	}
	return out
}

// Lookup returns the field addressed by key.
func (p *Packet) Lookup(key string) (*Field, bool) {
	e, ok := p.entry(key)
	return e.Field, ok
}

// Group returns the iteration addressed by its count key.
func (p *Packet) Group(key string) (*Group, bool) {
	e, ok := p.entry(key)
	if !ok || e.Group == nil {
		return nil, false
	}
	return e.Group, true
}

func (p *Packet) entry(key string) (Entry, bool) {
	for _, e := range p.Fields() {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// Set stores v (truncated to the field width) in the field addressed by key.
func (p *Packet) Set(key string, v uint64) error {
	e, ok := p.entry(key)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, p.Layout.Name, key)
	}
	if e.ReadOnly {
		return fmt.Errorf("%w: %s.%s", ErrReadOnly, p.Layout.Name, key)
	}
	e.Field.set(v)
	return nil
}

// SetText stores operator text in the field addressed by key. Text that is
// not a number stores zero.
func (p *Packet) SetText(key, text string) error {
	e, ok := p.entry(key)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, p.Layout.Name, key)
	}
	if e.ReadOnly {
		return fmt.Errorf("%w: %s.%s", ErrReadOnly, p.Layout.Name, key)
	}
	e.Field.setText(text)
	return nil
}

// Clone returns a deep copy of p.
func (p *Packet) Clone() *Packet {
	return &Packet{Layout: p.Layout, nodes: cloneNodes(p.nodes)}
}
