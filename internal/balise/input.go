package balise

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// PacketInput names a packet by tag and overrides some of its fields. Keys
// are those of Packet.Fields.
type PacketInput struct {
	Tag    int               `json:"tag" yaml:"tag"`
	Fields map[string]uint64 `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// TelegramInput is a declarative telegram, as read from an encode request or
// file. Version is "X.Y" or the raw M_VERSION value.
type TelegramInput struct {
	Version    string            `json:"version,omitempty" yaml:"version,omitempty"`
	Headerless bool              `json:"headerless,omitempty" yaml:"headerless,omitempty"`
	Header     map[string]uint64 `json:"header,omitempty" yaml:"header,omitempty"`
	Packets    []PacketInput     `json:"packets" yaml:"packets"`
}

// BuildChecked is Build that rejects keys which do not address a wire field
// of the result, including fields of inactive optional blocks, and a tag
// that differs from the layout's.
func (l *Layout) BuildChecked(values map[string]uint64) (*Packet, error) {
	if v, ok := values[NIDPacket.Name]; ok && l.tagIdx >= 0 && v != uint64(l.Tag) {
		return nil, fmt.Errorf("%w: %s.%s %d does not match tag %d", ErrReadOnly, l.Name, NIDPacket.Name, v, l.Tag)
	}
	p := l.Build(values)
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := p.Lookup(key); !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, l.Name, key)
		}
	}
	return p, nil
}

// Build resolves the input against the catalog of its version, falling back
// to def when Version is empty. An end-of-information packet is appended
// when the last packet is not one. The header is built even for headerless
// inputs; it carries the version.
func (in TelegramInput) Build(def Version) (*Telegram, error) {
	v := def
	if strings.TrimSpace(in.Version) != "" {
		parsed, err := ParseVersion(in.Version)
		if err != nil {
			return nil, err
		}
		v = parsed
	}
	header, err := Header.BuildChecked(in.Header)
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if err := header.Set(MVersion.Name, uint64(v)); err != nil {
		return nil, err
	}
	t := &Telegram{Header: header, Packets: make([]*Packet, 0, len(in.Packets)+1)}
	catalog := t.Catalog()
	for i, pi := range in.Packets {
		if pi.Tag < 0 || pi.Tag > EndTag {
			return nil, fmt.Errorf("packets[%d]: tag %d out of range", i, pi.Tag)
		}
		layout, ok := catalog.Layout(uint8(pi.Tag))
		if !ok {
			return nil, fmt.Errorf("packets[%d]: %w %d in %s", i, ErrUnknownPacket, pi.Tag, catalog.Name)
		}
		p, err := layout.BuildChecked(pi.Fields)
		if err != nil {
			return nil, fmt.Errorf("packets[%d]: %w", i, err)
		}
		t.Packets = append(t.Packets, p)
	}
	if !t.Terminated() {
		t.Packets = append(t.Packets, EndOfInformation.Default())
	}
	return t, nil
}

// Encode builds and encodes the input. On a build failure the bit string is
// empty; otherwise err, if set, only carries *OverflowError values for
// lengths or counts that wrapped.
func (in TelegramInput) Encode(def Version) (string, error) {
	t, err := in.Build(def)
	if err != nil {
		return "", err
	}
	var overflow []error
	for _, p := range t.Packets {
		if _, err := p.EncodeStrict(); err != nil {
			overflow = append(overflow, err)
		}
	}
	if in.Headerless {
		return EncodePackets(t.Packets), errors.Join(overflow...)
	}
	return t.Encode(), errors.Join(overflow...)
}
