package report

import (
	"encoding/json"
	"os"

	"example.com/balisegate/internal/balise"
	"example.com/balisegate/internal/bits"
	"example.com/balisegate/internal/dict"
)

// Document is the display form of a decoded telegram or packet sequence.
type Document struct {
	Hex     string      `json:"hex"`
	Version string      `json:"version,omitempty"`
	Catalog string      `json:"catalog"`
	Bits    int         `json:"bits"`
	Header  *PacketDoc  `json:"header,omitempty"`
	Packets []PacketDoc `json:"packets"`
	Error   string      `json:"error,omitempty"`
}

type PacketDoc struct {
	Tag     int        `json:"tag"`
	Name    string     `json:"name"`
	Length  *uint64    `json:"length,omitempty"`
	Unknown bool       `json:"unknown,omitempty"`
	Fields  []FieldDoc `json:"fields"`
}

type FieldDoc struct {
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
	Value       uint64 `json:"value"`
	Bits        string `json:"bits"`
	Label       string `json:"label"`
	ReadOnly    bool   `json:"readOnly,omitempty"`
}

// FromTelegram describes t. decodeErr is the error DecodeTelegram returned
// alongside t, if any.
func FromTelegram(t *balise.Telegram, store *dict.Store, decodeErr error) Document {
	doc := FromPackets(t.Packets, t.Catalog(), store, decodeErr)
	doc.Version = t.Version().String()
	header := describePacket(t.Header, store)
	doc.Header = &header
	doc.Hex = t.Hex()
	doc.Bits = len(t.Encode())
	return doc
}

// FromPackets describes a headerless packet sequence decoded with c.
func FromPackets(packets []*balise.Packet, c *balise.Catalog, store *dict.Store, decodeErr error) Document {
	doc := Document{Catalog: c.Name, Packets: make([]PacketDoc, 0, len(packets))}
	for _, p := range packets {
		doc.Packets = append(doc.Packets, describePacket(p, store))
	}
	encoded := balise.EncodePackets(packets)
	doc.Hex = bits.BinaryToHex(encoded)
	doc.Bits = len(encoded)
	if decodeErr != nil {
		doc.Error = decodeErr.Error()
	}
	return doc
}

func describePacket(p *balise.Packet, store *dict.Store) PacketDoc {
	// Encoding settles the length and count fields before they are listed.
	p.Encode()
	doc := PacketDoc{Tag: p.Tag(), Name: p.Name(), Unknown: p.IsUnknown()}
	if n, ok := p.Length(); ok {
		doc.Length = &n
	}
	for _, e := range p.Fields() {
		doc.Fields = append(doc.Fields, FieldDoc{
			Key:         e.Key,
			Description: e.Field.Var.Description,
			Value:       e.Field.Value(),
			Bits:        e.Field.Bits(),
			Label:       e.Field.Label(store),
			ReadOnly:    e.ReadOnly,
		})
	}
	return doc
}

func SaveJSON(doc Document, out string) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func LoadJSON(path string) (Document, error) {
	var doc Document
	b, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	err = json.Unmarshal(b, &doc)
	return doc, err
}
