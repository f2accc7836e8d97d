// Package advdata builds and sizes Bluetooth LE advertising payloads.
//
// The interesting part is Plan, which splits an oversized broadcast payload
// into a sequence of transport-limited AD structures. The rest of the package
// is conventional length/type/data packet plumbing.
package advdata

import "encoding/binary"

// Structure is a single type-tagged advertising field. On the wire it costs
// StructureOverhead bytes plus len(Data).
type Structure struct {
	Type byte
	Data []byte
}

// TotalBytes returns the encoded size of s, including the length and type
// bytes.
func (s Structure) TotalBytes() int {
	return StructureOverhead + len(s.Data)
}

// Packet is a utility to craft or parse advertisement payloads.
type Packet []byte

// AppendField appends an AD field to the packet.
func (p Packet) AppendField(typ byte, b []byte) Packet {
	p = append(p, byte(len(b)+1))
	p = append(p, typ)
	return append(p, b...)
}

// AppendFlags appends a flags field to the packet.
func (p Packet) AppendFlags(f byte) Packet {
	return p.AppendField(TypeFlags, []byte{f})
}

// AppendCompleteName appends a complete local name field to the packet.
func (p Packet) AppendCompleteName(n string) Packet {
	return p.AppendField(TypeCompleteName, []byte(n))
}

// AppendAllUUID16 appends a complete 16-bit service UUID list to the packet.
func (p Packet) AppendAllUUID16(uuids ...uint16) Packet {
	b := make([]byte, 0, 2*len(uuids))
	for _, u := range uuids {
		b = binary.LittleEndian.AppendUint16(b, u)
	}
	return p.AppendField(TypeAllUUID16, b)
}

// AppendManufacturerData appends a manufacturer data field with the company
// identifier in little-endian order.
func (p Packet) AppendManufacturerData(id uint16, b []byte) Packet {
	d := append([]byte{uint8(id), uint8(id >> 8)}, b...)
	return p.AppendField(TypeManufacturerData, d)
}

// AppendStructure appends s as an encoded AD field.
func (p Packet) AppendStructure(s Structure) Packet {
	return p.AppendField(s.Type, s.Data)
}

// Field returns the data of the first field with the given type (excluding
// the initial length and type byte). It returns nil if the field is not
// found.
func (p Packet) Field(typ byte) []byte {
	b := p
	for len(b) > 0 {
		if len(b) < 2 {
			return nil
		}
		l, t := b[0], b[1]
		if len(b) < int(1+l) {
			return nil
		}
		if t == typ {
			return b[2 : 1+l]
		}
		b = b[1+l:]
	}
	return nil
}

// LocalName returns the advertised device name, if any.
func (p Packet) LocalName() string {
	if b := p.Field(TypeShortName); b != nil {
		return string(b)
	}
	return string(p.Field(TypeCompleteName))
}

// ManufacturerData returns the first manufacturer data field, including its
// company identifier prefix.
func (p Packet) ManufacturerData() []byte {
	return p.Field(TypeManufacturerData)
}

// UUID16s returns the advertised 16-bit service UUIDs.
func (p Packet) UUID16s() []uint16 {
	var uuids []uint16
	for _, typ := range []byte{TypeSomeUUID16, TypeAllUUID16} {
		b := p.Field(typ)
		for len(b) >= 2 {
			uuids = append(uuids, binary.LittleEndian.Uint16(b))
			b = b[2:]
		}
	}
	return uuids
}

// Encode flattens structures into a single advertising payload.
func Encode(structures []Structure) Packet {
	var p Packet
	for _, s := range structures {
		p = p.AppendStructure(s)
	}
	return p
}
