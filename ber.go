// Package snmp implements the wire-format and security core of an SNMPv3
// message processor: ASN.1 BER encoding, SNMPv3 message framing, and the
// User-based Security Model (USM). Transport, MIB parsing and any
// management-application workflow are left to the caller; see Transport
// and UserDirectory.
package snmp

import (
	"fmt"

	"github.com/google/gopacket"
)

// Class is the ASN.1 tag class carried in the top two bits of an
// identifier octet.
type Class byte

// The four ASN.1 tag classes.
const (
	ClassUniversal   Class = 0
	ClassApplication Class = 1
	ClassContext     Class = 2
	ClassPrivate     Class = 3
)

// Identifier is the (class, constructed, tag) triple of a BER TLV. Tag
// numbers below 31 fit in a single octet; 31 and above use the long form
// (base-128 continuation groups), though no type in this package's scope
// needs one.
type Identifier struct {
	Class       Class
	Constructed bool
	Tag         uint32
}

// Universal tag numbers used by the BER primitives in ber_primitives.go.
const (
	TagInteger         uint32 = 0x02
	TagOctetString     uint32 = 0x04
	TagNull            uint32 = 0x05
	TagObjectID        uint32 = 0x06
	TagSequence        uint32 = 0x10
)

// Application tag numbers for the SNMP SMI types (spec.md §4.1); values
// below are the full identifier octets (class+PC already folded in),
// matching the well-known 0x4X byte values used on the wire.
const (
	IdentIPAddress  byte = 0x40
	IdentCounter32  byte = 0x41
	IdentGauge32    byte = 0x42
	IdentTimeTicks  byte = 0x43
	IdentOpaque     byte = 0x44
	IdentCounter64  byte = 0x46
)

// PDU application tags (spec.md §4.2), as full identifier octets
// (class=context-specific, constructed, tag).
const (
	TagGetRequest     byte = 0xA0
	TagGetNextRequest byte = 0xA1
	TagResponse       byte = 0xA2
	TagSetRequest     byte = 0xA3
	TagGetBulkRequest byte = 0xA5
	TagInformRequest  byte = 0xA6
	TagTrap           byte = 0xA7
	TagReport         byte = 0xA8
)

// Byte encodes an Identifier to its single-octet BER form. It panics if
// Tag >= 31; no type this package encodes needs a long-form tag, so that
// is treated as a programming error rather than a runtime one.
func (id Identifier) Byte() byte {
	if id.Tag >= 31 {
		panic(fmt.Sprintf("snmp: identifier tag %d requires long form, unsupported", id.Tag))
	}
	b := byte(id.Class) << 6
	if id.Constructed {
		b |= 0x20
	}
	b |= byte(id.Tag)
	return b
}

// decodeIdentifier parses the identifier octet(s) at the front of data,
// returning the Identifier and the number of octets consumed.
func decodeIdentifier(data []byte) (Identifier, int, error) {
	if len(data) == 0 {
		return Identifier{}, 0, wrapf(ErrParseError, "empty identifier")
	}
	first := data[0]
	id := Identifier{
		Class:       Class(first >> 6),
		Constructed: first&0x20 != 0,
	}
	tag := uint32(first & 0x1F)
	if tag < 31 {
		id.Tag = tag
		return id, 1, nil
	}

	// Long form: base-128 groups, high bit = continuation.
	cursor := 1
	tag = 0
	for {
		if cursor >= len(data) {
			return Identifier{}, 0, wrapf(ErrParseError, "truncated long-form tag")
		}
		b := data[cursor]
		tag = tag<<7 | uint32(b&0x7F)
		cursor++
		if b&0x80 == 0 {
			break
		}
	}
	id.Tag = tag
	return id, cursor, nil
}

// marshalLength encodes a BER length in definite form: short form for
// values under 128, long form (0x80|N followed by N big-endian bytes)
// otherwise.
func marshalLength(length int) ([]byte, error) {
	if length < 0 {
		return nil, wrapf(ErrParseError, "negative length %d", length)
	}
	if length < 128 {
		return []byte{byte(length)}, nil
	}
	var tail []byte
	n := length
	for n > 0 {
		tail = append([]byte{byte(n & 0xFF)}, tail...)
		n >>= 8
	}
	return append([]byte{0x80 | byte(len(tail))}, tail...), nil
}

// parseLength decodes a definite-form BER length, returning the length,
// the number of bytes consumed by the length field itself, and an error
// for indefinite-form (unsupported) or truncated lengths.
func parseLength(data []byte) (length int, consumed int, err error) {
	if len(data) == 0 {
		return 0, 0, wrapf(ErrParseError, "empty length")
	}
	first := data[0]
	if first&0x80 == 0 {
		return int(first), 1, nil
	}
	n := int(first & 0x7F)
	if n == 0 {
		return 0, 0, wrapf(ErrParseError, "indefinite-form length unsupported")
	}
	if n > len(data)-1 {
		return 0, 0, wrapf(ErrParseError, "truncated long-form length")
	}
	length = 0
	for i := 0; i < n; i++ {
		length = length<<8 | int(data[1+i])
	}
	return length, 1 + n, nil
}

// decodeTLV splits the identifier, length-delimited contents, and
// trailing bytes off the front of data.
func decodeTLV(data []byte) (id Identifier, contents []byte, rest []byte, err error) {
	id, idLen, err := decodeIdentifier(data)
	if err != nil {
		return Identifier{}, nil, nil, err
	}
	length, lenLen, err := parseLength(data[idLen:])
	if err != nil {
		return Identifier{}, nil, nil, err
	}
	start := idLen + lenLen
	end := start + length
	if end > len(data) {
		return Identifier{}, nil, nil, wrapf(ErrParseError, "content length %d exceeds remaining %d bytes", length, len(data)-start)
	}
	return id, data[start:end], data[end:], nil
}

// marshalTLV wraps contents in a tag+length header. It builds the TLV
// through a gopacket.SerializeBuffer: contents are appended first, then
// the tag+length header is prepended once its length is known, the same
// inside-out order SerializeLayers uses for stacked protocol headers.
func marshalTLV(tagByte byte, contents []byte) ([]byte, error) {
	lengthBytes, err := marshalLength(len(contents))
	if err != nil {
		return nil, err
	}

	buf := gopacket.NewSerializeBuffer()
	body, err := buf.AppendBytes(len(contents))
	if err != nil {
		return nil, err
	}
	copy(body, contents)

	header, err := buf.PrependBytes(1 + len(lengthBytes))
	if err != nil {
		return nil, err
	}
	header[0] = tagByte
	copy(header[1:], lengthBytes)

	out := make([]byte, len(buf.Bytes()))
	copy(out, buf.Bytes())
	return out, nil
}
