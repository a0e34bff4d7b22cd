package snmp

// OID is a typed wrapper around an ASN.1 OBJECT IDENTIFIER's arcs.
type OID []uint32

// String renders the OID in dotted form, e.g. "1.3.6.1.2.1".
func (o OID) String() string { return FormatOID([]uint32(o)) }

// Encode produces the OID's TLV bytes.
func (o OID) Encode() ([]byte, error) { return EncodeObjectIdentifier([]uint32(o)) }

// DecodeOID decodes an OID TLV, returning an OID and the trailing bytes.
func DecodeOID(data []byte) (OID, []byte, error) {
	arcs, rest, err := DecodeObjectIdentifier(data)
	if err != nil {
		return nil, nil, err
	}
	return OID(arcs), rest, nil
}

// Counter32 is an application-tagged 32-bit unsigned monotone counter
// that wraps on overflow (SMIv2 §7.1.6).
type Counter32 uint32

// Encode produces the Counter32's TLV bytes (identifier 0x41).
func (c Counter32) Encode() []byte {
	out, _ := marshalTLV(IdentCounter32, encodeUnsignedContents(uint64(c)))
	return out
}

// DecodeCounter32 decodes a Counter32 TLV (identifier 0x41), rejecting
// values outside the 32-bit range.
func DecodeCounter32(data []byte) (Counter32, []byte, error) {
	contents, rest, err := decodeApplicationOctets(data, IdentCounter32)
	if err != nil {
		return 0, nil, err
	}
	v, err := decodeUnsignedContents(contents, 32)
	if err != nil {
		return 0, nil, err
	}
	return Counter32(v), rest, nil
}

// Gauge32 is an application-tagged 32-bit unsigned value that latches at
// its maximum or minimum rather than wrapping (SMIv2 §7.1.8).
type Gauge32 uint32

// Encode produces the Gauge32's TLV bytes (identifier 0x42).
func (g Gauge32) Encode() []byte {
	out, _ := marshalTLV(IdentGauge32, encodeUnsignedContents(uint64(g)))
	return out
}

// DecodeGauge32 decodes a Gauge32 TLV (identifier 0x42).
func DecodeGauge32(data []byte) (Gauge32, []byte, error) {
	contents, rest, err := decodeApplicationOctets(data, IdentGauge32)
	if err != nil {
		return 0, nil, err
	}
	v, err := decodeUnsignedContents(contents, 32)
	if err != nil {
		return 0, nil, err
	}
	return Gauge32(v), rest, nil
}

// TimeTicks is an application-tagged 32-bit unsigned count of hundredths
// of a second since some epoch (SMIv2 §7.1.9).
type TimeTicks uint32

// Encode produces the TimeTicks's TLV bytes (identifier 0x43).
func (t TimeTicks) Encode() []byte {
	out, _ := marshalTLV(IdentTimeTicks, encodeUnsignedContents(uint64(t)))
	return out
}

// DecodeTimeTicks decodes a TimeTicks TLV (identifier 0x43).
func DecodeTimeTicks(data []byte) (TimeTicks, []byte, error) {
	contents, rest, err := decodeApplicationOctets(data, IdentTimeTicks)
	if err != nil {
		return 0, nil, err
	}
	v, err := decodeUnsignedContents(contents, 32)
	if err != nil {
		return 0, nil, err
	}
	return TimeTicks(v), rest, nil
}

// Opaque carries an arbitrarily-encoded value outside SMI's primitive
// type set (SMIv2 §7.1.7). This core treats it as raw bytes.
type Opaque []byte

// Encode produces the Opaque's TLV bytes (identifier 0x44).
func (o Opaque) Encode() []byte {
	out, _ := marshalTLV(IdentOpaque, []byte(o))
	return out
}

// DecodeOpaque decodes an Opaque TLV (identifier 0x44).
func DecodeOpaque(data []byte) (Opaque, []byte, error) {
	contents, rest, err := decodeApplicationOctets(data, IdentOpaque)
	if err != nil {
		return nil, nil, err
	}
	return Opaque(contents), rest, nil
}

// Counter64 is an application-tagged 64-bit unsigned monotone counter
// (RFC 2578 §7.1.10).
type Counter64 uint64

// Encode produces the Counter64's TLV bytes (identifier 0x46).
func (c Counter64) Encode() []byte {
	out, _ := marshalTLV(IdentCounter64, encodeUnsignedContents(uint64(c)))
	return out
}

// DecodeCounter64 decodes a Counter64 TLV (identifier 0x46).
func DecodeCounter64(data []byte) (Counter64, []byte, error) {
	contents, rest, err := decodeApplicationOctets(data, IdentCounter64)
	if err != nil {
		return 0, nil, err
	}
	v, err := decodeUnsignedContents(contents, 64)
	if err != nil {
		return 0, nil, err
	}
	return Counter64(v), rest, nil
}

// IpAddress is an application-tagged 4-octet IPv4 address (RFC 2578
// §7.1.5), encoded as its raw OCTET STRING payload semantics under a
// distinct identifier.
type IpAddress [4]byte

// Encode produces the IpAddress's TLV bytes (identifier 0x40).
func (ip IpAddress) Encode() []byte {
	out, _ := marshalTLV(IdentIPAddress, ip[:])
	return out
}

// DecodeIpAddress decodes an IpAddress TLV (identifier 0x40), rejecting
// anything but exactly 4 content octets.
func DecodeIpAddress(data []byte) (IpAddress, []byte, error) {
	contents, rest, err := decodeApplicationOctets(data, IdentIPAddress)
	if err != nil {
		return IpAddress{}, nil, err
	}
	if len(contents) != 4 {
		return IpAddress{}, nil, wrapf(ErrParseError, "IpAddress must be 4 octets, got %d", len(contents))
	}
	var ip IpAddress
	copy(ip[:], contents)
	return ip, rest, nil
}

// decodeApplicationOctets is the shared decode-TLV-then-check-identifier
// step for the application-tagged SMI types, all of which share
// INTEGER/OCTET-STRING payload semantics but carry a distinct identifier
// octet (spec.md §4.1).
func decodeApplicationOctets(data []byte, want byte) ([]byte, []byte, error) {
	if len(data) == 0 {
		return nil, nil, wrapf(ErrParseError, "empty application-tagged value")
	}
	if data[0] != want {
		return nil, nil, wrapf(ErrParseError, "expected identifier 0x%02X, got 0x%02X", want, data[0])
	}
	length, lenLen, err := parseLength(data[1:])
	if err != nil {
		return nil, nil, err
	}
	start := 1 + lenLen
	end := start + length
	if end > len(data) {
		return nil, nil, wrapf(ErrParseError, "content length %d exceeds remaining bytes", length)
	}
	return data[start:end], data[end:], nil
}
