package snmp

// ProtocolVersion is the msgVersion value this core speaks.
const ProtocolVersion = 3

// SNMPv3Message is the whole-message envelope (spec.md §3): a plaintext
// HeaderData, the opaque USM securityParameters, and the scopedPduData
// CHOICE, which is either a plaintext ScopedPDU or (when the message's
// privFlag is set) an OCTET STRING of ciphertext the USM layer must
// decrypt before the ScopedPDU becomes available.
type SNMPv3Message struct {
	Header             HeaderData
	SecurityParameters []byte

	// ScopedData is populated when the message carries a plaintext
	// ScopedPDU; EncryptedData is populated instead when privFlag is
	// set and the payload has not yet been decrypted.
	ScopedData    *ScopedPDU
	EncryptedData []byte
}

// Encrypted reports whether the payload is still ciphertext.
func (m SNMPv3Message) Encrypted() bool { return m.EncryptedData != nil }

// Encode serializes the message. EncryptedData, if set, is written
// verbatim as the scopedPduData OCTET STRING; callers that need privacy
// must encrypt the ScopedPDU themselves and set EncryptedData (see the
// USM SecurityModule, which does this as part of prepareOutgoing).
func (m SNMPv3Message) Encode() ([]byte, error) {
	contents := EncodeInteger(int64(ProtocolVersion))

	headerBytes, err := m.Header.encode()
	if err != nil {
		return nil, err
	}
	contents = append(contents, headerBytes...)
	contents = append(contents, EncodeOctetString(m.SecurityParameters)...)

	switch {
	case m.EncryptedData != nil:
		contents = append(contents, EncodeOctetString(m.EncryptedData)...)
	case m.ScopedData != nil:
		scopedBytes, err := m.ScopedData.encode()
		if err != nil {
			return nil, err
		}
		contents = append(contents, scopedBytes...)
	default:
		return nil, wrapf(ErrInvalidMessage, "message has neither ScopedData nor EncryptedData")
	}

	return marshalTLV(byte(TagSequence)|0x20, contents)
}

// DecodeMessage parses an SNMPv3Message from the wire. When the header's
// privFlag is set, scopedPduData is left as opaque EncryptedData for the
// USM layer to decrypt; otherwise it is parsed eagerly into ScopedData.
func DecodeMessage(data []byte) (SNMPv3Message, error) {
	id, contents, trailing, err := decodeTLV(data)
	if err != nil {
		return SNMPv3Message{}, err
	}
	if len(trailing) != 0 {
		return SNMPv3Message{}, wrapf(ErrParseError, "%d trailing bytes after message", len(trailing))
	}
	if !id.Constructed || id.Tag != TagSequence {
		return SNMPv3Message{}, wrapf(ErrParseError, "expected SEQUENCE for SNMPv3Message")
	}

	version, remaining, err := DecodeInteger(contents)
	if err != nil {
		return SNMPv3Message{}, wrapf(ErrParseError, "msgVersion: %v", err)
	}
	if version != ProtocolVersion {
		return SNMPv3Message{}, wrapf(ErrBadVersion, "unsupported msgVersion %d", version)
	}

	header, remaining, err := decodeHeaderData(remaining)
	if err != nil {
		return SNMPv3Message{}, err
	}

	secParams, remaining, err := DecodeOctetString(remaining)
	if err != nil {
		return SNMPv3Message{}, wrapf(ErrParseError, "msgSecurityParameters: %v", err)
	}

	if len(remaining) == 0 {
		return SNMPv3Message{}, wrapf(ErrParseError, "missing scopedPduData")
	}

	msg := SNMPv3Message{Header: header, SecurityParameters: secParams}

	if header.Flags&FlagPriv != 0 {
		cipher, trailing, err := DecodeOctetString(remaining)
		if err != nil {
			return SNMPv3Message{}, wrapf(ErrParseError, "encrypted scopedPduData: %v", err)
		}
		if len(trailing) != 0 {
			return SNMPv3Message{}, wrapf(ErrParseError, "%d trailing bytes after scopedPduData", len(trailing))
		}
		msg.EncryptedData = cipher
		return msg, nil
	}

	scoped, trailing, err := decodeScopedPDU(remaining)
	if err != nil {
		return SNMPv3Message{}, err
	}
	if len(trailing) != 0 {
		return SNMPv3Message{}, wrapf(ErrParseError, "%d trailing bytes after scopedPduData", len(trailing))
	}
	msg.ScopedData = &scoped
	return msg, nil
}
