package snmp

// ScopedPDU names the administrative context a PDU applies to and
// carries the PDU itself (spec.md §3). It is the portion of an SNMPv3
// message that privacy, when enabled, encrypts.
type ScopedPDU struct {
	ContextEngineID []byte
	ContextName     string
	PDU             PDU
}

func (s ScopedPDU) encode() ([]byte, error) {
	contents := EncodeOctetString(s.ContextEngineID)
	contents = append(contents, EncodeOctetString([]byte(s.ContextName))...)
	pduBytes, err := s.PDU.encode()
	if err != nil {
		return nil, err
	}
	contents = append(contents, pduBytes...)
	return marshalTLV(byte(TagSequence)|0x20, contents)
}

// decodeScopedPDU decodes a plaintext ScopedPDU SEQUENCE, dispatching on
// the nested PDU's identifier byte (spec.md §4.2's "tagged-union decode
// by PDU identifier").
func decodeScopedPDU(data []byte) (ScopedPDU, []byte, error) {
	id, contents, rest, err := decodeTLV(data)
	if err != nil {
		return ScopedPDU{}, nil, err
	}
	if !id.Constructed || id.Tag != TagSequence {
		return ScopedPDU{}, nil, wrapf(ErrParseError, "expected SEQUENCE for ScopedPDU")
	}

	contextEngineID, remaining, err := DecodeOctetString(contents)
	if err != nil {
		return ScopedPDU{}, nil, wrapf(ErrParseError, "contextEngineID: %v", err)
	}
	contextNameBytes, remaining, err := DecodeOctetString(remaining)
	if err != nil {
		return ScopedPDU{}, nil, wrapf(ErrParseError, "contextName: %v", err)
	}
	pdu, remaining, err := decodePDU(remaining)
	if err != nil {
		return ScopedPDU{}, nil, err
	}
	if len(remaining) != 0 {
		return ScopedPDU{}, nil, wrapf(ErrParseError, "%d trailing bytes in ScopedPDU", len(remaining))
	}

	return ScopedPDU{
		ContextEngineID: contextEngineID,
		ContextName:     string(contextNameBytes),
		PDU:             pdu,
	}, rest, nil
}
