package snmp

// UsmSecurityParameters is the USM securityParameters SEQUENCE (RFC 3414
// §2.4), carried as the opaque contents of an SNMPv3Message's
// msgSecurityParameters OCTET STRING.
type UsmSecurityParameters struct {
	AuthoritativeEngineID   []byte
	AuthoritativeEngineBoots int32
	AuthoritativeEngineTime  int32
	UserName                 string
	AuthenticationParameters []byte
	PrivacyParameters        []byte
}

func (p UsmSecurityParameters) encode() []byte {
	contents := EncodeOctetString(p.AuthoritativeEngineID)
	contents = append(contents, EncodeInteger(int64(p.AuthoritativeEngineBoots))...)
	contents = append(contents, EncodeInteger(int64(p.AuthoritativeEngineTime))...)
	contents = append(contents, EncodeOctetString([]byte(p.UserName))...)
	contents = append(contents, EncodeOctetString(p.AuthenticationParameters)...)
	contents = append(contents, EncodeOctetString(p.PrivacyParameters)...)
	out, _ := marshalTLV(byte(TagSequence)|0x20, contents)
	return out
}

func decodeUsmSecurityParameters(data []byte) (UsmSecurityParameters, error) {
	id, contents, rest, err := decodeTLV(data)
	if err != nil {
		return UsmSecurityParameters{}, err
	}
	if !id.Constructed || id.Tag != TagSequence {
		return UsmSecurityParameters{}, wrapf(ErrParseError, "expected SEQUENCE for UsmSecurityParameters")
	}
	if len(rest) != 0 {
		return UsmSecurityParameters{}, wrapf(ErrParseError, "%d trailing bytes after UsmSecurityParameters", len(rest))
	}

	engineID, remaining, err := DecodeOctetString(contents)
	if err != nil {
		return UsmSecurityParameters{}, wrapf(ErrParseError, "msgAuthoritativeEngineID: %v", err)
	}
	boots, remaining, err := DecodeInteger(remaining)
	if err != nil {
		return UsmSecurityParameters{}, wrapf(ErrParseError, "msgAuthoritativeEngineBoots: %v", err)
	}
	engTime, remaining, err := DecodeInteger(remaining)
	if err != nil {
		return UsmSecurityParameters{}, wrapf(ErrParseError, "msgAuthoritativeEngineTime: %v", err)
	}
	userName, remaining, err := DecodeOctetString(remaining)
	if err != nil {
		return UsmSecurityParameters{}, wrapf(ErrParseError, "msgUserName: %v", err)
	}
	authParams, remaining, err := DecodeOctetString(remaining)
	if err != nil {
		return UsmSecurityParameters{}, wrapf(ErrParseError, "msgAuthenticationParameters: %v", err)
	}
	privParams, remaining, err := DecodeOctetString(remaining)
	if err != nil {
		return UsmSecurityParameters{}, wrapf(ErrParseError, "msgPrivacyParameters: %v", err)
	}
	if len(remaining) != 0 {
		return UsmSecurityParameters{}, wrapf(ErrParseError, "%d trailing bytes in UsmSecurityParameters", len(remaining))
	}

	return UsmSecurityParameters{
		AuthoritativeEngineID:    engineID,
		AuthoritativeEngineBoots: int32(boots),
		AuthoritativeEngineTime:  int32(engTime),
		UserName:                 string(userName),
		AuthenticationParameters: authParams,
		PrivacyParameters:        privParams,
	}, nil
}
