package snmp

// SecurityLevel is the ordered strength of protection applied to a
// message: noAuthNoPriv < authNoPriv < authPriv (spec.md §3).
type SecurityLevel int

const (
	NoAuthNoPriv SecurityLevel = iota
	AuthNoPriv
	AuthPriv
)

// String names the level the way USM log lines and error messages do.
func (l SecurityLevel) String() string {
	switch l {
	case NoAuthNoPriv:
		return "noAuthNoPriv"
	case AuthNoPriv:
		return "authNoPriv"
	case AuthPriv:
		return "authPriv"
	default:
		return "invalid"
	}
}

// AtLeast reports whether l provides at least the protection of other.
func (l SecurityLevel) AtLeast(other SecurityLevel) bool { return l >= other }

// SecurityModel identifies which security subsystem processes a
// message's securityParameters. This core implements only USM.
type SecurityModel int32

// The security models registered in the SNMP SMI (RFC 3411 §5).
const (
	SecurityModelAny SecurityModel = 0
	SecurityModelSNMPv1 SecurityModel = 1
	SecurityModelSNMPv2c SecurityModel = 2
	SecurityModelUSM SecurityModel = 3
)

// MessageFlags is the one-octet bitfield carried in HeaderData
// (spec.md §3): bit 0 is auth, bit 1 is priv, bit 2 is reportable. Every
// other bit must be zero on receipt.
type MessageFlags byte

const (
	FlagAuth        MessageFlags = 0x01
	FlagPriv        MessageFlags = 0x02
	FlagReportable  MessageFlags = 0x04
)

// Level derives the SecurityLevel the flags request. Priv implies auth;
// callers must validate that invariant separately (see validate).
func (f MessageFlags) Level() SecurityLevel {
	switch {
	case f&FlagPriv != 0:
		return AuthPriv
	case f&FlagAuth != 0:
		return AuthNoPriv
	default:
		return NoAuthNoPriv
	}
}

// Reportable reports whether the REPORTABLE bit is set.
func (f MessageFlags) Reportable() bool { return f&FlagReportable != 0 }

// FlagsForLevel builds the flags octet for the given level and
// reportable setting.
func FlagsForLevel(level SecurityLevel, reportable bool) MessageFlags {
	var f MessageFlags
	switch level {
	case AuthPriv:
		f = FlagAuth | FlagPriv
	case AuthNoPriv:
		f = FlagAuth
	}
	if reportable {
		f |= FlagReportable
	}
	return f
}

// validate rejects any reserved bit being set and the priv-without-auth
// combination forbidden by spec.md §3's MessageFlags invariant.
func (f MessageFlags) validate() error {
	if f&^(FlagAuth|FlagPriv|FlagReportable) != 0 {
		return wrapf(ErrInvalidMessage, "reserved flag bits set: 0x%02X", byte(f))
	}
	if f&FlagPriv != 0 && f&FlagAuth == 0 {
		return wrapf(ErrInvalidMessage, "privFlag set without authFlag")
	}
	return nil
}

// HeaderData is the plaintext (never encrypted) envelope fields of an
// SNMPv3 message (spec.md §3).
type HeaderData struct {
	MsgID         int32
	MaxSize       int32
	Flags         MessageFlags
	SecurityModel SecurityModel
}

// Maximum bounds on HeaderData's numeric fields (RFC 3412 §6.1).
const (
	maxMsgID   = 2147483647
	minMsgSize = 484
	maxMsgSize = 2147483647
)

func (h HeaderData) validate() error {
	if h.MsgID < 0 || h.MsgID > maxMsgID {
		return wrapf(ErrInvalidMessage, "msgID %d out of range", h.MsgID)
	}
	if h.MaxSize < minMsgSize || h.MaxSize > maxMsgSize {
		return wrapf(ErrInvalidMessage, "msgMaxSize %d out of range [%d,%d]", h.MaxSize, minMsgSize, maxMsgSize)
	}
	if err := h.Flags.validate(); err != nil {
		return err
	}
	return nil
}

func (h HeaderData) encode() ([]byte, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}
	contents := EncodeInteger(int64(h.MsgID))
	contents = append(contents, EncodeInteger(int64(h.MaxSize))...)
	contents = append(contents, EncodeOctetString([]byte{byte(h.Flags)})...)
	contents = append(contents, EncodeInteger(int64(h.SecurityModel))...)
	return marshalTLV(byte(TagSequence)|0x20, contents)
}

func decodeHeaderData(data []byte) (HeaderData, []byte, error) {
	id, contents, rest, err := decodeTLV(data)
	if err != nil {
		return HeaderData{}, nil, err
	}
	if !id.Constructed || id.Tag != TagSequence {
		return HeaderData{}, nil, wrapf(ErrParseError, "expected SEQUENCE for HeaderData")
	}

	msgID, remaining, err := DecodeInteger(contents)
	if err != nil {
		return HeaderData{}, nil, wrapf(ErrParseError, "msgID: %v", err)
	}
	maxSize, remaining, err := DecodeInteger(remaining)
	if err != nil {
		return HeaderData{}, nil, wrapf(ErrParseError, "msgMaxSize: %v", err)
	}
	flagBytes, remaining, err := DecodeOctetString(remaining)
	if err != nil {
		return HeaderData{}, nil, wrapf(ErrParseError, "msgFlags: %v", err)
	}
	if len(flagBytes) != 1 {
		return HeaderData{}, nil, wrapf(ErrInvalidMessage, "msgFlags must be 1 octet, got %d", len(flagBytes))
	}
	secModel, remaining, err := DecodeInteger(remaining)
	if err != nil {
		return HeaderData{}, nil, wrapf(ErrParseError, "msgSecurityModel: %v", err)
	}
	if len(remaining) != 0 {
		return HeaderData{}, nil, wrapf(ErrParseError, "%d trailing bytes in HeaderData", len(remaining))
	}

	h := HeaderData{
		MsgID:         int32(msgID),
		MaxSize:       int32(maxSize),
		Flags:         MessageFlags(flagBytes[0]),
		SecurityModel: SecurityModel(secModel),
	}
	if err := h.validate(); err != nil {
		return HeaderData{}, nil, err
	}
	return h, rest, nil
}
