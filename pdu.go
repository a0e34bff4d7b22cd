package snmp

// ErrorStatus is the small enumeration carried in the error-status field
// of Get/GetNext/Set/Response/Trap/Inform/Report PDUs (spec.md §4.2).
type ErrorStatus int32

// The defined ErrorStatus values (RFC 3416 §3).
const (
	NoError             ErrorStatus = 0
	TooBig              ErrorStatus = 1
	NoSuchName          ErrorStatus = 2
	BadValue            ErrorStatus = 3
	ReadOnly            ErrorStatus = 4
	GenErr              ErrorStatus = 5
	NoAccess            ErrorStatus = 6
	WrongType           ErrorStatus = 7
	WrongLength         ErrorStatus = 8
	WrongEncoding       ErrorStatus = 9
	WrongValue          ErrorStatus = 10
	NoCreation          ErrorStatus = 11
	InconsistentValue   ErrorStatus = 12
	ResourceUnavailable ErrorStatus = 13
	CommitFailed        ErrorStatus = 14
	UndoFailed          ErrorStatus = 15
	AuthorizationError  ErrorStatus = 16
	NotWritable         ErrorStatus = 17
	InconsistentName    ErrorStatus = 18
)

// VarBind is one (OID, value) pair of a PDU's variable bindings.
// Value holds one of: nil (Null), int64, []byte (OctetString), OID,
// IpAddress, Counter32, Gauge32, TimeTicks, Opaque, or Counter64.
type VarBind struct {
	Name  OID
	Value interface{}
}

// PDU is the common shape of every SNMPv3 protocol data unit: a request
// identifier and a set of variable bindings, categorized by whether it
// expects a response (Confirmed) and whether it carries protocol-error
// counters rather than application data (Internal).
type PDU interface {
	Type() byte
	RequestID() int32
	VarBinds() []VarBind

	// Confirmed reports whether this PDU type expects a Response and
	// must set the REPORTABLE message flag when sent.
	Confirmed() bool

	// Internal reports whether this PDU type is a Report, carrying
	// counters about prior protocol errors rather than application data.
	Internal() bool

	encode() ([]byte, error)
}

// pduBody is the common (request-id, f1, f2, varbinds) body shared by
// every PDU variant except GetBulk, whose middle two fields mean
// non-repeaters/max-repetitions instead of error-status/error-index.
type pduBody struct {
	tag         byte
	requestID   int32
	field2      int32
	field3      int32
	varBinds    []VarBind
	confirmed   bool
	internal    bool
}

func (p *pduBody) Type() byte           { return p.tag }
func (p *pduBody) RequestID() int32     { return p.requestID }
func (p *pduBody) VarBinds() []VarBind  { return p.varBinds }
func (p *pduBody) Confirmed() bool      { return p.confirmed }
func (p *pduBody) Internal() bool       { return p.internal }

func (p *pduBody) encode() ([]byte, error) {
	return encodePDUBody(p.tag, p.requestID, p.field2, p.field3, p.varBinds)
}

// GetRequest retrieves the named variables' current values.
type GetRequest struct{ pduBody }

// NewGetRequest builds a GetRequest for the given variable names.
func NewGetRequest(requestID int32, names ...OID) *GetRequest {
	return &GetRequest{pduBody{tag: TagGetRequest, requestID: requestID, varBinds: namesToVarBinds(names), confirmed: true}}
}

// GetNextRequest retrieves the variables lexicographically following the
// named ones.
type GetNextRequest struct{ pduBody }

// NewGetNextRequest builds a GetNextRequest for the given variable names.
func NewGetNextRequest(requestID int32, names ...OID) *GetNextRequest {
	return &GetNextRequest{pduBody{tag: TagGetNextRequest, requestID: requestID, varBinds: namesToVarBinds(names), confirmed: true}}
}

// SetRequest assigns the carried values to the named variables.
type SetRequest struct{ pduBody }

// NewSetRequest builds a SetRequest from the given bindings.
func NewSetRequest(requestID int32, varBinds []VarBind) *SetRequest {
	return &SetRequest{pduBody{tag: TagSetRequest, requestID: requestID, varBinds: varBinds, confirmed: true}}
}

// Response answers a Get/GetNext/GetBulk/Set/Inform request.
type Response struct{ pduBody }

// NewResponse builds a Response with the given error status/index.
func NewResponse(requestID int32, errorStatus ErrorStatus, errorIndex int32, varBinds []VarBind) *Response {
	return &Response{pduBody{tag: TagResponse, requestID: requestID, field2: int32(errorStatus), field3: errorIndex, varBinds: varBinds}}
}

// ErrorStatus returns the response's error-status field.
func (r *Response) ErrorStatus() ErrorStatus { return ErrorStatus(r.field2) }

// ErrorIndex returns the response's error-index field.
func (r *Response) ErrorIndex() int32 { return r.field3 }

// Trap is an unconfirmed notification (the v2-Trap shape, tag 0xA7).
type Trap struct{ pduBody }

// NewTrap builds a Trap carrying the given variable bindings.
func NewTrap(requestID int32, varBinds []VarBind) *Trap {
	return &Trap{pduBody{tag: TagTrap, requestID: requestID, varBinds: varBinds}}
}

// InformRequest is a confirmed notification between management stations.
type InformRequest struct{ pduBody }

// NewInformRequest builds an InformRequest carrying the given variable
// bindings.
func NewInformRequest(requestID int32, varBinds []VarBind) *InformRequest {
	return &InformRequest{pduBody{tag: TagInformRequest, requestID: requestID, varBinds: varBinds, confirmed: true}}
}

// Report carries usmStats (or other) counters reporting a prior protocol
// error; see spec.md §4.8.
type Report struct{ pduBody }

// NewReport builds a Report carrying the given variable bindings.
func NewReport(requestID int32, varBinds []VarBind) *Report {
	return &Report{pduBody{tag: TagReport, requestID: requestID, varBinds: varBinds, internal: true}}
}

// GetBulkRequest retrieves up to maxRepetitions successors for each
// variable past the first nonRepeaters names.
type GetBulkRequest struct {
	requestID      int32
	nonRepeaters   int32
	maxRepetitions int32
	varBinds       []VarBind
}

// NewGetBulkRequest builds a GetBulkRequest.
func NewGetBulkRequest(requestID, nonRepeaters, maxRepetitions int32, names ...OID) *GetBulkRequest {
	return &GetBulkRequest{requestID: requestID, nonRepeaters: nonRepeaters, maxRepetitions: maxRepetitions, varBinds: namesToVarBinds(names)}
}

func (g *GetBulkRequest) Type() byte          { return TagGetBulkRequest }
func (g *GetBulkRequest) RequestID() int32    { return g.requestID }
func (g *GetBulkRequest) VarBinds() []VarBind { return g.varBinds }
func (g *GetBulkRequest) Confirmed() bool     { return true }
func (g *GetBulkRequest) Internal() bool      { return false }
func (g *GetBulkRequest) NonRepeaters() int32 { return g.nonRepeaters }
func (g *GetBulkRequest) MaxRepetitions() int32 { return g.maxRepetitions }

func (g *GetBulkRequest) encode() ([]byte, error) {
	return encodePDUBody(TagGetBulkRequest, g.requestID, g.nonRepeaters, g.maxRepetitions, g.varBinds)
}

func namesToVarBinds(names []OID) []VarBind {
	vbs := make([]VarBind, len(names))
	for i, n := range names {
		vbs[i] = VarBind{Name: n, Value: nil}
	}
	return vbs
}

// pduDecoders dispatches a PDU identifier byte to its decoder, used by
// decodePDU's identifier-peek on behalf of decodeScopedPDU (spec.md §4.3, §4.9 design notes'
// "tagged-union ScopedPDU decode").
var pduDecoders = map[byte]func(tag byte, requestID, f2, f3 int32, vbs []VarBind) PDU{
	TagGetRequest: func(tag byte, requestID, f2, f3 int32, vbs []VarBind) PDU {
		return &GetRequest{pduBody{tag: tag, requestID: requestID, field2: f2, field3: f3, varBinds: vbs, confirmed: true}}
	},
	TagGetNextRequest: func(tag byte, requestID, f2, f3 int32, vbs []VarBind) PDU {
		return &GetNextRequest{pduBody{tag: tag, requestID: requestID, field2: f2, field3: f3, varBinds: vbs, confirmed: true}}
	},
	TagSetRequest: func(tag byte, requestID, f2, f3 int32, vbs []VarBind) PDU {
		return &SetRequest{pduBody{tag: tag, requestID: requestID, field2: f2, field3: f3, varBinds: vbs, confirmed: true}}
	},
	TagResponse: func(tag byte, requestID, f2, f3 int32, vbs []VarBind) PDU {
		return &Response{pduBody{tag: tag, requestID: requestID, field2: f2, field3: f3, varBinds: vbs}}
	},
	TagTrap: func(tag byte, requestID, f2, f3 int32, vbs []VarBind) PDU {
		return &Trap{pduBody{tag: tag, requestID: requestID, field2: f2, field3: f3, varBinds: vbs}}
	},
	TagInformRequest: func(tag byte, requestID, f2, f3 int32, vbs []VarBind) PDU {
		return &InformRequest{pduBody{tag: tag, requestID: requestID, field2: f2, field3: f3, varBinds: vbs, confirmed: true}}
	},
	TagReport: func(tag byte, requestID, f2, f3 int32, vbs []VarBind) PDU {
		return &Report{pduBody{tag: tag, requestID: requestID, field2: f2, field3: f3, varBinds: vbs, internal: true}}
	},
}

// decodePDU peeks at the next identifier byte and dispatches to the
// matching PDU decoder; an unrecognized tag is a ParseError.
func decodePDU(data []byte) (PDU, []byte, error) {
	if len(data) == 0 {
		return nil, nil, wrapf(ErrParseError, "empty PDU")
	}
	tag := data[0]

	if tag == TagGetBulkRequest {
		requestID, f2, f3, vbs, rest, err := decodePDUBody(data)
		if err != nil {
			return nil, nil, err
		}
		return &GetBulkRequest{requestID: requestID, nonRepeaters: f2, maxRepetitions: f3, varBinds: vbs}, rest, nil
	}

	ctor, ok := pduDecoders[tag]
	if !ok {
		return nil, nil, wrapf(ErrParseError, "unknown PDU tag 0x%02X", tag)
	}
	requestID, f2, f3, vbs, rest, err := decodePDUBody(data)
	if err != nil {
		return nil, nil, err
	}
	return ctor(tag, requestID, f2, f3, vbs), rest, nil
}

func encodePDUBody(tag byte, requestID, field2, field3 int32, varBinds []VarBind) ([]byte, error) {
	body := EncodeInteger(int64(requestID))
	body = append(body, EncodeInteger(int64(field2))...)
	body = append(body, EncodeInteger(int64(field3))...)

	vblContents := []byte{}
	for _, vb := range varBinds {
		vbBytes, err := encodeVarBind(vb)
		if err != nil {
			return nil, err
		}
		vblContents = append(vblContents, vbBytes...)
	}
	vbl, err := marshalTLV(byte(TagSequence)|0x20, vblContents)
	if err != nil {
		return nil, err
	}
	body = append(body, vbl...)

	return marshalTLV(tag, body)
}

func decodePDUBody(data []byte) (requestID, field2, field3 int32, varBinds []VarBind, rest []byte, err error) {
	id, contents, rest, err := decodeTLV(data)
	if err != nil {
		return 0, 0, 0, nil, nil, err
	}
	if !id.Constructed {
		return 0, 0, 0, nil, nil, wrapf(ErrParseError, "PDU body must be constructed")
	}

	rid, remaining, err := DecodeInteger(contents)
	if err != nil {
		return 0, 0, 0, nil, nil, wrapf(ErrParseError, "request-id: %v", err)
	}
	f2v, remaining, err := DecodeInteger(remaining)
	if err != nil {
		return 0, 0, 0, nil, nil, wrapf(ErrParseError, "field2: %v", err)
	}
	f3v, remaining, err := DecodeInteger(remaining)
	if err != nil {
		return 0, 0, 0, nil, nil, wrapf(ErrParseError, "field3: %v", err)
	}

	vbs, err := decodeVarBindList(remaining)
	if err != nil {
		return 0, 0, 0, nil, nil, err
	}

	return int32(rid), int32(f2v), int32(f3v), vbs, rest, nil
}

func decodeVarBindList(data []byte) ([]VarBind, error) {
	id, contents, trailing, err := decodeTLV(data)
	if err != nil {
		return nil, err
	}
	if len(trailing) != 0 {
		return nil, wrapf(ErrParseError, "%d trailing bytes after varbind list", len(trailing))
	}
	if !id.Constructed || id.Tag != TagSequence {
		return nil, wrapf(ErrParseError, "expected SEQUENCE for varbind list")
	}

	var vbs []VarBind
	for len(contents) > 0 {
		vb, rest, err := decodeVarBind(contents)
		if err != nil {
			return nil, err
		}
		vbs = append(vbs, vb)
		contents = rest
	}
	return vbs, nil
}

func encodeVarBind(vb VarBind) ([]byte, error) {
	oidBytes, err := vb.Name.Encode()
	if err != nil {
		return nil, err
	}
	valueBytes, err := encodeValue(vb.Value)
	if err != nil {
		return nil, err
	}
	return marshalTLV(byte(TagSequence)|0x20, append(oidBytes, valueBytes...))
}

func decodeVarBind(data []byte) (VarBind, []byte, error) {
	id, contents, rest, err := decodeTLV(data)
	if err != nil {
		return VarBind{}, nil, err
	}
	if !id.Constructed || id.Tag != TagSequence {
		return VarBind{}, nil, wrapf(ErrParseError, "expected SEQUENCE for varbind")
	}
	name, remaining, err := DecodeOID(contents)
	if err != nil {
		return VarBind{}, nil, err
	}
	value, remaining, err := decodeValue(remaining)
	if err != nil {
		return VarBind{}, nil, err
	}
	if len(remaining) != 0 {
		return VarBind{}, nil, wrapf(ErrParseError, "%d trailing bytes in varbind", len(remaining))
	}
	return VarBind{Name: name, Value: value}, rest, nil
}

func encodeValue(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return EncodeNull(), nil
	case int64:
		return EncodeInteger(val), nil
	case int:
		return EncodeInteger(int64(val)), nil
	case []byte:
		return EncodeOctetString(val), nil
	case string:
		return EncodeOctetString([]byte(val)), nil
	case OID:
		return val.Encode()
	case IpAddress:
		return val.Encode(), nil
	case Counter32:
		return val.Encode(), nil
	case Gauge32:
		return val.Encode(), nil
	case TimeTicks:
		return val.Encode(), nil
	case Opaque:
		return val.Encode(), nil
	case Counter64:
		return val.Encode(), nil
	default:
		return nil, wrapf(ErrParseError, "unsupported varbind value type %T", v)
	}
}

func decodeValue(data []byte) (interface{}, []byte, error) {
	if len(data) == 0 {
		return nil, nil, wrapf(ErrParseError, "empty value")
	}
	switch data[0] {
	case byte(TagNull):
		rest, err := DecodeNull(data)
		return nil, rest, err
	case byte(TagInteger):
		v, rest, err := DecodeInteger(data)
		return v, rest, err
	case byte(TagOctetString):
		v, rest, err := DecodeOctetString(data)
		return v, rest, err
	case byte(TagObjectID):
		return DecodeOID(data)
	case IdentIPAddress:
		return DecodeIpAddress(data)
	case IdentCounter32:
		return DecodeCounter32(data)
	case IdentGauge32:
		return DecodeGauge32(data)
	case IdentTimeTicks:
		return DecodeTimeTicks(data)
	case IdentOpaque:
		return DecodeOpaque(data)
	case IdentCounter64:
		return DecodeCounter64(data)
	default:
		return nil, nil, wrapf(ErrParseError, "unknown value identifier 0x%02X", data[0])
	}
}
