package snmp

import (
	"encoding/binary"
	crand "crypto/rand"
	"math/rand"
	"sync"
	"time"
)

// msgIDGenerator hands out pseudo-random 31-bit message IDs, retrying on
// collision with the outstanding-request cache and reseeding if it ever
// draws zero (spec.md §4.7/§9).
type msgIDGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newMsgIDGenerator() *msgIDGenerator {
	return &msgIDGenerator{rng: rand.New(rand.NewSource(cryptoSeed()))}
}

func cryptoSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.BigEndian.Uint64(b[:]))
}

func (g *msgIDGenerator) reseed() {
	g.rng = rand.New(rand.NewSource(cryptoSeed()))
}

// next draws a fresh, non-colliding msgID. taken reports whether a
// candidate is already in use.
func (g *msgIDGenerator) next(taken func(int32) bool) (int32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for attempt := 0; attempt < 10; attempt++ {
		id := g.rng.Int31()
		if id == 0 {
			g.reseed()
			continue
		}
		if !taken(id) {
			return id, nil
		}
	}
	return 0, wrapf(ErrResourceExhausted, "no free msgID after 10 attempts")
}

// MessageProcessor is spec.md §4.7's top-level entry point: it turns a
// PDU and a chosen security level into a signed/encrypted wire message,
// and turns an inbound wire message back into a PDU, matching responses
// against the outstanding-request cache and generating Reports for USM
// rejections.
type MessageProcessor struct {
	cfg         config
	security    *SecurityModule
	localEngine *EngineRecord
	cache       *outstandingCache
	handles     *handleTable
	midGen      *msgIDGenerator

	stopSweep chan struct{}
}

// NewMessageProcessor builds a MessageProcessor authoritative for
// localEngine, authenticating against users, configured by opts.
func NewMessageProcessor(localEngine *EngineRecord, users UserDirectory, opts ...Option) *MessageProcessor {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	PasswordCaching(cfg.passwordCache)

	p := &MessageProcessor{
		cfg:         cfg,
		security:    NewSecurityModule(localEngine, users, cfg.logger),
		localEngine: localEngine,
		cache:       newOutstandingCache(),
		handles:     newHandleTable(),
		midGen:      newMsgIDGenerator(),
	}
	p.startSweeper()
	return p
}

// OutgoingRequest is the result of PrepareOutgoingMessage: the wire
// bytes to send, and (for confirmed PDUs) the msgID under which a
// matching Response will be recognized.
type OutgoingRequest struct {
	Bytes []byte
	MsgID int32
}

// PrepareOutgoingMessage builds a signed/encrypted SNMPv3 message for
// pdu, addressed to targetEngineID. A nil/empty targetEngineID sends an
// unauthenticated engine-discovery probe (spec.md §4.8); once the
// remote's real engineID has been recorded with
// SecurityModule.DiscoverRemoteEngine (authenticated messages from an
// engine already recorded there refresh its boots/time automatically),
// callers retry with that engineID. When pdu.Confirmed() is true, handle is retained opaquely
// and returned by a later ProcessIncomingMessage call that matches this
// request's response; the processor never dereferences handle itself
// (spec.md §9's weak-handle back-reference pattern).
func (p *MessageProcessor) PrepareOutgoingMessage(userName string, level SecurityLevel, targetEngineID []byte, contextEngineID []byte, contextName string, pdu PDU, handle interface{}) (OutgoingRequest, error) {
	msgID, err := p.midGen.next(p.cache.has)
	if err != nil {
		return OutgoingRequest{}, err
	}

	scoped := ScopedPDU{ContextEngineID: contextEngineID, ContextName: contextName, PDU: pdu}
	reportable := pdu.Confirmed()

	msg, err := p.security.PrepareOutgoing(msgID, p.cfg.maxMsgSize, level, reportable, userName, targetEngineID, scoped)
	if err != nil {
		return OutgoingRequest{}, err
	}

	if pdu.Confirmed() {
		p.cache.put(&CacheEntry{
			MsgID:            msgID,
			SecurityLevel:    level,
			SecurityEngineID: targetEngineID,
			SecurityName:     userName,
			ContextEngineID:  contextEngineID,
			ContextName:      contextName,
			Expiry:           time.Now().Add(p.cfg.requestTimeout),
			Handle:           p.handles.alloc(handle),
		})
	}

	encoded, err := msg.Encode()
	if err != nil {
		return OutgoingRequest{}, err
	}
	return OutgoingRequest{Bytes: encoded, MsgID: msgID}, nil
}

// Cancel drops the outstanding request tracked under msgID, releasing
// its handle without waiting for a response or the sweeper's timer
// (spec.md §5's cancellation-via-handle-drop model). It reports whether
// a matching entry was found. A later Response/Report for msgID is then
// recognized as a LateResponse rather than silently matched.
func (p *MessageProcessor) Cancel(msgID int32) bool {
	entry, ok := p.cache.take(msgID)
	if !ok {
		return false
	}
	p.handles.release(entry.Handle)
	return true
}

// IncomingMessage is the result of successfully processing an inbound
// datagram.
type IncomingMessage struct {
	PDU    PDU
	Handle interface{} // non-nil only when PDU answers a request this processor sent
}

// ProcessIncomingMessage parses and authenticates an inbound datagram.
// If it is a Response or Report matching an outstanding request, the
// matching request's handle is returned and the cache entry is
// consumed. If USM rejects the message, report is the Report PDU to
// send back (nil if the sender did not mark the message REPORTABLE).
//
// This processor only ever originates confirmed requests; it has no
// command-responder role. Accordingly a confirmed PDU (Get/GetNext/
// Set/GetBulk/Inform) or a Trap notification arriving here is not
// something it knows how to act on, and is rejected as
// ErrUnsupportedFeature rather than fed into the response-matching path
// below, which exists only for Response and Report.
func (p *MessageProcessor) ProcessIncomingMessage(raw []byte) (in IncomingMessage, report *Report, err error) {
	msg, err := DecodeMessage(raw)
	if err != nil {
		return IncomingMessage{}, nil, err
	}

	rep, err := p.security.ProcessIncoming(raw, &msg)
	if err != nil {
		return IncomingMessage{}, rep, err
	}
	if msg.ScopedData == nil {
		return IncomingMessage{}, nil, wrapf(ErrInvalidMessage, "message has no decrypted ScopedPDU")
	}

	pdu := msg.ScopedData.PDU
	result := IncomingMessage{PDU: pdu}

	switch {
	case pdu.Confirmed():
		return result, nil, wrapf(ErrUnsupportedFeature, "processor does not handle incoming confirmed PDU type 0x%02X", pdu.Type())

	case !pdu.Internal() && pdu.Type() == TagTrap:
		return result, nil, wrapf(ErrUnsupportedFeature, "processor does not handle incoming Trap notifications")

	default:
		// Response or Report: match against the outstanding-request cache.
		params, _ := decodeUsmSecurityParameters(msg.SecurityParameters)
		entry, ok := p.cache.take(msg.Header.MsgID)
		if !ok {
			if p.cache.wasRetired(msg.Header.MsgID) {
				return result, nil, wrapf(ErrLateResponse, "handle for msgID %d was already released", msg.Header.MsgID)
			}
			return result, nil, wrapf(ErrResponseMismatch, "no outstanding request for msgID %d", msg.Header.MsgID)
		}

		level := msg.Header.Flags.Level()
		if merr := entry.matches(level, params.AuthoritativeEngineID, params.UserName, msg.ScopedData.ContextEngineID, msg.ScopedData.ContextName, pdu.Internal()); merr != nil {
			p.handles.release(entry.Handle)
			return result, nil, wrapf(ErrResponseMismatch, "response for msgID %d failed cross-check: %v", msg.Header.MsgID, merr)
		}
		if v, ok := p.handles.get(entry.Handle); ok {
			result.Handle = v
		}
		p.handles.release(entry.Handle)
		return result, nil, nil
	}
}
