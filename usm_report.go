package snmp

import "sync/atomic"

// usmStats are the six usmStats counters of RFC 3414 §5, exposed at
// 1.3.6.1.6.3.15.1.1.{1..6}. Each counts a distinct reason an incoming
// message was rejected, and backs the matching Report PDU when the
// sender marked the message REPORTABLE (spec.md §4.8).
type usmStats struct {
	unsupportedSecLevels uint32
	notInTimeWindows     uint32
	unknownUserNames     uint32
	unknownEngineIDs     uint32
	wrongDigests         uint32
	decryptionErrors     uint32
}

// usmStat names one of the six counters and its OID suffix.
type usmStat int

const (
	statUnsupportedSecLevels usmStat = iota
	statNotInTimeWindows
	statUnknownUserNames
	statUnknownEngineIDs
	statWrongDigests
	statDecryptionErrors
)

var usmStatsBaseOID = OID{1, 3, 6, 1, 6, 3, 15, 1, 1}

func (s usmStat) oid() OID {
	return append(append(OID{}, usmStatsBaseOID...), uint32(s+1), 0)
}

func (s usmStat) counter(stats *usmStats) *uint32 {
	switch s {
	case statUnsupportedSecLevels:
		return &stats.unsupportedSecLevels
	case statNotInTimeWindows:
		return &stats.notInTimeWindows
	case statUnknownUserNames:
		return &stats.unknownUserNames
	case statUnknownEngineIDs:
		return &stats.unknownEngineIDs
	case statWrongDigests:
		return &stats.wrongDigests
	case statDecryptionErrors:
		return &stats.decryptionErrors
	default:
		panic("snmp: unknown usmStat")
	}
}

// bump increments the named counter and returns its new value.
func (stats *usmStats) bump(s usmStat) uint32 {
	return atomic.AddUint32(s.counter(stats), 1)
}

// reportFor builds the Report PDU carrying the current value of the
// counter associated with cause, addressed by requestID (spec.md §4.8).
// The caller is responsible for wrapping this in a ScopedPDU/message
// using the local engine's own authoritative identity.
func reportFor(stats *usmStats, cause usmStat, requestID int32) *Report {
	value := stats.bump(cause)
	return NewReport(requestID, []VarBind{{Name: cause.oid(), Value: Counter32(value)}})
}
