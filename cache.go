package snmp

import (
	"sync"
	"time"
)

// CacheEntry is what the message processor remembers about an
// outstanding request while it waits for a Response (spec.md §4.7): the
// security-state expectations a matching response must satisfy, plus an
// opaque Handle identifying the caller's own request state. The cache
// never stores the caller's request value itself — only the handle
// needed to look it back up in the caller's own table (spec.md §9's
// weak-handle back-reference pattern), so the processor cannot leak or
// outlive caller-owned objects.
type CacheEntry struct {
	MsgID int32

	SecurityLevel    SecurityLevel
	SecurityEngineID []byte
	SecurityName     string
	ContextEngineID  []byte
	ContextName      string

	Expiry time.Time
	Handle uint64
}

// matches runs the ordered cross-check list spec.md §4.7 requires
// before accepting an incoming message as the response to this entry:
// security level, securityEngineID, securityName, contextEngineID, and
// contextName must all agree. isReport skips the securityLevel,
// securityEngineID and contextEngineID checks: a Report is USM's own
// error channel and may legitimately arrive at a lower security level
// and from the engine being discovered, rather than the one the
// original request targeted (spec.md §4.7 "(skip for Report)").
func (e *CacheEntry) matches(level SecurityLevel, securityEngineID []byte, securityName string, contextEngineID []byte, contextName string, isReport bool) error {
	if !isReport {
		if !level.AtLeast(e.SecurityLevel) {
			return wrapf(ErrResponseMismatch, "securityLevel: want at least %s got %s", e.SecurityLevel, level)
		}
		if string(securityEngineID) != string(e.SecurityEngineID) {
			return wrapf(ErrResponseMismatch, "securityEngineID mismatch")
		}
	}
	if securityName != e.SecurityName {
		return wrapf(ErrResponseMismatch, "securityName: want %q got %q", e.SecurityName, securityName)
	}
	if !isReport {
		if string(contextEngineID) != string(e.ContextEngineID) {
			return wrapf(ErrResponseMismatch, "contextEngineID mismatch")
		}
	}
	if contextName != e.ContextName {
		return wrapf(ErrResponseMismatch, "contextName: want %q got %q", e.ContextName, contextName)
	}
	return nil
}

// retiredMemory bounds how long a retired msgID is remembered purely to
// distinguish "this was ours and is gone" (LateResponse) from "this was
// never ours" (ResponseMismatch). It should comfortably outlive
// requestTimeout so a sweep-evicted entry is still recognized when its
// tardy response finally shows up.
const retiredMemory = 10 * time.Minute

// outstandingCache is the msgID-indexed table of CacheEntry values
// awaiting a response. It also remembers recently-retired msgIDs (taken,
// swept, or explicitly cancelled) so ProcessIncomingMessage can tell a
// genuinely unrecognized msgID from one whose handle it already
// released.
type outstandingCache struct {
	mu      sync.Mutex
	entries map[int32]*CacheEntry
	retired map[int32]time.Time
}

func newOutstandingCache() *outstandingCache {
	return &outstandingCache{
		entries: make(map[int32]*CacheEntry),
		retired: make(map[int32]time.Time),
	}
}

func (c *outstandingCache) put(e *CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.retired, e.MsgID)
	c.entries[e.MsgID] = e
}

// take removes and returns the entry for msgID, if any, retiring the
// msgID when an entry was found. A msgID this cache never issued stays
// unretired.
func (c *outstandingCache) take(msgID int32) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[msgID]
	if ok {
		delete(c.entries, msgID)
		c.retireLocked(msgID, time.Now())
	}
	return e, ok
}

func (c *outstandingCache) has(msgID int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[msgID]
	return ok
}

// wasRetired reports whether msgID belongs to a request this cache
// tracked and has since let go of, as opposed to one it never issued.
func (c *outstandingCache) wasRetired(msgID int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.retired[msgID]
	return ok
}

func (c *outstandingCache) retireLocked(msgID int32, now time.Time) {
	c.retired[msgID] = now
	for id, at := range c.retired {
		if now.Sub(at) > retiredMemory {
			delete(c.retired, id)
		}
	}
}

// sweep removes entries whose Expiry has passed as of now, returning
// the handles of the entries it dropped so the caller can release
// whatever state those handles reference (spec.md §9's periodic
// stale-entry sweep).
func (c *outstandingCache) sweep(now time.Time) []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var dropped []uint64
	for id, e := range c.entries {
		if now.After(e.Expiry) {
			dropped = append(dropped, e.Handle)
			delete(c.entries, id)
			c.retireLocked(id, now)
		}
	}
	return dropped
}

// handleTable is an ID-indexed slot table handing out opaque uint64
// handles for caller-owned values, so CacheEntry can reference a
// request without the cache owning it.
type handleTable struct {
	mu    sync.Mutex
	slots map[uint64]interface{}
	next  uint64
}

func newHandleTable() *handleTable {
	return &handleTable{slots: make(map[uint64]interface{})}
}

func (t *handleTable) alloc(v interface{}) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	id := t.next
	t.slots[id] = v
	return id
}

func (t *handleTable) get(id uint64) (interface{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.slots[id]
	return v, ok
}

func (t *handleTable) release(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.slots, id)
}
