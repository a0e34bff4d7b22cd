package snmp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheEntryMatchesAcceptsAtLeastSecurityLevel(t *testing.T) {
	e := &CacheEntry{
		SecurityLevel:    AuthNoPriv,
		SecurityEngineID: []byte{1, 2, 3},
		SecurityName:     "alice",
		ContextEngineID:  []byte{1, 2, 3},
		ContextName:      "ctx",
	}

	require.NoError(t, e.matches(AuthPriv, []byte{1, 2, 3}, "alice", []byte{1, 2, 3}, "ctx", false))
	require.NoError(t, e.matches(AuthNoPriv, []byte{1, 2, 3}, "alice", []byte{1, 2, 3}, "ctx", false))
	require.Error(t, e.matches(NoAuthNoPriv, []byte{1, 2, 3}, "alice", []byte{1, 2, 3}, "ctx", false))
}

func TestCacheEntryMatchesSkipsEngineChecksForReport(t *testing.T) {
	e := &CacheEntry{
		SecurityLevel:    AuthPriv,
		SecurityEngineID: []byte{1, 2, 3},
		SecurityName:     "alice",
		ContextEngineID:  []byte{1, 2, 3},
		ContextName:      "ctx",
	}

	// A Report from a different (being-discovered) engine, at a lower
	// security level, still matches as long as securityName/contextName
	// agree.
	require.NoError(t, e.matches(NoAuthNoPriv, []byte{9, 9, 9}, "alice", []byte{9, 9, 9}, "ctx", true))

	// The same mismatch is rejected outside the Report carve-out.
	require.Error(t, e.matches(NoAuthNoPriv, []byte{9, 9, 9}, "alice", []byte{9, 9, 9}, "ctx", false))

	// securityName/contextName are never skipped.
	require.Error(t, e.matches(AuthPriv, []byte{1, 2, 3}, "mallory", []byte{1, 2, 3}, "ctx", true))
	require.Error(t, e.matches(AuthPriv, []byte{1, 2, 3}, "alice", []byte{1, 2, 3}, "wrong", true))
}

func TestOutstandingCacheTakeRetiresMsgID(t *testing.T) {
	c := newOutstandingCache()
	c.put(&CacheEntry{MsgID: 7, Handle: 1})

	require.False(t, c.wasRetired(7))

	entry, ok := c.take(7)
	require.True(t, ok)
	require.Equal(t, uint64(1), entry.Handle)

	require.True(t, c.wasRetired(7))
	_, ok = c.take(7)
	require.False(t, ok)
}

func TestOutstandingCacheNeverIssuedMsgIDIsNotRetired(t *testing.T) {
	c := newOutstandingCache()
	require.False(t, c.wasRetired(42))
	_, ok := c.take(42)
	require.False(t, ok)
	require.False(t, c.wasRetired(42))
}

func TestOutstandingCacheSweepDropsExpiredAndRetires(t *testing.T) {
	c := newOutstandingCache()
	past := time.Now().Add(-time.Minute)
	c.put(&CacheEntry{MsgID: 1, Handle: 11, Expiry: past})
	c.put(&CacheEntry{MsgID: 2, Handle: 12, Expiry: time.Now().Add(time.Hour)})

	dropped := c.sweep(time.Now())
	require.Equal(t, []uint64{11}, dropped)
	require.True(t, c.wasRetired(1))
	require.False(t, c.has(1))
	require.True(t, c.has(2))
}

func TestHandleTableAllocGetRelease(t *testing.T) {
	ht := newHandleTable()
	id := ht.alloc("payload")

	v, ok := ht.get(id)
	require.True(t, ok)
	require.Equal(t, "payload", v)

	ht.release(id)
	_, ok = ht.get(id)
	require.False(t, ok)
}
