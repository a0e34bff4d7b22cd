package snmp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T, local *EngineRecord, users UserDirectory, opts ...Option) *MessageProcessor {
	p := NewMessageProcessor(local, users, opts...)
	t.Cleanup(p.Close)
	return p
}

// agentRespond builds the raw bytes of a Response a remote agent
// (identified by agentEngine) would send back to requestID, signed as
// agentEngine itself, as if processed through that agent's own
// SecurityModule.
func agentRespond(t *testing.T, agentEngine *EngineRecord, users UserDirectory, userName string, level SecurityLevel, msgID, requestID int32, contextEngineID []byte, contextName string) []byte {
	t.Helper()
	sm := NewSecurityModule(agentEngine, users, nil)
	scoped := ScopedPDU{
		ContextEngineID: contextEngineID,
		ContextName:     contextName,
		PDU:             NewResponse(requestID, NoError, 0, nil),
	}
	msg, err := sm.PrepareOutgoing(msgID, 1500, level, false, userName, agentEngine.EngineID, scoped)
	require.NoError(t, err)
	raw, err := msg.Encode()
	require.NoError(t, err)
	return raw
}

func TestMessageProcessorConfirmedRequestMatchesResponse(t *testing.T) {
	agentEngine := NewEngineRecord([]byte("agent-engine"), 1)
	users := newFakeUserDirectory()
	users.add(agentEngine.EngineID, User{Name: "alice"})

	p := newTestProcessor(t, NewEngineRecord([]byte("manager-engine"), 1), users)

	out, err := p.PrepareOutgoingMessage("alice", NoAuthNoPriv, agentEngine.EngineID, []byte("ctx"), "", NewGetRequest(5, OID{1, 3, 6, 1, 2, 1, 1, 1, 0}), "my-handle")
	require.NoError(t, err)

	raw := agentRespond(t, agentEngine, users, "alice", NoAuthNoPriv, out.MsgID, 5, []byte("ctx"), "")

	in, report, err := p.ProcessIncomingMessage(raw)
	require.NoError(t, err)
	require.Nil(t, report)
	require.Equal(t, "my-handle", in.Handle)
	require.Equal(t, int32(5), in.PDU.RequestID())
}

func TestMessageProcessorCancelThenResponseIsLate(t *testing.T) {
	agentEngine := NewEngineRecord([]byte("agent-engine"), 1)
	users := newFakeUserDirectory()
	users.add(agentEngine.EngineID, User{Name: "alice"})

	p := newTestProcessor(t, NewEngineRecord([]byte("manager-engine"), 1), users)

	out, err := p.PrepareOutgoingMessage("alice", NoAuthNoPriv, agentEngine.EngineID, []byte("ctx"), "", NewGetRequest(5, OID{1, 3, 6, 1, 2, 1, 1, 1, 0}), "my-handle")
	require.NoError(t, err)

	require.True(t, p.Cancel(out.MsgID))
	require.False(t, p.Cancel(out.MsgID)) // already gone

	raw := agentRespond(t, agentEngine, users, "alice", NoAuthNoPriv, out.MsgID, 5, []byte("ctx"), "")
	_, _, err = p.ProcessIncomingMessage(raw)
	require.ErrorIs(t, err, ErrLateResponse)
}

func TestMessageProcessorNeverIssuedMsgIDIsResponseMismatch(t *testing.T) {
	agentEngine := NewEngineRecord([]byte("agent-engine"), 1)
	users := newFakeUserDirectory()
	users.add(agentEngine.EngineID, User{Name: "alice"})

	p := newTestProcessor(t, NewEngineRecord([]byte("manager-engine"), 1), users)

	raw := agentRespond(t, agentEngine, users, "alice", NoAuthNoPriv, 999999, 5, []byte("ctx"), "")
	_, _, err := p.ProcessIncomingMessage(raw)
	require.ErrorIs(t, err, ErrResponseMismatch)
}

func TestMessageProcessorSweepExpiresStaleEntryThenResponseIsLate(t *testing.T) {
	agentEngine := NewEngineRecord([]byte("agent-engine"), 1)
	users := newFakeUserDirectory()
	users.add(agentEngine.EngineID, User{Name: "alice"})

	p := newTestProcessor(t, NewEngineRecord([]byte("manager-engine"), 1), users,
		WithRequestTimeout(1*time.Millisecond), WithSweepInterval(5*time.Millisecond))

	out, err := p.PrepareOutgoingMessage("alice", NoAuthNoPriv, agentEngine.EngineID, []byte("ctx"), "", NewGetRequest(5, OID{1, 3, 6, 1, 2, 1, 1, 1, 0}), "my-handle")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return !p.cache.has(out.MsgID)
	}, time.Second, 5*time.Millisecond)

	raw := agentRespond(t, agentEngine, users, "alice", NoAuthNoPriv, out.MsgID, 5, []byte("ctx"), "")
	_, _, err = p.ProcessIncomingMessage(raw)
	require.ErrorIs(t, err, ErrLateResponse)
}

func TestMessageProcessorRejectsIncomingConfirmedPDU(t *testing.T) {
	agentEngine := NewEngineRecord([]byte("agent-engine"), 1)
	users := newFakeUserDirectory()
	users.add(agentEngine.EngineID, User{Name: "alice"})

	p := newTestProcessor(t, NewEngineRecord([]byte("manager-engine"), 1), users)

	sm := NewSecurityModule(agentEngine, users, nil)
	scoped := ScopedPDU{ContextEngineID: []byte("ctx"), PDU: NewGetRequest(1, OID{1, 3, 6, 1, 2, 1, 1, 1, 0})}
	msg, err := sm.PrepareOutgoing(1, 1500, NoAuthNoPriv, true, "alice", agentEngine.EngineID, scoped)
	require.NoError(t, err)
	raw, err := msg.Encode()
	require.NoError(t, err)

	_, _, err = p.ProcessIncomingMessage(raw)
	require.ErrorIs(t, err, ErrUnsupportedFeature)
}

func TestMessageProcessorRejectsIncomingTrap(t *testing.T) {
	agentEngine := NewEngineRecord([]byte("agent-engine"), 1)
	users := newFakeUserDirectory()
	users.add(agentEngine.EngineID, User{Name: "alice"})

	p := newTestProcessor(t, NewEngineRecord([]byte("manager-engine"), 1), users)

	sm := NewSecurityModule(agentEngine, users, nil)
	scoped := ScopedPDU{ContextEngineID: []byte("ctx"), PDU: NewTrap(1, nil)}
	msg, err := sm.PrepareOutgoing(1, 1500, NoAuthNoPriv, false, "alice", agentEngine.EngineID, scoped)
	require.NoError(t, err)
	raw, err := msg.Encode()
	require.NoError(t, err)

	_, _, err = p.ProcessIncomingMessage(raw)
	require.ErrorIs(t, err, ErrUnsupportedFeature)
}

func TestMsgIDGeneratorAvoidsTakenIDs(t *testing.T) {
	g := newMsgIDGenerator()
	taken := map[int32]bool{}

	for i := 0; i < 50; i++ {
		id, err := g.next(func(id int32) bool { return taken[id] })
		require.NoError(t, err)
		require.False(t, taken[id])
		require.Greater(t, id, int32(0))
		taken[id] = true
	}
}

func TestMsgIDGeneratorExhaustionReturnsResourceExhausted(t *testing.T) {
	g := newMsgIDGenerator()
	_, err := g.next(func(int32) bool { return true })
	require.ErrorIs(t, err, ErrResourceExhausted)
}
