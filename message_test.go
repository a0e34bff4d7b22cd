package snmp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestGetRequestVarBindRoundTrip(t *testing.T) {
	req := NewGetRequest(42, OID{1, 3, 6, 1, 2, 1, 1, 1, 0})
	encoded, err := req.encode()
	require.NoError(t, err)

	decoded, rest, err := decodePDU(encoded)
	require.NoError(t, err)
	require.Empty(t, rest)

	got := decoded.(*GetRequest)
	require.Equal(t, int32(42), got.RequestID())
	require.True(t, got.Confirmed())
	require.False(t, got.Internal())
	if diff := cmp.Diff(req.VarBinds(), got.VarBinds()); diff != "" {
		t.Fatalf("varbind mismatch (-want +got):\n%s", diff)
	}
}

func TestResponseWithTypedValuesRoundTrip(t *testing.T) {
	resp := NewResponse(7, NoError, 0, []VarBind{
		{Name: OID{1, 3, 6, 1, 2, 1, 1, 3, 0}, Value: TimeTicks(123456)},
		{Name: OID{1, 3, 6, 1, 2, 1, 2, 2, 1, 10, 1}, Value: Counter32(4294967295)},
		{Name: OID{1, 3, 6, 1, 2, 1, 1, 5, 0}, Value: []byte("switch1")},
		{Name: OID{1, 3, 6, 1, 2, 1, 4, 20, 1, 1, 1}, Value: IpAddress{192, 168, 0, 1}},
	})

	encoded, err := resp.encode()
	require.NoError(t, err)

	decoded, rest, err := decodePDU(encoded)
	require.NoError(t, err)
	require.Empty(t, rest)

	got := decoded.(*Response)
	require.Equal(t, NoError, got.ErrorStatus())
	require.Equal(t, resp.VarBinds(), got.VarBinds())
}

func TestGetBulkRequestRoundTrip(t *testing.T) {
	req := NewGetBulkRequest(1, 1, 10, OID{1, 3, 6, 1, 2, 1, 2, 2})
	encoded, err := req.encode()
	require.NoError(t, err)

	decoded, rest, err := decodePDU(encoded)
	require.NoError(t, err)
	require.Empty(t, rest)

	got := decoded.(*GetBulkRequest)
	require.Equal(t, int32(1), got.NonRepeaters())
	require.Equal(t, int32(10), got.MaxRepetitions())
}

func TestScopedPDURoundTrip(t *testing.T) {
	scoped := ScopedPDU{
		ContextEngineID: []byte{0x80, 0x00, 0x1f, 0x88, 0x80},
		ContextName:     "",
		PDU:             NewGetNextRequest(3, OID{1, 3, 6, 1, 2, 1, 1}),
	}
	encoded, err := scoped.encode()
	require.NoError(t, err)

	got, rest, err := decodeScopedPDU(encoded)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, scoped.ContextEngineID, got.ContextEngineID)
	require.Equal(t, int32(3), got.PDU.RequestID())
}

func TestMessageNoAuthNoPrivRoundTrip(t *testing.T) {
	msg := SNMPv3Message{
		Header: HeaderData{
			MsgID:         100,
			MaxSize:       65507,
			Flags:         FlagsForLevel(NoAuthNoPriv, true),
			SecurityModel: SecurityModelUSM,
		},
		SecurityParameters: UsmSecurityParameters{UserName: "public"}.encode(),
		ScopedData: &ScopedPDU{
			ContextEngineID: []byte{1, 2, 3, 4},
			ContextName:     "",
			PDU:             NewGetRequest(9, OID{1, 3, 6, 1, 2, 1, 1, 1, 0}),
		},
	}

	encoded, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := DecodeMessage(encoded)
	require.NoError(t, err)
	require.False(t, decoded.Encrypted())
	require.Equal(t, int32(100), decoded.Header.MsgID)
	require.Equal(t, int32(9), decoded.ScopedData.PDU.RequestID())
}

func TestMessageRejectsWrongVersion(t *testing.T) {
	msg := SNMPv3Message{
		Header: HeaderData{MsgID: 1, MaxSize: 65507, Flags: FlagsForLevel(NoAuthNoPriv, false), SecurityModel: SecurityModelUSM},
		ScopedData: &ScopedPDU{
			PDU: NewGetRequest(1),
		},
	}
	encoded, err := msg.Encode()
	require.NoError(t, err)

	// Overwrite msgVersion's INTEGER payload (tag 0x02, length 1) in
	// place with version 1 (snmpv1), leaving everything else intact.
	_, contents, _, err := decodeTLV(encoded[2:])
	require.NoError(t, err)
	require.Equal(t, []byte{0x03}, contents)
	encoded[4] = 0x01

	_, err = DecodeMessage(encoded)
	require.ErrorIs(t, err, ErrBadVersion)
}
