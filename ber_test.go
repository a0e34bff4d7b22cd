package snmp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeIntegerRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 127, 128, -128, -129, 255, 65535, -65536, 1 << 30, -(1 << 30)} {
		encoded := EncodeInteger(v)
		got, rest, err := DecodeInteger(encoded)
		require.NoError(t, err, "value %d", v)
		require.Empty(t, rest)
		require.Equal(t, v, got)
	}
}

func TestDecodeIntegerRejectsNonMinimalEncoding(t *testing.T) {
	// tag INTEGER, length 2, contents 0x00 0x01 — a redundant leading
	// zero byte the minimal encoding would omit.
	_, _, err := DecodeInteger([]byte{byte(TagInteger), 0x02, 0x00, 0x01})
	require.Error(t, err)
}

func TestEncodeDecodeOctetStringRoundTrip(t *testing.T) {
	for _, v := range [][]byte{nil, {}, []byte("public"), make([]byte, 300)} {
		encoded := EncodeOctetString(v)
		got, rest, err := DecodeOctetString(encoded)
		require.NoError(t, err)
		require.Empty(t, rest)
		require.Equal(t, len(v), len(got))
	}
}

func TestEncodeDecodeObjectIdentifierRoundTrip(t *testing.T) {
	for _, arcs := range [][]uint32{
		{1, 3, 6, 1, 2, 1},
		{0, 0},
		{2, 999, 3},
		{1, 3, 6, 1, 6, 3, 15, 1, 1, 1, 0},
	} {
		encoded, err := EncodeObjectIdentifier(arcs)
		require.NoError(t, err)
		got, rest, err := DecodeObjectIdentifier(encoded)
		require.NoError(t, err)
		require.Empty(t, rest)
		require.Equal(t, arcs, got)
	}
}

func TestFormatOID(t *testing.T) {
	require.Equal(t, "1.3.6.1.2.1", FormatOID([]uint32{1, 3, 6, 1, 2, 1}))
}

func TestEncodeObjectIdentifierRejectsInvalidFirstArcs(t *testing.T) {
	_, err := EncodeObjectIdentifier([]uint32{3, 0})
	require.Error(t, err)
	_, err = EncodeObjectIdentifier([]uint32{1, 40})
	require.Error(t, err)
}

func TestLengthRoundTripShortAndLongForm(t *testing.T) {
	for _, n := range []int{0, 1, 127, 128, 200, 65535, 100000} {
		b, err := marshalLength(n)
		require.NoError(t, err)
		got, consumed, err := parseLength(b)
		require.NoError(t, err)
		require.Equal(t, n, got)
		require.Equal(t, len(b), consumed)
	}
}

func TestMarshalTLVProducesWellFormedHeader(t *testing.T) {
	out, err := marshalTLV(byte(TagOctetString), []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, []byte{byte(TagOctetString), 5, 'h', 'e', 'l', 'l', 'o'}, out)
}
