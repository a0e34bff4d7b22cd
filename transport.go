package snmp

import "net"

// Transport is the wire-level send/receive interface the message
// processor consumes (spec.md §6). The caller owns the actual socket;
// this package only frames, signs, and encrypts the bytes that cross
// it.
type Transport interface {
	// SendTo writes a datagram to addr.
	SendTo(data []byte, addr net.Addr) error

	// RecvFrom blocks for the next inbound datagram.
	RecvFrom() (data []byte, addr net.Addr, err error)
}
