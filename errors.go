package snmp

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers should match them with errors.Is, since
// every returned error wraps one of these with additional context via
// fmt.Errorf("%w: ...").
var (
	// ErrParseError signals malformed BER: a length mismatch, an unknown
	// PDU tag, or a non-minimal INTEGER/OID encoding.
	ErrParseError = errors.New("snmp: parse error")

	// ErrBadVersion signals a message whose version field isn't 3.
	ErrBadVersion = errors.New("snmp: bad version")

	// ErrUnknownSecurityModel signals a securityModel value with no
	// registered module.
	ErrUnknownSecurityModel = errors.New("snmp: unknown security model")

	// ErrInvalidMessage signals an inconsistent MessageFlags byte
	// (privFlag set without authFlag).
	ErrInvalidMessage = errors.New("snmp: invalid message")

	// ErrUnknownUserName signals a (engineID, userName) pair with no
	// matching USM user.
	ErrUnknownUserName = errors.New("snmp: unknown user name")

	// ErrUnknownEngineID signals an authenticated message claiming an
	// authoritativeEngineID this module has neither localized keys for
	// nor discovered yet.
	ErrUnknownEngineID = errors.New("snmp: unknown engine ID")

	// ErrUnsupportedSecLevel signals a requested SecurityLevel exceeding
	// what the user is provisioned for.
	ErrUnsupportedSecLevel = errors.New("snmp: unsupported security level")

	// ErrWrongDigests signals an authentication failure: the recomputed
	// HMAC does not match msgAuthenticationParameters.
	ErrWrongDigests = errors.New("snmp: wrong digests")

	// ErrDecryptionError signals a privacy failure.
	ErrDecryptionError = errors.New("snmp: decryption error")

	// ErrNotInTimeWindow signals a timeliness failure.
	ErrNotInTimeWindow = errors.New("snmp: not in time window")

	// ErrResponseMismatch signals a Response/Report whose fields
	// disagree with the cached outstanding request.
	ErrResponseMismatch = errors.New("snmp: response mismatch")

	// ErrLateResponse signals a Response/Report for a msgID whose handle
	// was already released by its owner.
	ErrLateResponse = errors.New("snmp: late response")

	// ErrUnsupportedFeature signals a non-response PDU handed to
	// prepareDataElements.
	ErrUnsupportedFeature = errors.New("snmp: unsupported feature")

	// ErrResourceExhausted signals msgID allocation failure after
	// repeated collisions.
	ErrResourceExhausted = errors.New("snmp: resource exhausted")
)

// wrapf wraps one of the sentinels above with a formatted detail message,
// preserving errors.Is/errors.As compatibility.
func wrapf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{sentinel}, args...)...)
}
