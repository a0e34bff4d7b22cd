package snmp

import (
	"crypto"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	_ "crypto/sha256" // registers SHA224, SHA256
	_ "crypto/sha512" // registers SHA384, SHA512
	"crypto/subtle"
	"hash"
	"sync"
	"sync/atomic"
)

// AuthProtocol identifies an authentication protocol registered against
// USM (spec.md §4.4). NoAuth is protocol value 1, matching the wire
// encoding's authProtocol numbering convention.
type AuthProtocol uint8

const (
	NoAuth AuthProtocol = 1 + iota
	MD5
	SHA1
	SHA224
	SHA256
	SHA384
	SHA512
)

// String names the protocol for log lines and error messages.
func (p AuthProtocol) String() string {
	switch p {
	case NoAuth:
		return "none"
	case MD5:
		return "MD5"
	case SHA1:
		return "SHA1"
	case SHA224:
		return "SHA224"
	case SHA256:
		return "SHA256"
	case SHA384:
		return "SHA384"
	case SHA512:
		return "SHA512"
	default:
		return "unknown"
	}
}

// hashType returns the crypto.Hash backing the protocol.
func (p AuthProtocol) hashType() crypto.Hash {
	switch p {
	case MD5:
		return crypto.MD5
	case SHA1:
		return crypto.SHA1
	case SHA224:
		return crypto.SHA224
	case SHA256:
		return crypto.SHA256
	case SHA384:
		return crypto.SHA384
	case SHA512:
		return crypto.SHA512
	default:
		return 0
	}
}

// digestLen is the truncated digest length placed in
// msgAuthenticationParameters: 12 octets for the legacy RFC 3414
// MD5/SHA1 pair, and RFC 7860's 16/24/32/48 octets for
// SHA-224/256/384/512.
func (p AuthProtocol) digestLen() int {
	switch p {
	case MD5, SHA1:
		return 12
	case SHA224:
		return 16
	case SHA256:
		return 24
	case SHA384:
		return 32
	case SHA512:
		return 48
	default:
		return 0
	}
}

// rfc3414 reports whether p uses the legacy ipad/opad HMAC construction
// of RFC 3414 §6.3.2/§7.3.2 rather than crypto/hmac.
func (p AuthProtocol) rfc3414() bool { return p == MD5 || p == SHA1 }

var (
	passwordKeyHashCache = make(map[string][]byte)
	passwordKeyHashMutex sync.RWMutex
	passwordCacheDisable atomic.Bool
)

// PasswordCaching enables or disables the password-to-key hash cache
// used by localizeKey. Disabling it clears the cache; the cache is
// rebuilt empty if re-enabled (spec.md §4.4's password/key-derivation
// caching note).
func PasswordCaching(enable bool) {
	wasEnabled := !passwordCacheDisable.Load()
	passwordKeyHashMutex.Lock()
	defer passwordKeyHashMutex.Unlock()
	if !enable {
		passwordKeyHashCache = nil
	} else if !wasEnabled {
		passwordKeyHashCache = make(map[string][]byte)
	}
	passwordCacheDisable.Store(!enable)
}

// hashPassword implements the RFC 3414 Appendix A.2 password-to-key
// algorithm: repeat the password to fill a 1 MiB buffer and hash it.
func hashPassword(h hash.Hash, password string) ([]byte, error) {
	if len(password) == 0 {
		return nil, wrapf(ErrInvalidMessage, "password must not be empty")
	}
	var pi int
	for i := 0; i < 1048576; i += 64 {
		chunk := make([]byte, 64)
		for e := 0; e < 64; e++ {
			chunk[e] = password[pi%len(password)]
			pi++
		}
		if _, err := h.Write(chunk); err != nil {
			return nil, err
		}
	}
	return h.Sum(nil), nil
}

func cacheKey(protocol AuthProtocol, secret string) string {
	if passwordCacheDisable.Load() {
		return ""
	}
	return string(append([]byte{'h', byte(protocol)}, secret...))
}

func cachedPasswordToKey(h hash.Hash, key string, password string) ([]byte, error) {
	disabled := passwordCacheDisable.Load()
	if !disabled {
		passwordKeyHashMutex.RLock()
		if v, ok := passwordKeyHashCache[key]; ok {
			passwordKeyHashMutex.RUnlock()
			return v, nil
		}
		passwordKeyHashMutex.RUnlock()
	}

	hashed, err := hashPassword(h, password)
	if err != nil {
		return nil, err
	}

	if !disabled {
		passwordKeyHashMutex.Lock()
		passwordKeyHashCache[key] = hashed
		passwordKeyHashMutex.Unlock()
	}
	return hashed, nil
}

// localizeKeyWith performs RFC 3414 §2.6's key localization:
// Kul = H(Ku || engineID || Ku), where Ku is the password-derived key.
func localizeKeyWith(protocol AuthProtocol, cacheLabel, secret, engineID string) ([]byte, error) {
	hashType := protocol.hashType()
	if hashType == 0 {
		return nil, wrapf(ErrUnsupportedSecLevel, "no hash registered for auth protocol %s", protocol)
	}

	ku, err := cachedPasswordToKey(hashType.New(), cacheKey(protocol, cacheLabel), secret)
	if err != nil {
		return nil, err
	}

	local := hashType.New()
	local.Write(ku)
	local.Write([]byte(engineID))
	local.Write(ku)
	return local.Sum(nil), nil
}

// localizeKey derives the engine-localized authentication key for a
// plaintext passphrase (spec.md §4.4).
func localizeKey(protocol AuthProtocol, passphrase, engineID string) ([]byte, error) {
	return localizeKeyWith(protocol, cacheKey(protocol, passphrase), passphrase, engineID)
}

// digestRFC3414 computes the HMAC-MD5-96/HMAC-SHA-96 digest of RFC 3414
// §6.3.2/§7.3.2's hand-rolled ipad/opad construction, truncated to 12
// octets by the caller.
func digestRFC3414(protocol AuthProtocol, packet, key []byte) ([]byte, error) {
	var extKey [64]byte
	copy(extKey[:], key)

	var h1, h2 hash.Hash
	switch protocol {
	case MD5:
		h1, h2 = md5.New(), md5.New()
	case SHA1:
		h1, h2 = sha1.New(), sha1.New()
	default:
		return nil, wrapf(ErrUnsupportedSecLevel, "digestRFC3414 does not support %s", protocol)
	}

	var k1, k2 [64]byte
	for i := range extKey {
		k1[i] = extKey[i] ^ 0x36
		k2[i] = extKey[i] ^ 0x5c
	}

	h1.Write(k1[:])
	h1.Write(packet)
	d1 := h1.Sum(nil)

	h2.Write(k2[:])
	h2.Write(d1)
	return h2.Sum(nil), nil
}

// digestRFC7860 computes the standard HMAC-SHA-2 digest of RFC 7860
// §4.2.2, truncated to digestLen() octets by the caller.
func digestRFC7860(protocol AuthProtocol, packet, key []byte) ([]byte, error) {
	mac := hmac.New(protocol.hashType().New, key)
	if _, err := mac.Write(packet); err != nil {
		return nil, err
	}
	return mac.Sum(nil), nil
}

// signPacket computes the truncated authentication digest for packet
// under key.
func signPacket(protocol AuthProtocol, packet, key []byte) ([]byte, error) {
	var digest []byte
	var err error
	if protocol.rfc3414() {
		digest, err = digestRFC3414(protocol, packet, key)
	} else {
		digest, err = digestRFC7860(protocol, packet, key)
	}
	if err != nil {
		return nil, err
	}
	return digest[:protocol.digestLen()], nil
}

// verifyDigest reports whether signature matches the digest computed
// over packet under key, in constant time.
func verifyDigest(protocol AuthProtocol, packet, key, signature []byte) (bool, error) {
	want, err := signPacket(protocol, packet, key)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(want, signature) == 1, nil
}
