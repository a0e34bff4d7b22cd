package snmp

import (
	"bytes"
	"sync"
	"time"
)

// User is one USM principal's security configuration (spec.md §4.6):
// its auth/priv protocol choices and passphrases. Localized keys are
// derived lazily and cached per (user, engine) pair.
type User struct {
	Name string

	AuthProtocol   AuthProtocol
	AuthPassphrase string

	PrivProtocol   PrivProtocol
	PrivPassphrase string
}

func (u User) securityLevel() SecurityLevel {
	switch {
	case u.PrivProtocol > NoPriv:
		return AuthPriv
	case u.AuthProtocol > NoAuth:
		return AuthNoPriv
	default:
		return NoAuthNoPriv
	}
}

// UserDirectory is the consumed interface for looking up USM users
// (spec.md §6): the caller owns user storage, this package only consumes
// it. Users are keyed by the compound (engineID, name) pair, since RFC
// 3414 scopes a user's localized keys to one authoritative engine — the
// same name can carry different credentials (or not exist at all) on a
// different engine. Implementations that do not distinguish by engine
// are free to ignore the engineID argument.
type UserDirectory interface {
	User(engineID []byte, name string) (User, bool)
}

// EngineRecord tracks one SNMP engine's authoritative identity: its
// engineID and the (boots, time) pair USM uses for replay protection
// (spec.md §4.6, RFC 3414 §2.2.2). It doubles as the local engine's own
// free-running clock (bootedAt anchors Time() at construction) and, via
// observe, as a cache of the last (boots, time) this module has seen
// claimed by a remote engine it has discovered (spec.md §4.8's engine
// discovery).
type EngineRecord struct {
	EngineID []byte
	Boots    int32

	bootedAt time.Time

	observedSet  bool
	observedAt   time.Time
	observedTime int32
}

// NewEngineRecord starts a fresh EngineRecord with its boot clock
// anchored at the current time.
func NewEngineRecord(engineID []byte, boots int32) *EngineRecord {
	return &EngineRecord{EngineID: engineID, Boots: boots, bootedAt: time.Now()}
}

// Time returns the engine's current notion of msgAuthoritativeEngineTime.
// For the local engine this is whole seconds elapsed since construction.
// For a remote engine recorded via observe, it is the last observed
// engineTime plus whole seconds elapsed since that observation — an
// estimate, since this module does not run the remote engine's clock.
func (e *EngineRecord) Time() int32 {
	if e.observedSet {
		return e.observedTime + int32(time.Since(e.observedAt)/time.Second)
	}
	return int32(time.Since(e.bootedAt) / time.Second)
}

// observe records a (boots, engineTime) pair claimed by a remote engine
// at the current moment, so later Time() calls can project it forward.
func (e *EngineRecord) observe(boots, engineTime int32) {
	e.Boots = boots
	e.observedTime = engineTime
	e.observedAt = time.Now()
	e.observedSet = true
}

// timeWindow is the RFC 3414 §3.2 step 7 replay window: 150 seconds.
const timeWindow = 150

// derivedKeys caches one user's localized authentication and privacy
// keys for a specific engine, avoiding the 1 MiB password-repeat hash on
// every message (spec.md §4.4, §5's separate key-cache mutex).
type derivedKeys struct {
	authKey []byte
	privKey []byte
}

// SecurityModule is the USM engine: it signs/encrypts outgoing messages
// and authenticates/decrypts/validates incoming ones against a
// UserDirectory and a local EngineRecord (spec.md §4.6).
type SecurityModule struct {
	users       UserDirectory
	localEngine *EngineRecord
	logger      Logger

	keyMu    sync.Mutex
	keyCache map[string]*derivedKeys

	saltMu sync.Mutex
	salts  map[string]*privSaltCounters

	remoteMu      sync.RWMutex
	remoteEngines map[string]*EngineRecord

	stats usmStats
}

// NewSecurityModule builds a SecurityModule authoritative for
// localEngine, resolving USM users through users.
func NewSecurityModule(localEngine *EngineRecord, users UserDirectory, logger Logger) *SecurityModule {
	if logger == nil {
		logger = discardLogger{}
	}
	return &SecurityModule{
		users:         users,
		localEngine:   localEngine,
		logger:        logger,
		keyCache:      make(map[string]*derivedKeys),
		salts:         make(map[string]*privSaltCounters),
		remoteEngines: make(map[string]*EngineRecord),
	}
}

// Stats returns a snapshot of the six usmStats counters.
func (m *SecurityModule) Stats() usmStats { return m.stats }

// RemoteEngine returns the last-discovered (boots, time) record for
// engineID, if it has been recorded through DiscoverRemoteEngine
// (directly, or as ProcessIncoming's refresh of an already-recorded
// engine after an authenticated message from it passes its checks).
func (m *SecurityModule) RemoteEngine(engineID []byte) (*EngineRecord, bool) {
	m.remoteMu.RLock()
	defer m.remoteMu.RUnlock()
	e, ok := m.remoteEngines[string(engineID)]
	return e, ok
}

// DiscoverRemoteEngine records engineID/boots/engineTime as belonging to
// a newly- (or re-) discovered remote engine, so a subsequent
// PrepareOutgoing targeting it stamps a believable engineBoots/engineTime
// and so ProcessIncoming recognizes future messages from it as coming
// from a known engine rather than bumping statUnknownEngineIDs (spec.md
// §4.8's engine-discovery retry path). Callers typically invoke this
// after an unauthenticated discovery probe comes back revealing the
// agent's real engineID.
func (m *SecurityModule) DiscoverRemoteEngine(engineID []byte, boots, engineTime int32) {
	if bytes.Equal(engineID, m.localEngine.EngineID) {
		return
	}
	m.remoteMu.Lock()
	defer m.remoteMu.Unlock()
	rec, ok := m.remoteEngines[string(engineID)]
	if !ok {
		rec = &EngineRecord{EngineID: append([]byte{}, engineID...)}
		m.remoteEngines[string(engineID)] = rec
	}
	rec.observe(boots, engineTime)
}

func engineIDKey(engineID []byte, user string) string {
	return string(engineID) + "\x00" + user
}

func (m *SecurityModule) derivedKeysFor(u User, engineID []byte) (*derivedKeys, error) {
	key := engineIDKey(engineID, u.Name)

	m.keyMu.Lock()
	if keys, ok := m.keyCache[key]; ok {
		m.keyMu.Unlock()
		return keys, nil
	}
	m.keyMu.Unlock()

	keys := &derivedKeys{}
	var err error
	if u.AuthProtocol > NoAuth {
		keys.authKey, err = localizeKey(u.AuthProtocol, u.AuthPassphrase, string(engineID))
		if err != nil {
			return nil, err
		}
	}
	if u.PrivProtocol > NoPriv {
		keys.privKey, err = localizePrivKey(u.PrivProtocol, u.AuthProtocol, u.PrivPassphrase, string(engineID))
		if err != nil {
			return nil, err
		}
	}

	m.keyMu.Lock()
	m.keyCache[key] = keys
	m.keyMu.Unlock()
	return keys, nil
}

// saltCounterFor returns user's per-user salt counters, seeding a newly
// created one from crypto/rand rather than zero so that a process
// restart does not repeat the salt sequence a peer has already seen for
// this user against the same engine (spec.md §4.5).
func (m *SecurityModule) saltCounterFor(user string) *privSaltCounters {
	m.saltMu.Lock()
	defer m.saltMu.Unlock()
	c, ok := m.salts[user]
	if !ok {
		c = &privSaltCounters{}
		if seed, err := randomUint32(); err == nil {
			c.des = seed
		} else {
			m.logger.Printf("snmp: salt counter DES seed fell back to zero: %v", err)
		}
		if seed, err := randomUint64(); err == nil {
			c.aes = seed
		} else {
			m.logger.Printf("snmp: salt counter AES seed fell back to zero: %v", err)
		}
		m.salts[user] = c
	}
	return c
}

// resolveTargetEngine turns a caller-supplied target engineID into the
// (engineID, boots, time) triple to stamp on an outgoing message.
func (m *SecurityModule) resolveTargetEngine(targetEngineID []byte) (engineID []byte, boots, engineTime int32) {
	if len(targetEngineID) == 0 {
		return nil, 0, 0
	}
	if bytes.Equal(targetEngineID, m.localEngine.EngineID) {
		return m.localEngine.EngineID, m.localEngine.Boots, m.localEngine.Time()
	}
	if rec, ok := m.RemoteEngine(targetEngineID); ok {
		return targetEngineID, rec.Boots, rec.Time()
	}
	return targetEngineID, 0, 0
}

// PrepareOutgoing builds the HeaderData, USM security parameters and
// (if privacy is requested) the encrypted payload for an outgoing
// message carrying scoped. targetEngineID identifies whose authoritative
// identity msgAuthoritativeEngineID/Boots/Time should reflect: nil or
// empty means this is an engine-discovery probe (engineID left blank,
// boots/time zero, per RFC 3414 §4 so the remote agent fills them in on
// its reply); otherwise it is resolved against the local engine or a
// previously DiscoverRemoteEngine'd remote one, falling back to
// boots=0/time=0 for an engine this module has not yet discovered. The
// returned SNMPv3Message is ready to Encode.
func (m *SecurityModule) PrepareOutgoing(msgID, maxSize int32, level SecurityLevel, reportable bool, userName string, targetEngineID []byte, scoped ScopedPDU) (SNMPv3Message, error) {
	user, ok := m.users.User(targetEngineID, userName)
	if !ok {
		return SNMPv3Message{}, wrapf(ErrUnknownUserName, "no such user %q", userName)
	}
	if !user.securityLevel().AtLeast(level) {
		return SNMPv3Message{}, wrapf(ErrUnsupportedSecLevel, "user %q cannot provide level %s", userName, level)
	}

	header := HeaderData{
		MsgID:         msgID,
		MaxSize:       maxSize,
		Flags:         FlagsForLevel(level, reportable),
		SecurityModel: SecurityModelUSM,
	}

	engineID, boots, engineTime := m.resolveTargetEngine(targetEngineID)
	params := UsmSecurityParameters{
		AuthoritativeEngineID:    engineID,
		AuthoritativeEngineBoots: boots,
		AuthoritativeEngineTime:  engineTime,
		UserName:                 userName,
	}

	msg := SNMPv3Message{Header: header}

	if level == NoAuthNoPriv {
		msg.SecurityParameters = params.encode()
		msg.ScopedData = &scoped
		return msg, nil
	}

	keys, err := m.derivedKeysFor(user, engineID)
	if err != nil {
		return SNMPv3Message{}, err
	}

	if level == AuthPriv {
		var salt []byte
		if user.PrivProtocol == AES128 {
			salt = aesSaltParameters(m.saltCounterFor(userName).nextAESSalt())
		} else {
			salt = desSaltParameters(boots, m.saltCounterFor(userName).nextDESSalt())
		}
		params.PrivacyParameters = salt

		scopedBytes, err := scoped.encode()
		if err != nil {
			return SNMPv3Message{}, err
		}
		ciphertext, err := encryptScopedPDU(user.PrivProtocol, keys.privKey, scopedBytes, boots, engineTime, salt)
		if err != nil {
			return SNMPv3Message{}, err
		}
		msg.EncryptedData = ciphertext
	} else {
		msg.ScopedData = &scoped
	}

	// Authenticate over the fully-assembled message with a placeholder
	// digest of the right length, then patch the real digest in.
	params.AuthenticationParameters = make([]byte, user.AuthProtocol.digestLen())
	msg.SecurityParameters = params.encode()

	whole, err := msg.Encode()
	if err != nil {
		return SNMPv3Message{}, err
	}
	digest, err := signPacket(user.AuthProtocol, whole, keys.authKey)
	if err != nil {
		return SNMPv3Message{}, err
	}
	params.AuthenticationParameters = digest
	msg.SecurityParameters = params.encode()

	return msg, nil
}

// ProcessIncoming validates and, if necessary, decrypts an incoming
// SNMPv3Message's USM layer (spec.md §4.6/§4.8): it checks the security
// level, authenticates, checks the time window, and decrypts. On any
// rejection it returns the usmStats-backed Report PDU the caller should
// send back (nil if the message was not REPORTABLE).
func (m *SecurityModule) ProcessIncoming(raw []byte, msg *SNMPv3Message) (report *Report, err error) {
	params, perr := decodeUsmSecurityParameters(msg.SecurityParameters)
	if perr != nil {
		return nil, perr
	}

	level := msg.Header.Flags.Level()
	reportable := msg.Header.Flags.Reportable()
	requestID := int32(0)
	if msg.ScopedData != nil {
		requestID = msg.ScopedData.PDU.RequestID()
	}

	reject := func(cause usmStat, sentinel error, format string, args ...interface{}) (*Report, error) {
		var rep *Report
		if reportable {
			rep = reportFor(&m.stats, cause, requestID)
		} else {
			m.stats.bump(cause)
		}
		return rep, wrapf(sentinel, format, args...)
	}

	local := bytes.Equal(params.AuthoritativeEngineID, m.localEngine.EngineID)
	remoteRec, knownRemote := m.RemoteEngine(params.AuthoritativeEngineID)

	// An authenticated message from an engine we are neither ourselves
	// nor have ever discovered cannot be trusted: we have no (boots,
	// time) baseline to check it against, and no business deriving keys
	// for it. An unauthenticated message is how engine discovery itself
	// works (spec.md §4.8), so only gate the authenticated case.
	if level != NoAuthNoPriv && !local && !knownRemote {
		return reject(statUnknownEngineIDs, ErrUnknownEngineID, "unrecognized authoritative engine ID %x", params.AuthoritativeEngineID)
	}

	user, ok := m.users.User(params.AuthoritativeEngineID, params.UserName)
	if !ok {
		return reject(statUnknownUserNames, ErrUnknownUserName, "unknown user %q", params.UserName)
	}
	if !user.securityLevel().AtLeast(level) {
		return reject(statUnsupportedSecLevels, ErrUnsupportedSecLevel, "user %q cannot provide level %s", params.UserName, level)
	}

	keys, kerr := m.derivedKeysFor(user, params.AuthoritativeEngineID)
	if kerr != nil {
		return nil, kerr
	}

	if level != NoAuthNoPriv {
		digestLen := user.AuthProtocol.digestLen()
		signature := params.AuthenticationParameters
		zeroed := make([]byte, len(raw))
		copy(zeroed, raw)
		idx := findAuthPlaceholder(zeroed, signature)
		if idx >= 0 {
			for i := 0; i < digestLen; i++ {
				zeroed[idx+i] = 0
			}
		}
		ok, verr := verifyDigest(user.AuthProtocol, zeroed, keys.authKey, signature)
		if verr != nil {
			return nil, verr
		}
		if !ok {
			return reject(statWrongDigests, ErrWrongDigests, "authentication failed for user %q", params.UserName)
		}

		expectBoots, expectTime := m.localEngine.Boots, m.localEngine.Time()
		if !local {
			expectBoots, expectTime = remoteRec.Boots, remoteRec.Time()
		}
		if params.AuthoritativeEngineBoots != expectBoots {
			return reject(statNotInTimeWindows, ErrNotInTimeWindow, "engine boots mismatch")
		}
		delta := expectTime - params.AuthoritativeEngineTime
		if delta < -timeWindow || delta > timeWindow {
			return reject(statNotInTimeWindows, ErrNotInTimeWindow, "engine time outside %ds window", timeWindow)
		}

		// The digest and time window both check out: this is a live,
		// authenticated message from this engine, so refresh (or, for a
		// first unauthenticated contact already recorded elsewhere,
		// promote) our notion of its clock.
		if !local {
			m.DiscoverRemoteEngine(params.AuthoritativeEngineID, params.AuthoritativeEngineBoots, params.AuthoritativeEngineTime)
		}
	}

	if level == AuthPriv {
		if msg.EncryptedData == nil {
			return reject(statUnsupportedSecLevels, ErrUnsupportedSecLevel, "authPriv message has no encrypted payload")
		}
		plaintext, derr := decryptScopedPDU(user.PrivProtocol, keys.privKey, msg.EncryptedData, params.AuthoritativeEngineBoots, params.AuthoritativeEngineTime, params.PrivacyParameters)
		if derr != nil {
			return reject(statDecryptionErrors, ErrDecryptionError, "%v", derr)
		}
		scoped, rest, serr := decodeScopedPDU(plaintext)
		if serr != nil {
			return reject(statDecryptionErrors, ErrDecryptionError, "%v", serr)
		}
		if len(rest) != 0 {
			return reject(statDecryptionErrors, ErrDecryptionError, "%d trailing bytes after decrypted ScopedPDU", len(rest))
		}
		msg.ScopedData = &scoped
		msg.EncryptedData = nil
	}

	return nil, nil
}

// findAuthPlaceholder locates signature's position within raw so it can
// be re-zeroed before the caller recomputes the digest over the
// as-received bytes (mirroring the zero-then-patch pattern used to sign
// the message on the way out).
func findAuthPlaceholder(raw, signature []byte) int {
	if len(signature) == 0 {
		return -1
	}
	for i := 0; i+len(signature) <= len(raw); i++ {
		match := true
		for j := range signature {
			if raw[i+j] != signature[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
