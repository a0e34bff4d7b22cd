package snmp

import "time"

// config holds a MessageProcessor's tunables, set through Option values
// passed to NewMessageProcessor (spec.md §4.9).
type config struct {
	logger         Logger
	maxMsgSize     int32
	sweepInterval  time.Duration
	requestTimeout time.Duration
	passwordCache  bool
}

func defaultConfig() config {
	return config{
		logger:         discardLogger{},
		maxMsgSize:     65507,
		sweepInterval:  10 * time.Second,
		requestTimeout: 5 * time.Second,
		passwordCache:  true,
	}
}

// Option configures a MessageProcessor at construction time.
type Option func(*config)

// WithLogger sets the Logger used for debug/trace output. The default
// discards everything.
func WithLogger(l Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxMsgSize sets the msgMaxSize advertised in outgoing HeaderData.
func WithMaxMsgSize(n int32) Option {
	return func(c *config) { c.maxMsgSize = n }
}

// WithSweepInterval sets how often the outstanding-request cache is
// swept for stale entries (spec.md §9).
func WithSweepInterval(d time.Duration) Option {
	return func(c *config) { c.sweepInterval = d }
}

// WithRequestTimeout sets how long an outgoing confirmed request stays
// in the outstanding cache before a sweep discards it as stale.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *config) { c.requestTimeout = d }
}

// WithPasswordCaching enables or disables the password-to-key hash
// cache (see PasswordCaching); on by default. The cache is package-wide:
// NewMessageProcessor applies this setting through PasswordCaching, so
// it affects every MessageProcessor and SecurityModule in the process.
func WithPasswordCaching(enable bool) Option {
	return func(c *config) { c.passwordCache = enable }
}
