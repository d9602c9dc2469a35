package chaos

import (
	"time"

	"github.com/siemens-mobile-hacks/siecore/core"
)

// Config holds the loader's tunables: a Logger, a ProgressCallback,
// and timeouts, plus the heartbeat cadence and adaptive-paging
// thresholds CHAOS needs that a simpler session-oriented protocol
// would not.
type Config struct {
	// Logger is used for logging operations (optional).
	Logger core.Logger

	// ProgressCallback is invoked during ReadFlash/WriteFlash to
	// report transfer progress (optional).
	ProgressCallback ProgressCallback

	// PingTimeout bounds how long a single PING/PONG round trip may
	// take, both for the initial connect probe and for recovery pings
	// after a page failure.
	PingTimeout time.Duration

	// ReplyTimeout bounds how long a command (other than a page
	// transaction) may take to answer.
	ReplyTimeout time.Duration

	// PageTimeout bounds a single page read/write transaction.
	PageTimeout time.Duration

	// HeartbeatInterval is how often a heartbeatByte is written while
	// no transaction is in flight.
	HeartbeatInterval time.Duration

	// InitialPageSize is the starting page size for ReadFlash and
	// WriteFlash.
	InitialPageSize int

	// MinPageSize is the floor adaptive shrinking will not go below.
	MinPageSize int

	// RetriesBeforeShrink is how many consecutive page failures at
	// one page size trigger a halving.
	RetriesBeforeShrink int

	// MaxRecoveryPings is how many pings are sent, after a page
	// failure, before the connection is declared lost.
	MaxRecoveryPings int

	// Retries is how many consecutive page failures beyond the first
	// the I/O engine tolerates before giving up on a transfer (the count
	// restarts after a successful page and after each halving),
	// independent of the per-failure recovery dance in MaxRecoveryPings.
	Retries int
}

func defaultConfig() Config {
	return Config{
		PingTimeout:         500 * time.Millisecond,
		ReplyTimeout:        2 * time.Second,
		PageTimeout:         3 * time.Second,
		HeartbeatInterval:   250 * time.Millisecond,
		InitialPageSize:     64 * 1024,
		MinPageSize:         128,
		RetriesBeforeShrink: 2,
		MaxRecoveryPings:    16,
		Retries:             8,
	}
}

// Option is a functional option for configuring a Loader.
type Option func(*Config)

// WithLogger sets a logger for the loader's operations.
func WithLogger(logger core.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithProgressCallback sets a callback invoked during ReadFlash and
// WriteFlash to report transfer progress.
func WithProgressCallback(cb ProgressCallback) Option {
	return func(c *Config) { c.ProgressCallback = cb }
}

// WithHeartbeatInterval overrides the default 250ms heartbeat cadence.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.HeartbeatInterval = d
		}
	}
}

// WithPageTimeout overrides the default per-page transaction timeout.
func WithPageTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PageTimeout = d
		}
	}
}

// WithReplyTimeout overrides the default non-page command timeout.
func WithReplyTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ReplyTimeout = d
		}
	}
}

// WithPageSizes overrides the starting and floor page sizes used by
// ReadFlash and WriteFlash.
func WithPageSizes(initial, min int) Option {
	return func(c *Config) {
		if initial > 0 {
			c.InitialPageSize = initial
		}
		if min > 0 {
			c.MinPageSize = min
		}
	}
}
