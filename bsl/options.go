package bsl

import (
	"time"

	"github.com/siemens-mobile-hacks/siecore/core"
)

// Config tunes a Loader's scan timing, ignition polarity, and
// logging.
type Config struct {
	Logger core.Logger

	// DTROnDuration/DTROffDuration are the ignition toggle's asymmetric
	// on/off periods. 50ms/150ms by default.
	DTROnDuration  time.Duration
	DTROffDuration time.Duration

	// InvertPolarity flips which DTR level counts as "on" for phones
	// wired with inverted ignition sense.
	InvertPolarity bool

	// ScanAttempts bounds how many probe cycles Scan sends before
	// giving up.
	ScanAttempts int

	// ByteTimeout is how long Upload waits for the boot ROM's one-byte
	// ACK before treating it as a timeout (1s by default). Scan waits
	// for its probe reply for DTROnDuration instead.
	ByteTimeout time.Duration
}

func defaultConfig() Config {
	return Config{
		DTROnDuration:  50 * time.Millisecond,
		DTROffDuration: 150 * time.Millisecond,
		ScanAttempts:   40,
		ByteTimeout:    time.Second,
	}
}

// Option configures a Loader at construction time.
type Option func(*Config)

// WithLogger attaches a logger to the loader.
func WithLogger(l core.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithIgnitionTiming overrides the DTR on/off toggle periods.
func WithIgnitionTiming(on, off time.Duration) Option {
	return func(c *Config) {
		c.DTROnDuration = on
		c.DTROffDuration = off
	}
}

// WithInvertedPolarity flips the DTR sense used for ignition.
func WithInvertedPolarity() Option {
	return func(c *Config) { c.InvertPolarity = true }
}

// WithScanAttempts overrides how many probe cycles Scan tries.
func WithScanAttempts(n int) Option {
	return func(c *Config) { c.ScanAttempts = n }
}

// WithByteTimeout overrides the per-byte reply wait.
func WithByteTimeout(d time.Duration) Option {
	return func(c *Config) { c.ByteTimeout = d }
}
