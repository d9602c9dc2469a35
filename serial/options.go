package serial

import (
	"time"

	"github.com/siemens-mobile-hacks/siecore/core"
)

// Config holds the tunables for an Async wrapper, set via functional
// options.
type Config struct {
	// PumpChunkSize is the size of the buffer the background pump
	// goroutine reads into on each iteration.
	PumpChunkSize int

	// PumpPollInterval is the read timeout the pump goroutine applies
	// to the underlying Port on each iteration; it bounds how quickly
	// Close() and baud updates take effect.
	PumpPollInterval time.Duration

	// Logger receives debug/error traces from the pump loop.
	Logger core.Logger
}

func defaultConfig() Config {
	return Config{
		PumpChunkSize:    4096,
		PumpPollInterval: 50 * time.Millisecond,
	}
}

// Option configures an Async at construction time.
type Option func(*Config)

// WithPumpChunkSize overrides the pump goroutine's read buffer size.
func WithPumpChunkSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.PumpChunkSize = n
		}
	}
}

// WithPumpPollInterval overrides how often the pump loop re-checks for
// shutdown and baud changes between reads.
func WithPumpPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PumpPollInterval = d
		}
	}
}

// WithLogger attaches a logger to the Async's internal pump loop.
func WithLogger(l core.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}
