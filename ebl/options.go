package ebl

import (
	"time"

	"github.com/siemens-mobile-hacks/siecore/core"
)

// Config tunes a Link's timing and logging.
type Config struct {
	Logger        core.Logger
	ReplyTimeout  time.Duration
}

func defaultConfig() Config {
	return Config{ReplyTimeout: 2 * time.Second}
}

// Option configures a Link at construction time.
type Option func(*Config)

// WithLogger attaches a logger to the link.
func WithLogger(l core.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithReplyTimeout overrides how long Transact waits for a complete
// reply packet.
func WithReplyTimeout(d time.Duration) Option {
	return func(c *Config) { c.ReplyTimeout = d }
}
