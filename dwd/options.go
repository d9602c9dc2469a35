package dwd

import (
	"time"

	"github.com/siemens-mobile-hacks/siecore/core"
)

// Config holds a Link's tunables.
type Config struct {
	Logger       core.Logger
	ReplyTimeout time.Duration
	DrainWindow  time.Duration
}

func defaultConfig() Config {
	return Config{
		Logger:       core.NopLogger{},
		ReplyTimeout: 2 * time.Second,
		DrainWindow:  20 * time.Millisecond,
	}
}

// Option configures a Link at construction.
type Option func(*Config)

// WithLogger attaches a structured logger.
func WithLogger(l core.Logger) Option { return func(c *Config) { c.Logger = l } }

// WithReplyTimeout overrides how long Transact waits for a reply.
func WithReplyTimeout(d time.Duration) Option {
	return func(c *Config) { c.ReplyTimeout = d }
}
