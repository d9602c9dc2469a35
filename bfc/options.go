package bfc

import (
	"time"

	"github.com/siemens-mobile-hacks/siecore/core"
)

// Config holds a Bus's tunables, set via functional options.
type Config struct {
	Logger         core.Logger
	DefaultTimeout time.Duration
	LocalAddr      byte
}

func defaultConfig() Config {
	return Config{
		Logger:         core.NopLogger{},
		DefaultTimeout: 2 * time.Second,
		LocalAddr:      0x01,
	}
}

// Option configures a Bus at construction.
type Option func(*Config)

// WithLogger attaches a structured logger.
func WithLogger(l core.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithDefaultTimeout overrides the per-exec reply timeout used when
// ExecOptions.Timeout is zero.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Config) { c.DefaultTimeout = d }
}

// WithLocalAddr sets the source address this Bus signs outgoing
// frames with.
func WithLocalAddr(addr byte) Option {
	return func(c *Config) { c.LocalAddr = addr }
}
