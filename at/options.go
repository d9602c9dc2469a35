package at

import (
	"time"

	"github.com/siemens-mobile-hacks/siecore/core"
)

// Config tunes a Channel's timing and logging. Mirrors the
// functional-options shape used throughout this module (see
// serial.Config).
type Config struct {
	Logger core.Logger
	// EOL is the line terminator written after a Command's Text and
	// used to split incoming lines. CRLF for every phone this module
	// talks to.
	EOL string
}

func defaultConfig() Config {
	return Config{EOL: "\r\n"}
}

// Option configures a Channel at construction time.
type Option func(*Config)

// WithLogger attaches a logger to the channel.
func WithLogger(l core.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithEOL overrides the line terminator. Only ever needed for test
// doubles; every real phone interface uses CRLF.
func WithEOL(eol string) Option {
	return func(c *Config) { c.EOL = eol }
}

// DefaultHandshakeAttempts is how many times Handshake retries
// "ATQ0 V1 E0" before giving up.
const DefaultHandshakeAttempts = 5

// DefaultHandshakeTimeout is the per-attempt timeout Handshake uses.
const DefaultHandshakeTimeout = 300 * time.Millisecond
