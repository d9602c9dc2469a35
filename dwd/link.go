package dwd

import (
	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
	"github.com/siemens-mobile-hacks/siecore/serial"
)

const tag = "dwd"

// Link drives DWD's AT#-tunneled frames over a connected serial port.
type Link struct {
	cfg  Config
	log  core.TaggedLogger
	port *serial.Async
}

// NewLink wraps port.
func NewLink(port *serial.Async, opts ...Option) *Link {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Link{cfg: cfg, log: core.NewTaggedLogger(tag, cfg.Logger), port: port}
}

// Transact encapsulates body, writes it, and reads back one
// encapsulated reply frame, decapsulating it before returning.
func (l *Link) Transact(body []byte) ([]byte, error) {
	if err := l.port.Write(encapsulate(body)); err != nil {
		return nil, errors.Wrap(err, "dwd: write")
	}
	wire, err := l.readWireFrame()
	if err != nil {
		return nil, err
	}
	reply, err := decapsulate(wire)
	if err != nil {
		return nil, core.NewError(tag, "transact", core.KindProtocolViolation, err)
	}
	return reply, nil
}

// readWireFrame reads bytes up to and including the trailing 0x0D,
// within the configured reply timeout.
func (l *Link) readWireFrame() ([]byte, error) {
	var buf []byte
	for {
		b, ok, err := l.port.ReadByte(l.cfg.ReplyTimeout)
		if err != nil {
			return nil, errors.Wrap(err, "dwd: read")
		}
		if !ok {
			return nil, core.NewError(tag, "transact", core.KindTimeout, core.ErrTimeout)
		}
		buf = append(buf, b)
		if b == trailerByte && len(buf) >= len(escapePrefix)+2 {
			return buf, nil
		}
	}
}

// drain discards up to n bytes, stopping as soon as no further byte
// arrives within the configured drain window.
func (l *Link) drain(n int) {
	for i := 0; i < n; i++ {
		if _, ok, _ := l.port.ReadByte(l.cfg.DrainWindow); !ok {
			return
		}
	}
}
