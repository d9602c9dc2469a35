package ebl

import (
	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
	"github.com/siemens-mobile-hacks/siecore/serial"
)

// Link drives the EBL request/response cycle over a serial port that
// BSL has already handed off to second-stage firmware.
type Link struct {
	cfg  Config
	log  core.TaggedLogger
	port *serial.Async
}

// NewLink constructs a Link over an already-opened serial.Async.
func NewLink(port *serial.Async, opts ...Option) *Link {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Link{cfg: cfg, log: core.NewTaggedLogger(tag, cfg.Logger), port: port}
}

// Transact writes one request packet for cmd/payload and reads back
// one reply packet, validating start token, cmd, checksum and end
// token per the package doc comment.
func (l *Link) Transact(cmd uint16, payload []byte) (Frame, error) {
	if err := l.port.Write(encodeFrame(cmd, payload)); err != nil {
		return Frame{}, errors.Wrap(err, "ebl: write request")
	}

	header, err := l.port.Read(headerSize, l.cfg.ReplyTimeout)
	if err != nil {
		return Frame{}, core.NewError(tag, "transact", core.KindTimeout, err)
	}
	size, err := decodeHeader(header, cmd)
	if err != nil {
		return Frame{}, err
	}

	body, err := l.port.Read(int(size)+trailerSize, l.cfg.ReplyTimeout)
	if err != nil {
		return Frame{}, core.NewError(tag, "transact", core.KindTimeout, err)
	}
	return decodeBody(cmd, size, body)
}
