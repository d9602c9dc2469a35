package cgsn

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/at"
	"github.com/siemens-mobile-hacks/siecore/core"
)

const tag = "cgsn"

// Client drives CGSN's memory peek/poke/execute commands over an
// at.Channel already attached to a connected phone.
type Client struct {
	ch      *at.Channel
	log     core.TaggedLogger
	Timeout time.Duration
}

// NewClient wraps ch. Timeout defaults to 2s if zero.
func NewClient(ch *at.Channel, logger core.Logger) *Client {
	return &Client{ch: ch, log: core.NewTaggedLogger(tag, logger), Timeout: 2 * time.Second}
}

func (c *Client) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 2 * time.Second
	}
	return c.Timeout
}

// ReadBytes returns length bytes starting at addr.
func (c *Client) ReadBytes(ctx context.Context, addr uint32, length int) ([]byte, error) {
	text, err := buildReadCmd(addr, length)
	if err != nil {
		return nil, err
	}
	resp, err := c.ch.Send(ctx, at.Command{
		Text: text, Kind: at.KindBinary, BinarySize: 1 + length, Timeout: c.timeout(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "cgsn: read")
	}
	if len(resp.Binary) < 1 || resp.Binary[0] != ackByte {
		return nil, core.NewError(tag, "read", core.KindProtocolViolation, errors.New("missing ACK byte"))
	}
	return resp.Binary[1:], nil
}

// WriteBytes pokes data at addr.
func (c *Client) WriteBytes(ctx context.Context, addr uint32, data []byte) error {
	text, err := buildWriteCmd(addr, data)
	if err != nil {
		return err
	}
	_, err = c.ch.Send(ctx, at.Command{Text: text, Kind: at.KindDefault, Timeout: c.timeout()})
	if err != nil {
		return errors.Wrap(err, "cgsn: write")
	}
	return nil
}

// Execute runs code at addr with the given initial register values
// and returns r0..r12 plus cpsr (14 words).
func (c *Client) Execute(ctx context.Context, addr uint32, regs []uint32) ([14]uint32, error) {
	var out [14]uint32
	text, err := buildExecuteCmd(addr, regs)
	if err != nil {
		return out, err
	}
	resp, err := c.ch.Send(ctx, at.Command{
		Text: text, Kind: at.KindBinary, BinarySize: 1 + 14*4, Timeout: c.timeout(),
	})
	if err != nil {
		return out, errors.Wrap(err, "cgsn: execute")
	}
	if len(resp.Binary) < 1 || resp.Binary[0] != ackByte {
		return out, core.NewError(tag, "execute", core.KindProtocolViolation, errors.New("missing ACK byte"))
	}
	body := resp.Binary[1:]
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(body[i*4 : i*4+4])
	}
	return out, nil
}

// BulkQuery reads one u32 word at each of addrs in a single command.
func (c *Client) BulkQuery(ctx context.Context, addrs []uint32) ([]uint32, error) {
	text, err := buildBulkQueryCmd(addrs)
	if err != nil {
		return nil, err
	}
	resp, err := c.ch.Send(ctx, at.Command{
		Text: text, Kind: at.KindBinary, BinarySize: 1 + 4*len(addrs), Timeout: c.timeout(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "cgsn: bulk query")
	}
	if len(resp.Binary) < 1 || resp.Binary[0] != ackByte {
		return nil, core.NewError(tag, "bulk-query", core.KindProtocolViolation, errors.New("missing ACK byte"))
	}
	body := resp.Binary[1:]
	out := make([]uint32, len(addrs))
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(body[i*4 : i*4+4])
	}
	return out, nil
}

// PageSize satisfies ioengine.ReadAPI/WriteAPI so a Client can drive
// large transfers through the adaptive I/O engine. Read uses the
// 512-byte ceiling; callers driving Write through the engine should
// cap ioengine.WriteOp.PageSize at MaxWriteSize themselves, since
// ReadAPI and WriteAPI share this one PageSize method.
func (c *Client) PageSize() int { return MaxReadSize }

// Read satisfies ioengine.ReadAPI.
func (c *Client) Read(ctx context.Context, addr uint32, length int, buf []byte, off int) error {
	data, err := c.ReadBytes(ctx, addr, length)
	if err != nil {
		return err
	}
	copy(buf[off:off+length], data)
	return nil
}

// Write satisfies ioengine.WriteAPI.
func (c *Client) Write(ctx context.Context, addr uint32, data []byte) error {
	return c.WriteBytes(ctx, addr, data)
}
