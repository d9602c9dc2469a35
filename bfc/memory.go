package bfc

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
)

const (
	cmdReadMemory byte = 0x01
	dstEngine     byte = 0x06
)

// MaxReadChunk is the largest single ReadMemory call; larger
// transfers are driven through ioengine against the Read/PageSize
// adapter below.
const MaxReadChunk = 32 * 1024

// memoryReplyParser accumulates the readMemory reply: a leading 2-byte
// ACK frame, then one or more SINGLE/MULTIPLE frames whose payload
// (minus a 1-byte continuation index for MULTIPLE) fills the buffer
// until offset reaches the requested length.
type memoryReplyParser struct {
	buf    []byte
	offset int
	want   int
	gotAck bool
}

func (p *memoryReplyParser) Feed(f Frame) (bool, error) {
	if !p.gotAck {
		if len(f.Payload) < 2 || f.Payload[0] != cmdReadMemory || f.Payload[1] != 0x00 {
			return false, core.NewError(tag, "read-memory", core.KindProtocolViolation, errors.New("missing read ack"))
		}
		p.gotAck = true
		return p.offset >= p.want, nil
	}

	payload := f.Payload
	if f.Type == TypeMultiple {
		if len(payload) == 0 {
			return false, core.NewError(tag, "read-memory", core.KindProtocolViolation, errors.New("empty multiple frame"))
		}
		payload = payload[1:]
	}
	n := copy(p.buf[p.offset:p.want], payload)
	p.offset += n
	return p.offset >= p.want, nil
}

// ReadMemory reads length bytes starting at addr through the phone's
// memory engine (dst 0x06). length must not exceed MaxReadChunk.
func (b *Bus) ReadMemory(ctx context.Context, addr uint32, length int) ([]byte, error) {
	if length <= 0 || length > MaxReadChunk {
		return nil, errors.Errorf("bfc: read-memory length %d out of range (1..%d)", length, MaxReadChunk)
	}
	payload := make([]byte, 9)
	payload[0] = cmdReadMemory
	binary.LittleEndian.PutUint32(payload[1:5], addr)
	binary.LittleEndian.PutUint32(payload[5:9], uint32(length))

	parser := &memoryReplyParser{buf: make([]byte, length), want: length}
	_, err := b.Exec(ctx, dstEngine, payload, ExecOptions{Type: TypeSingle, CRC: true, Parser: parser, Auth: true})
	if err != nil {
		return nil, errors.Wrap(err, "bfc: read-memory")
	}
	return parser.buf, nil
}

// PageSize satisfies ioengine.ReadAPI.
func (b *Bus) PageSize() int { return MaxReadChunk }

// Read satisfies ioengine.ReadAPI, letting large transfers drive
// through the adaptive retry/shrink engine.
func (b *Bus) Read(ctx context.Context, addr uint32, length int, buf []byte, off int) error {
	data, err := b.ReadMemory(ctx, addr, length)
	if err != nil {
		return err
	}
	copy(buf[off:off+length], data)
	return nil
}
