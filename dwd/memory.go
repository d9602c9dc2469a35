package dwd

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
)

// BuildReadRequest formats a read-memory request: opcode 0x76 followed
// by (size:u16_le, addr:u32_le).
func BuildReadRequest(addr uint32, size int) ([]byte, error) {
	if size <= 0 || size > MaxReadChunk {
		return nil, errors.Errorf("dwd: read size %d out of range (1..%d)", size, MaxReadChunk)
	}
	buf := make([]byte, 7)
	buf[0] = byte(OpReadRequest)
	binary.LittleEndian.PutUint16(buf[1:3], uint16(size))
	binary.LittleEndian.PutUint32(buf[3:7], addr)
	return buf, nil
}

// ParseReadResponse extracts the data payload from a read-memory
// reply.
func ParseReadResponse(frame []byte) ([]byte, error) {
	if len(frame) < 4 || Opcode(frame[0]) != OpReadResponse {
		return nil, core.NewError(tag, "read-memory", core.KindProtocolViolation, errors.New("malformed read response"))
	}
	return frame[1:], nil
}

// BuildWriteRequest formats a write-memory request: opcode 0x78
// followed by (size:u16_le, addr:u32_le, data).
func BuildWriteRequest(addr uint32, data []byte) ([]byte, error) {
	if len(data) == 0 || len(data) > MaxWriteChunk {
		return nil, errors.Errorf("dwd: write size %d out of range (1..%d)", len(data), MaxWriteChunk)
	}
	buf := make([]byte, 7+len(data))
	buf[0] = byte(OpWriteRequest)
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(data)))
	binary.LittleEndian.PutUint32(buf[3:7], addr)
	copy(buf[7:], data)
	return buf, nil
}

// ParseWriteResponse validates a write-memory reply.
func ParseWriteResponse(frame []byte) error {
	if len(frame) < 4 || Opcode(frame[0]) != OpWriteResponse {
		return core.NewError(tag, "write-memory", core.KindProtocolViolation, errors.New("malformed write response"))
	}
	return nil
}

// ReadMemory reads size bytes at addr in one request.
func (c *Client) ReadMemory(addr uint32, size int) ([]byte, error) {
	req, err := BuildReadRequest(addr, size)
	if err != nil {
		return nil, err
	}
	reply, err := c.Transact(req)
	if err != nil {
		return nil, errors.Wrap(err, "dwd: read-memory")
	}
	return ParseReadResponse(reply)
}

// WriteMemory writes data at addr in one request.
func (c *Client) WriteMemory(addr uint32, data []byte) error {
	req, err := BuildWriteRequest(addr, data)
	if err != nil {
		return err
	}
	reply, err := c.Transact(req)
	if err != nil {
		return errors.Wrap(err, "dwd: write-memory")
	}
	return ParseWriteResponse(reply)
}

// PageSize satisfies ioengine.ReadAPI/WriteAPI. Both read and write
// share this method; callers driving writes through the engine should
// cap ioengine.WriteOp.PageSize at MaxWriteChunk themselves.
func (c *Client) PageSize() int { return MaxReadChunk }

// Read satisfies ioengine.ReadAPI.
func (c *Client) Read(ctx context.Context, addr uint32, length int, buf []byte, off int) error {
	data, err := c.ReadMemory(addr, length)
	if err != nil {
		return err
	}
	copy(buf[off:off+length], data)
	return nil
}

// Write satisfies ioengine.WriteAPI.
func (c *Client) Write(ctx context.Context, addr uint32, data []byte) error {
	return c.WriteMemory(addr, data)
}
