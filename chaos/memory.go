package chaos

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
	"github.com/siemens-mobile-hacks/siecore/flashmap"
	"github.com/siemens-mobile-hacks/siecore/ioengine"
)

// readPage issues one READ_FLASH transaction: 0x52 | addr:u32_be |
// size:u32_be, expecting data[size] | status:u16_le | chk:u16_le back.
func (l *Loader) readPage(ctx context.Context, addr uint32, size int) ([]byte, error) {
	var data []byte
	err := l.transact(func() error {
		req := make([]byte, 9)
		req[0] = byte(OpReadFlash)
		binary.BigEndian.PutUint32(req[1:5], addr)
		binary.BigEndian.PutUint32(req[5:9], uint32(size))
		if err := l.port.Write(req); err != nil {
			return errors.Wrap(err, "chaos: write read-flash request")
		}

		reply, err := l.port.Read(size+4, l.cfg.PageTimeout)
		if err != nil {
			return errors.Wrap(err, "chaos: read read-flash reply")
		}
		if len(reply) != size+4 {
			return core.NewError(tag, "read-page", core.KindTimeout, core.ErrTimeout)
		}

		body := reply[:size]
		status := binary.LittleEndian.Uint16(reply[size : size+2])
		chk := binary.LittleEndian.Uint16(reply[size+2 : size+4])

		if status != statusOK {
			return core.NewError(tag, "read-page", core.KindProtocolViolation,
				errors.Errorf("page status = 0x%04X, want 0x%04X", status, statusOK))
		}
		if got := xor16(body); got != chk {
			return core.NewError(tag, "read-page", core.KindIntegrityFailure,
				errors.Errorf("page checksum = 0x%04X, want 0x%04X", got, chk))
		}
		data = body
		return nil
	})
	return data, err
}

// writePage issues one WRITE_FLASH transaction: 0x46 | addr:u32_be |
// size:u32_be | data[size] | chk:u8, expecting status:u16_le back.
func (l *Loader) writePage(ctx context.Context, addr uint32, data []byte) error {
	return l.transact(func() error {
		req := make([]byte, 0, 9+len(data)+1)
		req = append(req, byte(OpWriteFlash))
		var addrBuf, sizeBuf [4]byte
		binary.BigEndian.PutUint32(addrBuf[:], addr)
		binary.BigEndian.PutUint32(sizeBuf[:], uint32(len(data)))
		req = append(req, addrBuf[:]...)
		req = append(req, sizeBuf[:]...)
		req = append(req, data...)
		req = append(req, xor8(data))

		if err := l.port.Write(req); err != nil {
			return errors.Wrap(err, "chaos: write write-flash request")
		}

		reply, err := l.port.Read(2, l.cfg.PageTimeout)
		if err != nil {
			return errors.Wrap(err, "chaos: read write-flash reply")
		}
		if len(reply) != 2 {
			return core.NewError(tag, "write-page", core.KindTimeout, core.ErrTimeout)
		}
		status := binary.LittleEndian.Uint16(reply)
		switch status {
		case statusOK:
			return nil
		case statusChecksumError:
			return core.NewError(tag, "write-page", core.KindIntegrityFailure,
				errors.New("phone reported checksum error"))
		default:
			return core.NewError(tag, "write-page", core.KindProtocolViolation,
				errors.Errorf("unexpected write status 0x%04X", status))
		}
	})
}

func xor16(data []byte) uint16 {
	var x uint16
	for _, b := range data {
		x ^= uint16(b)
	}
	return x
}

func xor8(data []byte) byte {
	var x byte
	for _, b := range data {
		x ^= b
	}
	return x
}

// chaosReadAPI adapts Loader.readPage to ioengine.ReadAPI, running the
// Recovery dance (busy-heartbeat, then up to MaxRecoveryPings
// pings) on every page failure before returning control to the
// engine's own retry/shrink logic.
type chaosReadAPI struct {
	loader *Loader
}

func (a chaosReadAPI) PageSize() int { return a.loader.cfg.InitialPageSize }

func (a chaosReadAPI) Read(ctx context.Context, addr uint32, length int, buf []byte, off int) error {
	data, err := a.loader.readPage(ctx, addr, length)
	if err != nil {
		if rerr := a.loader.recover(ctx); rerr != nil {
			return rerr
		}
		return err
	}
	copy(buf[off:off+length], data)
	return nil
}

// chaosWriteAPI mirrors chaosReadAPI for WRITE_FLASH.
type chaosWriteAPI struct {
	loader *Loader
}

func (a chaosWriteAPI) PageSize() int { return a.loader.cfg.InitialPageSize }

func (a chaosWriteAPI) Write(ctx context.Context, addr uint32, data []byte) error {
	err := a.loader.writePage(ctx, addr, data)
	if err != nil {
		if rerr := a.loader.recover(ctx); rerr != nil {
			return rerr
		}
		return err
	}
	return nil
}

func (l *Loader) adaptivePolicy() *ioengine.AdaptivePolicy {
	return &ioengine.AdaptivePolicy{
		RetriesBeforeShrink: l.cfg.RetriesBeforeShrink,
		SmallPageSize:       l.cfg.MinPageSize,
	}
}

// ReadFlash reads length bytes starting at addr via the shared I/O
// engine, with CHAOS's adaptive page shrinking and heartbeat-recovery
// policy.
func (l *Loader) ReadFlash(ctx context.Context, addr uint32, length int) (ioengine.Result, error) {
	return ioengine.Read(ctx, chaosReadAPI{loader: l}, ioengine.ReadOp{
		Addr:     addr,
		Length:   length,
		Align:    1,
		PageSize: l.cfg.InitialPageSize,
		Adaptive: l.adaptivePolicy(),
		Retries:  l.cfg.Retries,
		Progress: l.cfg.ProgressCallback,
	})
}

// WriteFlash writes data starting at addr, first splitting it at flash
// region boundaries via flashmap so a transfer never silently spans
// two regions with different erase semantics, then driving each
// region-aligned chunk through the shared I/O engine with the same
// adaptive/recovery policy as ReadFlash.
func (l *Loader) WriteFlash(ctx context.Context, addr uint32, data []byte) (ioengine.Result, error) {
	m, err := l.FlashMap(ctx)
	if err != nil {
		return ioengine.Result{}, err
	}
	chunks, err := flashmap.AlignToRegions(addr, uint32(len(data)), m)
	if err != nil {
		return ioengine.Result{}, err
	}

	var agg ioengine.Result
	cursor := 0
	for _, c := range chunks {
		chunkData := data[cursor : cursor+c.BufferSize]
		res, err := ioengine.Write(ctx, chaosWriteAPI{loader: l}, ioengine.WriteOp{
			Addr:     c.Addr + uint32(c.BufferOffset),
			Data:     chunkData,
			Align:    1,
			PageSize: l.cfg.InitialPageSize,
			Adaptive: l.adaptivePolicy(),
			Retries:  l.cfg.Retries,
			Progress: l.cfg.ProgressCallback,
		})
		agg.Written += res.Written
		agg.Cursor += res.Written
		agg.Errors += res.Errors
		if err != nil {
			return agg, err
		}
		if res.Canceled {
			agg.Canceled = true
			return agg, nil
		}
		cursor += c.BufferSize
	}
	return agg, nil
}
