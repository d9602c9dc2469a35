package bsl

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
	"github.com/siemens-mobile-hacks/siecore/serial"
)

const tag = "bsl"

// Loader drives the BSL boot-ROM handshake over an already-opened
// serial.Async, fixed at 115200.
type Loader struct {
	cfg  Config
	log  core.TaggedLogger
	port *serial.Async
}

// NewLoader constructs a Loader over port.
func NewLoader(port *serial.Async, opts ...Option) *Loader {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Loader{cfg: cfg, log: core.NewTaggedLogger(tag, cfg.Logger), port: port}
}

func (l *Loader) ignitionOn() bool  { return !l.cfg.InvertPolarity }
func (l *Loader) ignitionOff() bool { return l.cfg.InvertPolarity }

// Scan repeatedly sends "AT" while toggling DTR between ignition-on
// and ignition-off, until the boot ROM answers with 0xB0 or 0xC0, the
// attempt budget is exhausted, or ctx is cancelled.
func (l *Loader) Scan(ctx context.Context) (ScanResult, error) {
	for attempt := 0; attempt < l.cfg.ScanAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ScanResult{}, core.NewError(tag, "scan", core.KindCancelled, ctx.Err())
		default:
		}

		if err := l.port.SetSignals(serial.Signals{DTR: l.ignitionOn()}); err != nil {
			return ScanResult{}, errors.Wrap(err, "bsl: ignition on")
		}
		if err := l.port.Write([]byte("AT")); err != nil {
			return ScanResult{}, errors.Wrap(err, "bsl: write probe")
		}

		b, ok, err := l.port.ReadByte(l.cfg.DTROnDuration)
		if err != nil {
			return ScanResult{}, errors.Wrap(err, "bsl: read probe reply")
		}
		if ok {
			if cpu := CPU(b); cpu == CPUSGold || cpu == CPUSGoldLite {
				return ScanResult{CPU: cpu}, nil
			}
		}

		if err := l.port.SetSignals(serial.Signals{DTR: l.ignitionOff()}); err != nil {
			return ScanResult{}, errors.Wrap(err, "bsl: ignition off")
		}
		select {
		case <-ctx.Done():
			return ScanResult{}, core.NewError(tag, "scan", core.KindCancelled, ctx.Err())
		default:
		}
		time.Sleep(l.cfg.DTROffDuration)
	}
	return ScanResult{}, core.NewError(tag, "scan", core.KindTimeout, core.ErrTimeout)
}

// Upload frames code as 0x30 | len_lo | len_hi | code | xor8 and waits
// for the boot ROM's one-byte ACK.
func (l *Loader) Upload(ctx context.Context, code []byte) (UploadResult, error) {
	frame := make([]byte, 0, 3+len(code)+1)
	frame = append(frame, 0x30)
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(code)))
	frame = append(frame, lenBuf[:]...)
	frame = append(frame, code...)
	frame = append(frame, xor8(code))

	if err := l.port.Write(frame); err != nil {
		return UploadResult{}, errors.Wrap(err, "bsl: write payload")
	}

	b, ok, err := l.port.ReadByte(l.cfg.ByteTimeout)
	if err != nil {
		return UploadResult{}, errors.Wrap(err, "bsl: read ack")
	}
	if !ok {
		return UploadResult{}, core.NewError(tag, "upload", core.KindTimeout, core.ErrTimeout)
	}

	switch Ack(b) {
	case ackSuccessA, ackSuccessB:
		return UploadResult{Accepted: true}, nil
	case ackDeniedA, ackDeniedB:
		return UploadResult{Accepted: false}, core.NewError(tag, "upload", core.KindDenied,
			errors.Errorf("boot ROM denied payload (ack=0x%02X)", b))
	default:
		return UploadResult{}, core.NewError(tag, "upload", core.KindProtocolViolation,
			errors.Errorf("unexpected ack byte 0x%02X", b))
	}
}

func xor8(data []byte) byte {
	var x byte
	for _, b := range data {
		x ^= b
	}
	return x
}
