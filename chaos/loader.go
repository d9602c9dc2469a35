package chaos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
	"github.com/siemens-mobile-hacks/siecore/serial"
)

const tag = "chaos"

// Loader drives a CHAOS resident loader over an already-opened
// serial.Async: a thin set of request/reply methods plus a bulk
// transfer that composes over the shared I/O engine.
type Loader struct {
	cfg  Config
	log  core.TaggedLogger
	port *serial.Async
	hb   *heartbeat
}

// NewLoader constructs a Loader over port. The heartbeat is not
// started until Start is called, since the resident loader has not
// announced itself (Hello) yet.
func NewLoader(port *serial.Async, opts ...Option) *Loader {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Loader{
		cfg:  cfg,
		log:  core.NewTaggedLogger(tag, cfg.Logger),
		port: port,
	}
}

// Start begins the heartbeat goroutine. Call after Hello succeeds.
func (l *Loader) Start() {
	if l.hb != nil {
		return
	}
	l.hb = newHeartbeat(l.port, l.cfg.HeartbeatInterval)
	l.hb.start()
}

// Stop halts the heartbeat goroutine. Call before Quit or when
// abandoning the session.
func (l *Loader) Stop() {
	if l.hb == nil {
		return
	}
	l.hb.stop()
	l.hb = nil
}

// transact suspends the heartbeat for the duration of fn: heartbeat
// must be stopped before any request/response transaction and resumed
// after.
func (l *Loader) transact(fn func() error) error {
	if l.hb != nil {
		l.hb.suspend()
		defer l.hb.resume()
	}
	return fn()
}

// Hello waits for the resident loader's single 0xA5 announcement,
// sent once after BSL hands control to it.
func (l *Loader) Hello(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return core.NewError(tag, "hello", core.KindCancelled, ctx.Err())
	default:
	}
	b, ok, err := l.port.ReadByte(l.cfg.ReplyTimeout)
	if err != nil {
		return errors.Wrap(err, "chaos: read hello")
	}
	if !ok {
		return core.NewError(tag, "hello", core.KindTimeout, core.ErrTimeout)
	}
	if Opcode(b) != OpHello {
		return core.NewError(tag, "hello", core.KindProtocolViolation,
			errors.Errorf("unexpected hello byte 0x%02X", b))
	}
	return nil
}

// Ping sends PING and waits for PONG within PingTimeout.
func (l *Loader) Ping(ctx context.Context) error {
	return l.transact(func() error {
		if err := l.port.Write([]byte{byte(OpPing)}); err != nil {
			return errors.Wrap(err, "chaos: write ping")
		}
		b, ok, err := l.port.ReadByte(l.cfg.PingTimeout)
		if err != nil {
			return errors.Wrap(err, "chaos: read pong")
		}
		if !ok {
			return core.NewError(tag, "ping", core.KindTimeout, core.ErrTimeout)
		}
		if Opcode(b) != OpPong {
			return core.NewError(tag, "ping", core.KindProtocolViolation,
				errors.Errorf("unexpected pong byte 0x%02X", b))
		}
		return nil
	})
}

// alive is a best-effort single-shot liveness probe used during page
// failure recovery; unlike Ping it never returns a protocol-violation
// error for an unrecognized byte, only success/failure.
func (l *Loader) alive(ctx context.Context) bool {
	err := l.transact(func() error {
		if err := l.port.Write([]byte{byte(OpPing)}); err != nil {
			return err
		}
		b, ok, err := l.port.ReadByte(l.cfg.PingTimeout)
		if err != nil || !ok || Opcode(b) != OpPong {
			return core.ErrTimeout
		}
		return nil
	})
	return err == nil
}

// SetBaudrate renegotiates the link speed: SET_BAUDRATE -> 0x68 ->
// (caller reconfigures the local port to newBaud) -> SET_BAUDRATE_ACK
// -> 0x48. The target baud is carried only on the local serial.Async;
// CHAOS's wire opcode takes no parameter, so the phone and host must
// already agree out of band on which rate follows.
func (l *Loader) SetBaudrate(ctx context.Context, newBaud int) error {
	return l.transact(func() error {
		if err := l.port.Write([]byte{byte(OpSetBaudrate)}); err != nil {
			return errors.Wrap(err, "chaos: write set-baudrate")
		}
		b, ok, err := l.port.ReadByte(l.cfg.ReplyTimeout)
		if err != nil {
			return errors.Wrap(err, "chaos: read set-baudrate ack1")
		}
		if !ok || Opcode(b) != OpSetBaudrateAck1 {
			return core.NewError(tag, "set-baudrate", core.KindProtocolViolation,
				errors.Errorf("unexpected ack1 byte 0x%02X", b))
		}

		if err := l.port.UpdateBaud(newBaud); err != nil {
			return errors.Wrap(err, "chaos: update local baud")
		}

		if err := l.port.Write([]byte{byte(OpSetBaudrateAck2)}); err != nil {
			return errors.Wrap(err, "chaos: write set-baudrate ack2")
		}
		b, ok, err = l.port.ReadByte(l.cfg.ReplyTimeout)
		if err != nil {
			return errors.Wrap(err, "chaos: read set-baudrate confirm")
		}
		if !ok || Opcode(b) != OpSetBaudrate {
			return core.NewError(tag, "set-baudrate", core.KindProtocolViolation,
				errors.Errorf("unexpected confirm byte 0x%02X", b))
		}
		return nil
	})
}

// Quit sends QUIT, releasing the resident loader. No reply is
// defined; Stop the heartbeat before calling Quit and close the port
// afterward.
func (l *Loader) Quit(ctx context.Context) error {
	return l.transact(func() error {
		if err := l.port.Write([]byte{byte(OpQuit)}); err != nil {
			return errors.Wrap(err, "chaos: write quit")
		}
		return nil
	})
}

// Test sends TEST and returns the single reply byte the loader's
// self-check produces.
func (l *Loader) Test(ctx context.Context) (byte, error) {
	var result byte
	err := l.transact(func() error {
		if err := l.port.Write([]byte{byte(OpTest)}); err != nil {
			return errors.Wrap(err, "chaos: write test")
		}
		b, ok, err := l.port.ReadByte(l.cfg.ReplyTimeout)
		if err != nil {
			return errors.Wrap(err, "chaos: read test reply")
		}
		if !ok {
			return core.NewError(tag, "test", core.KindTimeout, core.ErrTimeout)
		}
		result = b
		return nil
	})
	return result, err
}

// GetInfo sends GET_INFO and parses the fixed 128-byte record.
func (l *Loader) GetInfo(ctx context.Context) (InfoRecord, error) {
	var rec InfoRecord
	err := l.transact(func() error {
		if err := l.port.Write([]byte{byte(OpGetInfo)}); err != nil {
			return errors.Wrap(err, "chaos: write get-info")
		}
		buf, err := l.port.Read(infoRecordSize, l.cfg.ReplyTimeout)
		if err != nil {
			return errors.Wrap(err, "chaos: read info record")
		}
		if len(buf) != infoRecordSize {
			return core.NewError(tag, "get-info", core.KindTimeout, core.ErrTimeout)
		}
		rec, err = parseInfoRecord(buf)
		return err
	})
	return rec, err
}

// recover is run after a page transaction fails: it suspends the
// background heartbeat and busy-heartbeats until PageTimeout elapses
// (keeping the loader from dropping out of its command loop while the
// link settles), then pings up to
// MaxRecoveryPings times. A successful ping means the link survived
// and the caller's page retry may proceed; exhausting the budget means
// the connection is lost.
func (l *Loader) recover(ctx context.Context) error {
	deadline := time.Now().Add(l.cfg.PageTimeout)
	ticker := time.NewTicker(l.cfg.HeartbeatInterval)
	defer ticker.Stop()
	if l.hb != nil {
		l.hb.suspend()
		defer l.hb.resume()
	}
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return core.NewError(tag, "recover", core.KindCancelled, ctx.Err())
		case <-ticker.C:
			_ = l.port.Write([]byte{heartbeatByte})
		}
	}

	for attempt := 0; attempt < l.cfg.MaxRecoveryPings; attempt++ {
		select {
		case <-ctx.Done():
			return core.NewError(tag, "recover", core.KindCancelled, ctx.Err())
		default:
		}
		if l.alive(ctx) {
			return nil
		}
	}
	return core.NewError(tag, "recover", core.KindTransportClosed, core.ErrPortClosed)
}
