package bfc

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
	"github.com/siemens-mobile-hacks/siecore/serial"
)

const tag = "bfc"

// AuthCache remembers which destinations have already passed BFC's
// auth challenge, sticky for the connection's lifetime rather than a
// bare map so it can be explicitly cleared on reconnect.
type AuthCache struct {
	mu   sync.Mutex
	seen map[byte]bool
}

func newAuthCache() *AuthCache { return &AuthCache{seen: make(map[byte]bool)} }

func (a *AuthCache) has(dst byte) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seen[dst]
}

func (a *AuthCache) mark(dst byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen[dst] = true
}

// Clear drops every cached authentication.
func (a *AuthCache) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = make(map[byte]bool)
}

// Parser accumulates a reply across one or more matching frames. Feed
// is called once per inbound frame addressed to the receiver's dst;
// it returns done=true once the reply is complete.
type Parser interface {
	Feed(f Frame) (done bool, err error)
}

// singlePayloadParser is the default parser: the exec contract
// completes on the first matching frame.
type singlePayloadParser struct {
	payload []byte
}

func (p *singlePayloadParser) Feed(f Frame) (bool, error) {
	p.payload = f.Payload
	return true, nil
}

// receiverSlot is a one-shot pending receiver for one dst. At most one
// is live per dst; exec calls addressing a busy dst wait for the
// prior receiver to complete before registering their own.
type receiverSlot struct {
	parser Parser
	done   chan error
}

// ExecOptions configures a single Bus transaction.
type ExecOptions struct {
	Type    FrameType
	CRC     bool
	Ack     bool
	Auth    bool
	Parser  Parser
	Timeout time.Duration
}

// Bus multiplexes one serial port across many logical destinations,
// dispatching inbound frames to per-dst receivers and auto-ACKing
// frames that request it.
type Bus struct {
	cfg  Config
	log  core.TaggedLogger
	port *serial.Async

	cancelSub func()

	mu      sync.Mutex
	waiters map[byte]*receiverSlot
	auth    *AuthCache
}

// NewBus constructs a Bus over port. Call Start to begin dispatching.
func NewBus(port *serial.Async, opts ...Option) *Bus {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Bus{
		cfg:     cfg,
		log:     core.NewTaggedLogger(tag, cfg.Logger),
		port:    port,
		waiters: make(map[byte]*receiverSlot),
		auth:    newAuthCache(),
	}
}

// Start attaches the bus's frame-dispatch loop to the port's raw data
// subscription. This spawns a background goroutine on the caller's
// behalf, which runs until Stop.
func (b *Bus) Start() {
	sub, cancel := b.port.Subscribe()
	b.cancelSub = cancel
	go b.loop(sub)
}

// Stop detaches the dispatch loop and fails every pending receiver.
func (b *Bus) Stop() {
	if b.cancelSub != nil {
		b.cancelSub()
	}
	b.failAll(core.NewError(tag, "stop", core.KindTransportClosed, core.ErrPortClosed))
}

func (b *Bus) loop(sub <-chan serial.Event) {
	sc := &scanner{}
	for ev := range sub {
		switch ev.Kind {
		case serial.EventData:
			sc.feed(ev.Data)
			for {
				f, ok, err := sc.next()
				if err != nil {
					b.log.Error("frame resync", "err", err)
					continue
				}
				if !ok {
					break
				}
				b.dispatch(f)
			}
		case serial.EventClose, serial.EventError:
			b.failAll(core.NewError(tag, "loop", core.KindTransportClosed, core.ErrPortClosed))
			return
		}
	}
}

// dispatch routes an inbound frame to the receiver registered for the
// subsystem that sent it. Frames travel dst=local-address,
// src=subsystem-address on the way back, so the per-destination
// receiver table (keyed by the subsystem address used to address the
// original request) is matched against the reply's Src field.
func (b *Bus) dispatch(f Frame) {
	if f.hasFlag(FlagAck) {
		b.sendAck(f.Src)
	}

	b.mu.Lock()
	slot := b.waiters[f.Src]
	b.mu.Unlock()
	if slot == nil {
		return
	}
	done, err := slot.parser.Feed(f)
	if err != nil {
		b.complete(f.Src, slot, err)
		return
	}
	if done {
		b.complete(f.Src, slot, nil)
	}
}

func (b *Bus) complete(dst byte, slot *receiverSlot, err error) {
	b.mu.Lock()
	if b.waiters[dst] == slot {
		delete(b.waiters, dst)
	}
	b.mu.Unlock()
	select {
	case slot.done <- err:
	default:
	}
}

func (b *Bus) failAll(err error) {
	b.mu.Lock()
	waiters := b.waiters
	b.waiters = make(map[byte]*receiverSlot)
	b.mu.Unlock()
	for _, slot := range waiters {
		select {
		case slot.done <- err:
		default:
		}
	}
}

// sendAck replies to an ACK-flagged frame: type=ack, crc
// flag set, payload 0x15 0x01.
func (b *Bus) sendAck(dst byte) {
	frame := encodeFrame(Frame{Dst: dst, Src: b.cfg.LocalAddr, Type: TypeAck, Flags: FlagCRC, Payload: []byte{0x15, 0x01}})
	if err := b.port.Write(frame); err != nil {
		b.log.Error("auto-ack write failed", "err", err)
	}
}

// register installs the receiver for dst, waiting out any prior
// pending receiver addressing the same dst.
func (b *Bus) register(dst byte, parser Parser) *receiverSlot {
	for {
		b.mu.Lock()
		prev := b.waiters[dst]
		if prev == nil {
			slot := &receiverSlot{parser: parser, done: make(chan error, 1)}
			b.waiters[dst] = slot
			b.mu.Unlock()
			return slot
		}
		b.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
}

// Exec sends payload to dst and waits for opts.Parser (or the default
// single-frame parser) to signal completion, matching the exec contract.
func (b *Bus) Exec(ctx context.Context, dst byte, payload []byte, opts ExecOptions) ([]byte, error) {
	if opts.Auth && !b.auth.has(dst) {
		if err := b.sendAuth(ctx, dst); err != nil {
			return nil, err
		}
		b.auth.mark(dst)
	}

	parser := opts.Parser
	single, isSingle := (*singlePayloadParser)(nil), false
	if parser == nil {
		single = &singlePayloadParser{}
		parser = single
		isSingle = true
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = b.cfg.DefaultTimeout
	}

	slot := b.register(dst, parser)

	flags := Flag(0)
	if opts.CRC {
		flags |= FlagCRC
	}
	if opts.Ack {
		flags |= FlagAck
	}
	frame := encodeFrame(Frame{Dst: dst, Src: b.cfg.LocalAddr, Type: opts.Type, Flags: flags, Payload: payload})
	if err := b.port.Write(frame); err != nil {
		b.complete(dst, slot, err)
		return nil, errors.Wrap(err, "bfc: write")
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-slot.done:
		if err != nil {
			return nil, err
		}
		if isSingle {
			return single.payload, nil
		}
		return nil, nil
	case <-timer.C:
		timeoutErr := core.NewError(tag, "exec", core.KindTimeout, core.ErrTimeout)
		b.complete(dst, slot, timeoutErr)
		return nil, timeoutErr
	case <-ctx.Done():
		cancelErr := core.NewError(tag, "exec", core.KindCancelled, ctx.Err())
		b.complete(dst, slot, cancelErr)
		return nil, cancelErr
	}
}

// sendAuth performs the STATUS-frame auth challenge, accepting the
// reply 0x43 0x11 at offset 0.
func (b *Bus) sendAuth(ctx context.Context, dst byte) error {
	resp, err := b.Exec(ctx, dst, []byte{0x80, 0x11}, ExecOptions{Type: TypeStatus, Timeout: b.cfg.DefaultTimeout})
	if err != nil {
		return errors.Wrap(err, "bfc: auth")
	}
	if len(resp) < 2 || resp[0] != 0x43 || resp[1] != 0x11 {
		return core.NewError(tag, "auth", core.KindAuthDenied, errors.New("unexpected auth reply"))
	}
	return nil
}

// IsAuthDenied reports whether err is a BFC authentication rejection.
func IsAuthDenied(err error) bool { return core.Is(err, core.KindAuthDenied) }
