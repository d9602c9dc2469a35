package serial

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
)

const tag = "serial"

// Async wraps a Port with bounded, byte-accurate reads, a background
// pump goroutine that keeps bytes flowing even when no foreground Read
// is outstanding, and a fanout of data/close/error/readable events for
// protocols (at.Channel, bfc.Bus) that need to consume unsolicited
// bytes.
type Async struct {
	cfg  Config
	log  core.TaggedLogger
	port Port

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	baud   int
	closed bool
	closeErr error

	writeMu sync.Mutex

	subMu sync.Mutex
	subs  map[int]chan Event
	nextSub int

	pumpDone chan struct{}
}

// Open wraps port and starts the background pump goroutine. baud is
// the mode the port is assumed to already be configured for; use
// UpdateBaud to change it later.
func Open(port Port, baud int, opts ...Option) *Async {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	a := &Async{
		cfg:      cfg,
		log:      core.NewTaggedLogger(tag, cfg.Logger),
		port:     port,
		baud:     baud,
		subs:     make(map[int]chan Event),
		pumpDone: make(chan struct{}),
	}
	a.cond = sync.NewCond(&a.mu)
	go a.pump()
	return a
}

// Baud returns the baud rate Async believes the port is configured
// for. Reconfigure with UpdateBaud, not by mutating the Port directly.
func (a *Async) Baud() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.baud
}

func (a *Async) pump() {
	defer close(a.pumpDone)
	chunk := make([]byte, a.cfg.PumpChunkSize)
	for {
		if err := a.port.SetReadTimeout(a.cfg.PumpPollInterval); err != nil {
			a.fail(errors.Wrap(err, "set read timeout"))
			return
		}
		n, err := a.port.Read(chunk)
		if a.isClosed() {
			return
		}
		if err != nil {
			a.fail(errors.Wrap(err, "pump read"))
			return
		}
		if n > 0 {
			data := append([]byte(nil), chunk[:n]...)
			a.mu.Lock()
			a.buf = append(a.buf, data...)
			a.cond.Broadcast()
			a.mu.Unlock()
			a.log.Debug("pumped bytes", "n", n)
			a.publish(Event{Kind: EventReadable})
			a.publish(Event{Kind: EventData, Data: data})
		}
	}
}

func (a *Async) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *Async) fail(err error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.closeErr = err
	a.cond.Broadcast()
	a.mu.Unlock()
	a.log.Error("port failed", "err", err)
	a.publish(Event{Kind: EventError, Err: err})
	a.publish(Event{Kind: EventClose, Err: err})
}

// Read blocks until n bytes are available, the port closes, or timeout
// elapses, whichever comes first. It returns the bytes read so far
// (possibly fewer than n on timeout or close). When fewer than n bytes
// come back because the port has closed, it also returns an error: a
// KindTransportClosed error after Close, or the driver's error after
// the pump failed.
func (a *Async) Read(n int, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	a.mu.Lock()
	defer a.mu.Unlock()

	for len(a.buf) < n && !a.closed {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		a.waitUntil(deadline)
	}

	take := n
	if len(a.buf) < take {
		take = len(a.buf)
	}
	out := append([]byte(nil), a.buf[:take]...)
	a.buf = a.buf[take:]

	if take < n && a.closed && a.closeErr != nil {
		return out, errors.Wrap(a.closeErr, "read")
	}
	return out, nil
}

// ReadByte waits up to timeout for a single byte. ok is false on
// timeout or close with no byte pending.
func (a *Async) ReadByte(timeout time.Duration) (b byte, ok bool, err error) {
	buf, err := a.Read(1, timeout)
	if len(buf) == 1 {
		return buf[0], true, err
	}
	return 0, false, err
}

// waitUntil blocks on the condition variable until woken (by new data,
// close, or the deadline timer below) or the deadline passes. Caller
// must hold a.mu.
func (a *Async) waitUntil(deadline time.Time) {
	timer := time.AfterFunc(time.Until(deadline), func() {
		a.mu.Lock()
		a.cond.Broadcast()
		a.mu.Unlock()
	})
	defer timer.Stop()
	a.cond.Wait()
}

// Write sends p to the underlying port. Writes are fire-and-forget at
// the byte level; callers impose their own ACK windows on top.
func (a *Async) Write(p []byte) error {
	if a.isClosed() {
		return core.NewError(tag, "write", core.KindTransportClosed, core.ErrPortClosed)
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	_, err := a.port.Write(p)
	if err != nil {
		return errors.Wrap(err, "write")
	}
	return nil
}

// SetSignals toggles DTR/RTS on the underlying port.
func (a *Async) SetSignals(s Signals) error {
	if a.isClosed() {
		return core.NewError(tag, "set-signals", core.KindTransportClosed, core.ErrPortClosed)
	}
	if err := a.port.SetDTR(s.DTR); err != nil {
		return errors.Wrap(err, "set DTR")
	}
	if err := a.port.SetRTS(s.RTS); err != nil {
		return errors.Wrap(err, "set RTS")
	}
	return nil
}

// UpdateBaud reconfigures the port's baud rate in place. The pump
// loop's next iteration picks up the new mode automatically since it
// reads through the same Port.
func (a *Async) UpdateBaud(baud int) error {
	if a.isClosed() {
		return core.NewError(tag, "update-baud", core.KindTransportClosed, core.ErrPortClosed)
	}
	mode := DefaultMode()
	mode.BaudRate = baud
	if err := a.port.SetMode(&mode); err != nil {
		return errors.Wrap(err, "update baud")
	}
	a.mu.Lock()
	a.baud = baud
	a.mu.Unlock()
	return nil
}

// Subscribe registers a new listener for data/close/error/readable
// events. The returned cancel function must be called to release the
// channel; it is safe to call more than once.
func (a *Async) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	a.subMu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	a.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			a.subMu.Lock()
			delete(a.subs, id)
			a.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (a *Async) publish(ev Event) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; drop rather than block the pump.
		}
	}
}

// Close stops the pump goroutine and closes the underlying port. Every
// operation after Close returns a KindTransportClosed error
// deterministically.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.closeErr = core.NewError(tag, "read", core.KindTransportClosed, core.ErrPortClosed)
	a.cond.Broadcast()
	a.mu.Unlock()

	err := a.port.Close()
	<-a.pumpDone
	a.publish(Event{Kind: EventClose})
	return err
}
