package at

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
	"github.com/siemens-mobile-hacks/siecore/serial"
)

const tag = "at"

// Transport is the slice of serial.Async that Channel depends on. A
// *serial.Async satisfies it directly.
type Transport interface {
	Write(p []byte) error
	Subscribe() (<-chan serial.Event, func())
}

// UnsolicitedFunc receives any line that didn't belong to an in-flight
// Command, e.g. "^SYSSTART" or a BFC-under-AT wakeup line.
type UnsolicitedFunc func(line string)

// Channel is the line-oriented AT command/response engine described in
// package at's doc comment. One Channel serializes all commands sent
// over a single Transport; construct one per serial link.
type Channel struct {
	cfg       Config
	log       core.TaggedLogger
	transport Transport

	unsolicited UnsolicitedFunc

	sendMu sync.Mutex // serializes Send calls end-to-end

	runMu     sync.Mutex
	running   bool
	cancelSub func()
	stopCh    chan struct{}
	loopDone  chan struct{}

	stateMu sync.Mutex
	lineBuf []byte
	pending *pendingCmd
}

type pendingCmd struct {
	cmd    Command
	dial   bool
	lines  []string
	binary []byte

	consumingBinary bool
	binaryRemaining int
	binaryDone      bool

	done chan Response
}

// NewChannel constructs a Channel over transport. Call Start before
// sending any Command.
func NewChannel(transport Transport, opts ...Option) *Channel {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Channel{
		cfg:       cfg,
		log:       core.NewTaggedLogger(tag, cfg.Logger),
		transport: transport,
	}
}

// SetUnsolicitedHandler installs the callback invoked for lines that
// arrive with no Command in flight, or that a Command's Kind routes to
// unsolicited. Must be called before Start, or while no Send is
// outstanding.
func (c *Channel) SetUnsolicitedHandler(f UnsolicitedFunc) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.unsolicited = f
}

// Start subscribes to the transport and begins dispatching lines.
func (c *Channel) Start() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.running {
		return
	}
	sub, cancel := c.transport.Subscribe()
	c.cancelSub = cancel
	c.stopCh = make(chan struct{})
	c.loopDone = make(chan struct{})
	c.running = true
	go c.loop(sub)
}

// Stop unsubscribes from the transport and completes any in-flight
// Command with a PORT_CLOSED response.
func (c *Channel) Stop() {
	c.runMu.Lock()
	if !c.running {
		c.runMu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	cancel := c.cancelSub
	loopDone := c.loopDone
	c.runMu.Unlock()

	cancel()
	<-loopDone
}

func (c *Channel) loop(sub <-chan serial.Event) {
	defer close(c.loopDone)
	for ev := range sub {
		switch ev.Kind {
		case serial.EventData:
			c.processData(ev.Data)
		case serial.EventClose, serial.EventError:
			c.completePending(Response{Success: false, Status: statusPortClosed})
		}
	}
}

// Send transmits cmd and waits for it to complete, or for ctx / the
// Command's own Timeout to expire, whichever is sooner.
func (c *Channel) Send(ctx context.Context, cmd Command) (Response, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.runMu.Lock()
	running := c.running
	c.runMu.Unlock()
	if !running {
		return Response{}, core.NewError(tag, "send", core.KindTransportClosed, core.ErrPortClosed)
	}

	pc := &pendingCmd{
		cmd:  cmd,
		dial: cmd.Kind == KindDial,
		done: make(chan Response, 1),
	}
	if cmd.Kind == KindBinary {
		pc.consumingBinary = true
		pc.binaryRemaining = cmd.BinarySize
	}

	c.stateMu.Lock()
	c.pending = pc
	c.stateMu.Unlock()

	if err := c.transport.Write([]byte(cmd.Text + c.cfg.EOL)); err != nil {
		c.stateMu.Lock()
		c.pending = nil
		c.stateMu.Unlock()
		return Response{}, errors.Wrap(err, "write command")
	}

	if cmd.Kind == KindNoResponse {
		c.stateMu.Lock()
		c.pending = nil
		c.stateMu.Unlock()
		return Response{Success: true}, nil
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-pc.done:
		if !resp.Success && resp.Status == statusPortClosed {
			return resp, core.NewError(tag, "send", core.KindTransportClosed, core.ErrPortClosed)
		}
		if !resp.Success {
			return resp, core.NewError(tag, "send", core.KindProtocolViolation, errors.New(resp.Status))
		}
		return resp, nil
	case <-timer.C:
		c.clearPending(pc)
		return Response{Success: false, Status: statusTimeout}, core.NewError(tag, "send", core.KindTimeout, core.ErrTimeout)
	case <-ctx.Done():
		c.clearPending(pc)
		return Response{Success: false, Status: statusTimeout}, core.NewError(tag, "send", core.KindCancelled, ctx.Err())
	case <-c.stopCh:
		return Response{Success: false, Status: statusPortClosed}, core.NewError(tag, "send", core.KindTransportClosed, core.ErrPortClosed)
	}
}

func (c *Channel) clearPending(pc *pendingCmd) {
	c.stateMu.Lock()
	if c.pending == pc {
		c.pending = nil
	}
	c.stateMu.Unlock()
}

func (c *Channel) completePending(resp Response) {
	c.stateMu.Lock()
	pc := c.pending
	c.pending = nil
	c.stateMu.Unlock()
	if pc == nil {
		return
	}
	if pc.cmd.Kind == KindBinary {
		resp.Binary = pc.binary
	}
	if len(pc.lines) > 0 && resp.Lines == nil {
		resp.Lines = pc.lines
	}
	select {
	case pc.done <- resp:
	default:
	}
}

func (c *Channel) dispatchUnsolicited(line string) {
	c.stateMu.Lock()
	f := c.unsolicited
	c.stateMu.Unlock()
	if f != nil {
		f(line)
	}
}

// processData is the single entry point for bytes arriving off the
// wire. It interleaves raw binary consumption (KindBinary) with
// CRLF-delimited line splitting.
func (c *Channel) processData(data []byte) {
	for len(data) > 0 {
		c.stateMu.Lock()
		pc := c.pending
		c.stateMu.Unlock()

		if pc != nil && pc.consumingBinary && pc.binaryRemaining > 0 {
			n := pc.binaryRemaining
			if n > len(data) {
				n = len(data)
			}
			pc.binary = append(pc.binary, data[:n]...)
			pc.binaryRemaining -= n
			data = data[n:]
			if pc.binaryRemaining == 0 {
				pc.consumingBinary = false
				pc.binaryDone = true
			}
			continue
		}

		c.stateMu.Lock()
		c.lineBuf = append(c.lineBuf, data...)
		data = nil
		for {
			idx := strings.Index(string(c.lineBuf), c.cfg.EOL)
			if idx < 0 {
				break
			}
			line := string(c.lineBuf[:idx])
			c.lineBuf = c.lineBuf[idx+len(c.cfg.EOL):]
			c.stateMu.Unlock()
			if line != "" {
				c.handleLine(line)
			}
			c.stateMu.Lock()
		}
		c.stateMu.Unlock()
	}
}

func (c *Channel) handleLine(line string) {
	c.stateMu.Lock()
	pc := c.pending
	c.stateMu.Unlock()

	dial := pc != nil && pc.dial
	if isSuccessStatus(line, dial) {
		c.completePending(Response{Success: true, Status: line})
		return
	}
	if isErrorStatus(line, dial) {
		c.completePending(Response{Success: false, Status: line})
		return
	}

	if pc == nil {
		c.dispatchUnsolicited(line)
		return
	}

	if pc.binaryDone {
		// Awaiting only the final status line; anything else is noise.
		return
	}

	switch pc.cmd.Kind {
	case KindPrefixFiltered:
		if strings.HasPrefix(line, pc.cmd.Prefix) {
			pc.lines = append(pc.lines, line)
		} else {
			c.dispatchUnsolicited(line)
		}
	case KindNoPrefixAll:
		pc.lines = append(pc.lines, line)
		c.dispatchUnsolicited(line)
	case KindNumeric:
		if (pc.cmd.Prefix != "" && strings.HasPrefix(line, pc.cmd.Prefix)) || isDigitLine(line) {
			pc.lines = append(pc.lines, line)
		} else {
			c.dispatchUnsolicited(line)
		}
	case KindMultiline:
		if len(pc.lines) == 0 {
			if pc.cmd.Prefix == "" || strings.HasPrefix(line, pc.cmd.Prefix) {
				pc.lines = append(pc.lines, line)
			} else {
				c.dispatchUnsolicited(line)
			}
			return
		}
		if looksUnsolicited(line) {
			return
		}
		pc.lines = append(pc.lines, line)
	case KindDefault, KindNoPrefix, KindDial:
		if looksUnsolicited(line) {
			c.dispatchUnsolicited(line)
		} else {
			pc.lines = append(pc.lines, line)
		}
	default:
		c.dispatchUnsolicited(line)
	}
}

func looksUnsolicited(line string) bool {
	if line == "" {
		return false
	}
	switch line[0] {
	case '+', '*', '^', '!':
		return true
	default:
		return false
	}
}

func isDigitLine(line string) bool {
	if line == "" {
		return false
	}
	return line[0] >= '0' && line[0] <= '9'
}

func isSuccessStatus(line string, dial bool) bool {
	if line == statusOK {
		return true
	}
	return dial && line == statusConnect
}

func isErrorStatus(line string, dial bool) bool {
	if line == statusError {
		return true
	}
	if strings.HasPrefix(line, statusCMSErrPrefix) || strings.HasPrefix(line, statusCMEErrPrefix) {
		return true
	}
	if dial && (line == statusNoCarrier || line == statusNoAnswer || line == statusNoDialtone) {
		return true
	}
	return false
}

// Handshake sends "ATQ0 V1 E0" up to attempts times, on a
// DefaultHandshakeTimeout budget each, and returns nil on the first
// OK. It exists because a freshly-opened link may still be draining
// boot-time noise the first one or two attempts.
func Handshake(ctx context.Context, ch *Channel, attempts int) error {
	if attempts <= 0 {
		attempts = DefaultHandshakeAttempts
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		_, err := ch.Send(ctx, Command{
			Text:    "ATQ0 V1 E0",
			Kind:    KindDefault,
			Timeout: DefaultHandshakeTimeout,
		})
		if err == nil {
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return errors.Wrap(lastErr, "at: handshake failed")
}
