package bfc

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/siemens-mobile-hacks/siecore/core"
	"github.com/siemens-mobile-hacks/siecore/serial"
)

// fakePort is an in-memory serial.Port standing in for a real link,
// modeled on serial's own test double.
type fakePort struct {
	mu     sync.Mutex
	toHost bytes.Buffer
	closed bool
	writes [][]byte
}

func (p *fakePort) feed(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toHost.Write(b)
}

func (p *fakePort) Read(b []byte) (int, error) {
	deadline := time.Now().Add(50 * time.Millisecond)
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return 0, io.EOF
		}
		if p.toHost.Len() > 0 {
			n, _ := p.toHost.Read(b)
			p.mu.Unlock()
			return n, nil
		}
		p.mu.Unlock()
		if time.Now().After(deadline) {
			return 0, nil
		}
		time.Sleep(time.Millisecond)
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := append([]byte(nil), b...)
	p.writes = append(p.writes, cp)
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}
func (p *fakePort) SetMode(mode *serial.Mode) error          { return nil }
func (p *fakePort) SetDTR(dtr bool) error                    { return nil }
func (p *fakePort) SetRTS(rts bool) error                    { return nil }
func (p *fakePort) SetReadTimeout(d time.Duration) error     { return nil }

func newTestBus(t *testing.T) (*Bus, *fakePort) {
	t.Helper()
	fp := &fakePort{}
	async := serial.Open(fp, 115200, serial.WithPumpPollInterval(time.Millisecond))
	bus := NewBus(async)
	bus.Start()
	t.Cleanup(func() {
		bus.Stop()
		async.Close()
	})
	return bus, fp
}

func TestBusExecReturnsMatchingReply(t *testing.T) {
	bus, fp := newTestBus(t)

	go func() {
		time.Sleep(10 * time.Millisecond)
		reply := encodeFrame(Frame{Dst: 0x01, Src: 0x02, Type: TypeStatus, Payload: []byte{0x43, 0x11}})
		fp.feed(reply)
	}()

	resp, err := bus.Exec(context.Background(), 0x02, []byte{0x80, 0x11}, ExecOptions{Type: TypeStatus, Timeout: time.Second})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if !bytes.Equal(resp, []byte{0x43, 0x11}) {
		t.Fatalf("resp = %v, want [0x43 0x11]", resp)
	}
}

func TestBusExecTimesOutWithoutReply(t *testing.T) {
	bus, _ := newTestBus(t)

	_, err := bus.Exec(context.Background(), 0x02, []byte{0x80, 0x11}, ExecOptions{Type: TypeStatus, Timeout: 20 * time.Millisecond})
	if core.KindOf(err) != core.KindTimeout {
		t.Fatalf("expected KindTimeout, got %v", err)
	}
}

func TestBusAutoAcksFlaggedFrame(t *testing.T) {
	bus, fp := newTestBus(t)
	_ = bus

	incoming := encodeFrame(Frame{Dst: 0x09, Src: 0x03, Type: TypeSingle, Flags: FlagAck, Payload: []byte{0xAA}})
	fp.feed(incoming)

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		fp.mu.Lock()
		n := len(fp.writes)
		fp.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()
	if len(fp.writes) == 0 {
		t.Fatal("expected an auto-ACK frame to be written")
	}
	ackFrame, err := decodeFrame(fp.writes[0])
	if err != nil {
		t.Fatalf("decode auto-ack: %v", err)
	}
	if ackFrame.Type != TypeAck || !bytes.Equal(ackFrame.Payload, []byte{0x15, 0x01}) {
		t.Fatalf("auto-ack frame = %+v, want type=ack payload=[0x15 0x01]", ackFrame)
	}
}

func TestBusExecCachesAuthPerDst(t *testing.T) {
	bus, fp := newTestBus(t)

	var authRequests int
	go func() {
		for i := 0; i < 2; i++ {
			deadline := time.Now().Add(time.Second)
			for time.Now().Before(deadline) {
				fp.mu.Lock()
				n := len(fp.writes)
				fp.mu.Unlock()
				if n > authRequests {
					break
				}
				time.Sleep(time.Millisecond)
			}
			authRequests++
			reply := encodeFrame(Frame{Dst: 0x01, Src: 0x06, Type: TypeStatus, Payload: []byte{0x43, 0x11}})
			fp.feed(reply)
		}
	}()

	parser1 := &singlePayloadParser{}
	if _, err := bus.Exec(context.Background(), 0x06, []byte{0x01}, ExecOptions{Type: TypeSingle, Auth: true, Parser: parser1, Timeout: time.Second}); err != nil {
		t.Fatalf("first exec: %v", err)
	}
	if !bus.auth.has(0x06) {
		t.Fatal("expected dst 0x06 to be marked authenticated")
	}
}
