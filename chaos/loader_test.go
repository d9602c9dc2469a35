package chaos

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/siemens-mobile-hacks/siecore/serial"
)

type fakePort struct {
	mu     sync.Mutex
	toHost bytes.Buffer
	writes [][]byte
	closed bool
	mode   *serial.Mode
}

func (p *fakePort) feed(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toHost.Write(b)
}

func (p *fakePort) Read(b []byte) (int, error) {
	deadline := time.Now().Add(30 * time.Millisecond)
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
	p.writes = append(p.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}
func (p *fakePort) SetMode(mode *serial.Mode) error {
	p.mu.Lock()
	p.mode = mode
	p.mu.Unlock()
	return nil
}
func (p *fakePort) SetDTR(dtr bool) error                { return nil }
func (p *fakePort) SetRTS(rts bool) error                { return nil }
func (p *fakePort) SetReadTimeout(d time.Duration) error { return nil }

func newTestLoader(t *testing.T) (*Loader, *fakePort) {
	t.Helper()
	fp := &fakePort{}
	async := serial.Open(fp, 115200)
	t.Cleanup(func() { async.Close() })
	return NewLoader(async, WithReplyTimeout(200*time.Millisecond), WithPageTimeout(100*time.Millisecond)), fp
}

func TestHelloAcceptsAnnouncementByte(t *testing.T) {
	l, fp := newTestLoader(t)
	fp.feed([]byte{byte(OpHello)})
	if err := l.Hello(context.Background()); err != nil {
		t.Fatalf("Hello: %v", err)
	}
}

func TestHelloRejectsWrongByte(t *testing.T) {
	l, fp := newTestLoader(t)
	fp.feed([]byte{0x00})
	if err := l.Hello(context.Background()); err == nil {
		t.Fatal("expected error for wrong hello byte")
	}
}

func TestPingExpectsPong(t *testing.T) {
	l, fp := newTestLoader(t)
	go func() {
		time.Sleep(5 * time.Millisecond)
		fp.feed([]byte{byte(OpPong)})
	}()
	if err := l.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	fp.mu.Lock()
	sent := fp.writes[0]
	fp.mu.Unlock()
	if len(sent) != 1 || sent[0] != byte(OpPing) {
		t.Fatalf("sent = %X, want [PING]", sent)
	}
}

func TestPingTimesOutWithoutReply(t *testing.T) {
	l, _ := newTestLoader(t)
	if err := l.Ping(context.Background()); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestSetBaudrateSequencesBothAcks(t *testing.T) {
	l, fp := newTestLoader(t)
	go func() {
		time.Sleep(5 * time.Millisecond)
		fp.feed([]byte{byte(OpSetBaudrateAck1)})
		time.Sleep(5 * time.Millisecond)
		fp.feed([]byte{byte(OpSetBaudrate)})
	}()
	if err := l.SetBaudrate(context.Background(), 921600); err != nil {
		t.Fatalf("SetBaudrate: %v", err)
	}
	fp.mu.Lock()
	defer fp.mu.Unlock()
	if len(fp.writes) != 2 {
		t.Fatalf("wrote %d frames, want 2", len(fp.writes))
	}
	if fp.writes[0][0] != byte(OpSetBaudrate) {
		t.Fatalf("first write = %X, want SET_BAUDRATE", fp.writes[0])
	}
	if fp.writes[1][0] != byte(OpSetBaudrateAck2) {
		t.Fatalf("second write = %X, want SET_BAUDRATE_ACK", fp.writes[1])
	}
	if fp.mode == nil || fp.mode.BaudRate != 921600 {
		t.Fatalf("local baud not updated: %+v", fp.mode)
	}
}

func TestTestReturnsReplyByte(t *testing.T) {
	l, fp := newTestLoader(t)
	go func() {
		time.Sleep(5 * time.Millisecond)
		fp.feed([]byte{0x01})
	}()
	got, err := l.Test(context.Background())
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if got != 0x01 {
		t.Fatalf("got 0x%02X, want 0x01", got)
	}
}
