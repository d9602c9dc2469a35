package serial

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"
)

// fakePort is an in-memory Port used by the tests: a pair of buffers
// standing in for the two directions of a real serial line.
type fakePort struct {
	mu       sync.Mutex
	toHost   *bytes.Buffer // bytes the "phone" has sent, waiting to be Read
	fromHost *bytes.Buffer // bytes Written by the host
	timeout  time.Duration
	closed   bool
	dtr, rts bool
	mode     Mode
}

func newFakePort() *fakePort {
	return &fakePort{toHost: &bytes.Buffer{}, fromHost: &bytes.Buffer{}}
}

func (p *fakePort) feed(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toHost.Write(b)
}

func (p *fakePort) Read(b []byte) (int, error) {
	deadline := time.Now().Add(p.timeout)
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
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	return p.fromHost.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) SetMode(m *Mode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = *m
	return nil
}

func (p *fakePort) SetDTR(v bool) error { p.mu.Lock(); defer p.mu.Unlock(); p.dtr = v; return nil }
func (p *fakePort) SetRTS(v bool) error { p.mu.Lock(); defer p.mu.Unlock(); p.rts = v; return nil }

func (p *fakePort) SetReadTimeout(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = d
	return nil
}

func TestAsyncReadReturnsFullBuffer(t *testing.T) {
	fp := newFakePort()
	a := Open(fp, 115200, WithPumpPollInterval(5*time.Millisecond))
	defer a.Close()

	fp.feed([]byte("OK\r\n"))

	got, err := a.Read(4, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "OK\r\n" {
		t.Fatalf("got %q, want %q", got, "OK\r\n")
	}
}

func TestAsyncReadTimesOutWithPartialData(t *testing.T) {
	fp := newFakePort()
	a := Open(fp, 115200, WithPumpPollInterval(5*time.Millisecond))
	defer a.Close()

	fp.feed([]byte("AB"))

	got, err := a.Read(10, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "AB" {
		t.Fatalf("got %q, want %q", got, "AB")
	}
}

func TestAsyncCloseFailsSubsequentOps(t *testing.T) {
	fp := newFakePort()
	a := Open(fp, 115200, WithPumpPollInterval(5*time.Millisecond))
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := a.Write([]byte("x")); err == nil {
		t.Fatal("Write after Close should fail")
	}
	if err := a.SetSignals(Signals{DTR: true}); err == nil {
		t.Fatal("SetSignals after Close should fail")
	}
}

func TestAsyncSubscribeReceivesData(t *testing.T) {
	fp := newFakePort()
	a := Open(fp, 115200, WithPumpPollInterval(5*time.Millisecond))
	defer a.Close()

	sub, cancel := a.Subscribe()
	defer cancel()

	fp.feed([]byte("hi"))

	select {
	case ev := <-sub:
		if ev.Kind != EventReadable && ev.Kind != EventData {
			t.Fatalf("unexpected event kind %v", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestAsyncSetSignalsTogglesDTR(t *testing.T) {
	fp := newFakePort()
	a := Open(fp, 115200, WithPumpPollInterval(5*time.Millisecond))
	defer a.Close()

	if err := a.SetSignals(Signals{DTR: true, RTS: false}); err != nil {
		t.Fatalf("SetSignals: %v", err)
	}
	fp.mu.Lock()
	dtr := fp.dtr
	fp.mu.Unlock()
	if !dtr {
		t.Fatal("expected DTR to be set")
	}
}
