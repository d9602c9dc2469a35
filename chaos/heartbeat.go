package chaos

import (
	"sync"
	"time"

	"github.com/siemens-mobile-hacks/siecore/serial"
)

// heartbeat writes a single heartbeatByte every interval while the
// loader has no transaction in flight, keeping CHAOS's command loop
// from timing out its own idle watchdog. It runs on a library-spawned
// background goroutine; callers never observe it directly beyond Stop.
type heartbeat struct {
	port     *serial.Async
	interval time.Duration

	mu        sync.Mutex
	suspended bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

func newHeartbeat(port *serial.Async, interval time.Duration) *heartbeat {
	return &heartbeat{
		port:     port,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (h *heartbeat) start() {
	go h.run()
}

func (h *heartbeat) run() {
	defer close(h.doneCh)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.mu.Lock()
			suspended := h.suspended
			h.mu.Unlock()
			if suspended {
				continue
			}
			_ = h.port.Write([]byte{heartbeatByte})
		}
	}
}

// suspend pauses the heartbeat for the duration of a transaction;
// resume re-arms it. Both are idempotent and safe to call from the
// single goroutine that owns a Loader's transactions.
func (h *heartbeat) suspend() {
	h.mu.Lock()
	h.suspended = true
	h.mu.Unlock()
}

func (h *heartbeat) resume() {
	h.mu.Lock()
	h.suspended = false
	h.mu.Unlock()
}

func (h *heartbeat) stop() {
	select {
	case <-h.stopCh:
	default:
		close(h.stopCh)
	}
	<-h.doneCh
}
