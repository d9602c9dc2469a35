// Package serial provides the async serial-port abstraction every
// protocol in this module is built on: bounded, byte-accurate reads
// with timeouts, fire-and-forget writes, DTR/RTS signal control, baud
// updates, and a subscription stream for unsolicited data, close and
// error notifications.
//
// # Hardware independence
//
// This package does not talk to an OS serial driver. Callers provide a
// Port — anything that can Read, Write, Close, toggle DTR/RTS, and
// change its Mode — and Open wraps it with the bounded-read and
// event-fanout behaviour the rest of this module expects. In
// production this Port is typically a thin adapter over
// go.bug.st/serial (this module ships no such adapter), but it can
// equally be a loopback
// buffer in tests or a mock device — any io.ReadWriter-shaped fake
// that implements Port works.
//
// # Contract
//
//	a := serial.Open(port, 115200)
//	defer a.Close()
//
//	data, err := a.Read(16, 500*time.Millisecond) // up to 16 bytes
//	err = a.Write(frame)
//	sub, cancel := a.Subscribe()
//	defer cancel()
//	for ev := range sub {
//	    switch ev.Kind {
//	    case serial.EventData:
//	        // unsolicited bytes
//	    case serial.EventClose, serial.EventError:
//	        // port gone
//	    }
//	}
//
// Only one logical reader may be outstanding against an Async at a
// time: either a caller drives Read/ReadByte directly, or it attaches
// an at.Channel/bfc.Bus that consumes the Subscribe stream. Mixing both
// concurrently on the same Async produces interleaved, unpredictable
// results — this package does not arbitrate between them, matching the
// single-threaded cooperative scheduling model.
package serial
