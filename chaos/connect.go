package chaos

import (
	"context"

	"github.com/siemens-mobile-hacks/siecore/serial"
)

// Connect waits for the resident loader's HELLO announcement on an
// already-uploaded port (the caller drives bsl.Loader.Scan/Upload to
// get the boot image running first — chaos owns only the protocol
// that starts once HELLO arrives) and starts its heartbeat.
func Connect(ctx context.Context, port *serial.Async, opts ...Option) (*Loader, error) {
	l := NewLoader(port, opts...)
	if err := l.Hello(ctx); err != nil {
		return nil, err
	}
	l.Start()
	return l, nil
}
