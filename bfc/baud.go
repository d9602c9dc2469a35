package bfc

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// dstEngineControl is the destination that owns status/control
// exchanges: auth challenges, pings, and baud negotiation.
const dstEngineControl byte = 0x02

var candidateBauds = []int{921600, 460800, 230400}

// NegotiateBaud tries each candidate baud downward: ask the phone to
// switch with setPhoneBaudrate, switch the local port to match, then
// confirm with three pings before committing. On failure for any
// candidate it restores the prior baud and tries the next.
func (b *Bus) NegotiateBaud(ctx context.Context) (int, error) {
	prior := b.port.Baud()
	for _, baud := range candidateBauds {
		if err := b.setPhoneBaudrate(ctx, baud); err != nil {
			continue
		}
		if err := b.port.UpdateBaud(baud); err != nil {
			continue
		}
		if b.pingN(ctx, 3, time.Second) {
			return baud, nil
		}
		_ = b.port.UpdateBaud(prior)
	}
	return prior, errors.New("bfc: no candidate baud accepted")
}

// setPhoneBaudrate sends 0x02 followed by the decimal ASCII baud;
// a reply starting 0x02 0xEE is a rejection.
func (b *Bus) setPhoneBaudrate(ctx context.Context, baud int) error {
	payload := append([]byte{0x02}, []byte(strconv.Itoa(baud))...)
	resp, err := b.Exec(ctx, dstEngineControl, payload, ExecOptions{Type: TypeStatus, Timeout: 2 * time.Second})
	if err != nil {
		return err
	}
	if len(resp) >= 2 && resp[0] == 0x02 && resp[1] == 0xEE {
		return errors.New("bfc: baud change rejected")
	}
	return nil
}

// pingN sends n STATUS pings (payload 0x80 0x11) and reports whether
// all of them were answered within timeout.
func (b *Bus) pingN(ctx context.Context, n int, timeout time.Duration) bool {
	for i := 0; i < n; i++ {
		if _, err := b.Exec(ctx, dstEngineControl, []byte{0x80, 0x11}, ExecOptions{Type: TypeStatus, Timeout: timeout}); err != nil {
			return false
		}
	}
	return true
}
