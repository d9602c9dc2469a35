package bfc

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/at"
	"github.com/siemens-mobile-hacks/siecore/core"
	"github.com/siemens-mobile-hacks/siecore/serial"
)

// Mode is the transport's exclusive state: at most one framing scheme
// is ever attached to the port at a time, rather than letting a raw
// byte stream and an AT channel both claim ownership of it.
type Mode int

const (
	ModeNone Mode = iota
	ModeAT
	ModeBFC
)

var connectBauds = []int{115200, 230400, 921600}

// Connect brings up a Bus over port. It first tries to speak AT at
// 115200 and switch the remote endpoint into BFC mode; failing that,
// it probes for an already-open BFC session at each candidate baud.
func Connect(ctx context.Context, port *serial.Async, logger core.Logger, opts ...Option) (*Bus, Mode, error) {
	if bus, mode, ok := connectViaAT(ctx, port, opts); ok {
		return bus, mode, nil
	}

	for _, baud := range connectBauds {
		if err := port.UpdateBaud(baud); err != nil {
			continue
		}
		bus := NewBus(port, opts...)
		bus.Start()
		if bus.pingN(ctx, 3, time.Second) {
			return bus, ModeBFC, nil
		}
		bus.Stop()
	}

	return nil, ModeNone, core.NewError(tag, "connect", core.KindTransportClosed,
		errors.New("no BFC endpoint found"))
}

func connectViaAT(ctx context.Context, port *serial.Async, opts []Option) (*Bus, Mode, bool) {
	if err := port.UpdateBaud(115200); err != nil {
		return nil, ModeNone, false
	}
	ch := at.NewChannel(port)
	ch.Start()
	defer ch.Stop()

	if err := at.Handshake(ctx, ch, 3); err != nil {
		return nil, ModeNone, false
	}

	blue, err := queryIsBluetooth(ctx, ch)
	if err != nil || blue {
		return nil, ModeNone, false
	}

	if _, err := ch.Send(ctx, at.Command{Text: "AT^SQWE=1", Kind: at.KindDefault, Timeout: 2 * time.Second}); err != nil {
		return nil, ModeNone, false
	}
	ch.Stop()
	time.Sleep(300 * time.Millisecond)

	bus := NewBus(port, opts...)
	bus.Start()
	if bus.pingN(ctx, 1, 2*time.Second) {
		return bus, ModeBFC, true
	}
	bus.Stop()
	return nil, ModeNone, false
}

func queryIsBluetooth(ctx context.Context, ch *at.Channel) (bool, error) {
	resp, err := ch.Send(ctx, at.Command{
		Text: "AT^SIFS", Kind: at.KindPrefixFiltered, Prefix: "^SIFS", Timeout: 2 * time.Second,
	})
	if err != nil {
		return false, err
	}
	for _, line := range resp.Lines {
		if strings.Contains(line, "BLUE") {
			return true, nil
		}
	}
	return false, nil
}
