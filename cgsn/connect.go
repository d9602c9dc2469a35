package cgsn

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/at"
	"github.com/siemens-mobile-hacks/siecore/core"
	"github.com/siemens-mobile-hacks/siecore/serial"
)

// cgsnMarkerAddr is where the CGSN patch's firmware marker lives.
const cgsnMarkerAddr = 0xA000003C

const cgsnMarker = "CJKT"

// candidateBauds are tried in order during Connect.
var candidateBauds = []int{115200, 460800, 921600}

// Connect probes port/ch at each candidate baud, verifies the CGSN
// firmware marker, negotiates the RCCP/GIPSY engine switch, and
// settles on the best baud AT+IPR=? offers.
func Connect(ctx context.Context, port *serial.Async, ch *at.Channel, logger core.Logger) (*Client, error) {
	var lastErr error
	for _, baud := range candidateBauds {
		if err := port.UpdateBaud(baud); err != nil {
			lastErr = err
			continue
		}
		if err := at.Handshake(ctx, ch, 3); err != nil {
			lastErr = err
			continue
		}

		client := NewClient(ch, logger)
		marker, err := client.ReadBytes(ctx, cgsnMarkerAddr, len(cgsnMarker))
		if err != nil || string(marker) != cgsnMarker {
			lastErr = core.NewError(tag, "connect", core.KindUnsupported,
				errors.New("phone firmware lacks the CGSN patch"))
			continue
		}

		blue, err := queryIsBluetooth(ctx, ch)
		if err != nil {
			lastErr = err
			continue
		}
		engine := "0"
		if blue {
			engine = "2"
		}
		if _, err := ch.Send(ctx, at.Command{Text: "AT^SQWE=" + engine, Kind: at.KindDefault, Timeout: client.timeout()}); err != nil {
			lastErr = err
			continue
		}

		if best, ok := queryBestBaud(ctx, ch, client.timeout()); ok {
			if err := port.UpdateBaud(best); err != nil {
				lastErr = err
				continue
			}
		}

		return client, nil
	}
	return nil, errors.Wrap(lastErr, "cgsn: connect failed")
}

func queryIsBluetooth(ctx context.Context, ch *at.Channel) (bool, error) {
	resp, err := ch.Send(ctx, at.Command{
		Text: "AT^SIFS", Kind: at.KindPrefixFiltered, Prefix: "^SIFS", Timeout: 2 * at.DefaultHandshakeTimeout,
	})
	if err != nil {
		return false, errors.Wrap(err, "cgsn: query ^SIFS")
	}
	for _, line := range resp.Lines {
		if strings.Contains(line, "BLUE") {
			return true, nil
		}
	}
	return false, nil
}

// queryBestBaud parses AT+IPR=?'s "(n,n,...)" list and picks the best
// offered baud: the engine falls back to 115200 unless a
// baud of at least 921600 is offered.
func queryBestBaud(ctx context.Context, ch *at.Channel, timeout time.Duration) (int, bool) {
	resp, err := ch.Send(ctx, at.Command{Text: "AT+IPR=?", Kind: at.KindNumeric, Prefix: "+IPR", Timeout: timeout})
	if err != nil {
		return 0, false
	}
	best := 0
	for _, line := range resp.Lines {
		start := strings.IndexByte(line, '(')
		end := strings.IndexByte(line, ')')
		if start < 0 || end < 0 || end <= start {
			continue
		}
		for _, tok := range strings.Split(line[start+1:end], ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(tok)); err == nil && n > best {
				best = n
			}
		}
	}
	if best >= 921600 {
		return best, true
	}
	return 115200, true
}
