package dwd

import (
	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
)

// Client is a Link that has completed DWD's keyed handshake.
type Client struct {
	*Link
	Keyset Keyset
}

// Connect performs the V24 enable, keyed handshake, and V24 disable
// sequence against ks. When ks.Name is "auto", every built-in keyset
// is tried in order until one succeeds.
func Connect(link *Link, ks Keyset) (*Client, error) {
	if ks.Name == "auto" {
		var lastErr error
		for _, candidate := range builtinKeysets {
			if candidate.Name == "auto" {
				continue
			}
			client, err := Connect(link, candidate)
			if err == nil {
				return client, nil
			}
			lastErr = err
		}
		if lastErr == nil {
			lastErr = errors.New("dwd: no built-in keyset available")
		}
		return nil, lastErr
	}

	if err := link.SetV24(true); err != nil {
		return nil, err
	}

	if err := handshake(link, ks); err != nil {
		_ = link.SetV24(false)
		return nil, err
	}
	if err := link.SetV24(false); err != nil {
		return nil, err
	}

	return &Client{Link: link, Keyset: ks}, nil
}

// Disconnect writes the V24 disable command. Connect has already sent
// it once after a successful handshake; this sends it again.
func (c *Client) Disconnect() error {
	return c.SetV24(false)
}

func handshake(link *Link, ks Keyset) error {
	reply1, err := link.Transact(buildConnect1Request(ks.Key2, ks.Key4))
	if err != nil {
		return err
	}
	parsed, err := parseConnect1Response(reply1)
	if err != nil {
		return err
	}
	if !verifyChk1(parsed.Chk1) {
		return core.NewError(tag, "connect", core.KindProtocolViolation, errors.New("chk1 mismatch"))
	}
	keyRotate := deriveKeyRotate(parsed.R6)
	if !verifyChk2(ks, keyRotate, parsed.Chk2) {
		return core.NewError(tag, "connect", core.KindAuthDenied, errors.New("chk2 mismatch"))
	}

	reply2, err := link.Transact(buildConnect2Request(ks, keyRotate))
	if err != nil {
		return err
	}
	if !isConnect2Response(reply2) {
		return core.NewError(tag, "connect", core.KindProtocolViolation, errors.New("malformed connect-2 response"))
	}
	return nil
}

// IsAuthDenied reports whether err is a DWD handshake authentication
// rejection (correct chk1 but wrong chk2).
func IsAuthDenied(err error) bool { return core.Is(err, core.KindAuthDenied) }
