package dwd

import "github.com/pkg/errors"

// v24EnableCmd and v24DisableCmd are literal 9-byte commands sent
// before/after the handshake to toggle the V24 debug line.
var (
	v24EnableCmd  = []byte{0x41, 0x54, 0x23, 0xFD, 0x0D, 0x00, 0x66, 0x8D, 0xED}
	v24DisableCmd = []byte{0x41, 0x54, 0x23, 0xFE, 0x0D, 0x00, 0x66, 0x8D, 0xED}
)

// SetV24 writes the enable/disable toggle command and drains any
// trailing bytes the modem echoes back.
func (l *Link) SetV24(enable bool) error {
	cmd := v24DisableCmd
	if enable {
		cmd = v24EnableCmd
	}
	if err := l.port.Write(cmd); err != nil {
		return errors.Wrap(err, "dwd: v24 toggle")
	}
	l.drain(32)
	return nil
}
