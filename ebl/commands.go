package ebl

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
)

// SetBaudrate asks the phone to switch to rate. EBL echoes the
// request payload back verbatim; only on an exact echo match does the
// caller adopt the new baud locally (via serial.Async.UpdateBaud) —
// this function validates the echo but does not touch the port's
// mode itself, since the Link has no opinion about which transport
// owns the baud change.
func (l *Link) SetBaudrate(rate uint32) error {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, rate)

	reply, err := l.Transact(cmdSetBaudrate, payload)
	if err != nil {
		return errors.Wrap(err, "ebl: set baudrate")
	}
	if !bytes.Equal(reply.Payload, payload) {
		return core.NewError(tag, "set-baudrate", core.KindProtocolViolation,
			errors.New("baudrate echo mismatch"))
	}
	return nil
}

// SetEBUConfig uploads the 88-byte EBU configuration record.
func (l *Link) SetEBUConfig(cfg EBUConfig) error {
	payload := encodeEBUConfig(cfg)
	_, err := l.Transact(cmdSetEBUConfig, payload)
	if err != nil {
		return errors.Wrap(err, "ebl: set EBU config")
	}
	return nil
}

func encodeEBUConfig(cfg EBUConfig) []byte {
	out := make([]byte, 0, 88)
	putU32 := func(v uint32) {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], v)
		out = append(out, tmp[:]...)
	}
	// Fixed prologue.
	putU32(5)
	putU32(0x04020000)
	putU32(115200)
	putU32(2)
	putU32(1)
	putU32(0)
	for _, cs := range cfg.ChipSelects {
		putU32(cs.CS)
		putU32(cs.AddrSel)
		putU32(cs.BusCon)
		putU32(cs.BusAP)
	}
	return out
}

// ProbeCFI runs the two-stage CFI probe and returns the four 64-byte
// flash descriptors it reports.
func (l *Link) ProbeCFI() ([4]FlashDescriptor, error) {
	var out [4]FlashDescriptor

	stage1, err := l.Transact(cmdCFIProbe1, nil)
	if err != nil {
		return out, errors.Wrap(err, "ebl: CFI probe stage 1")
	}
	stage2, err := l.Transact(cmdCFIProbe2, nil)
	if err != nil {
		return out, errors.Wrap(err, "ebl: CFI probe stage 2")
	}

	combined := append(append([]byte(nil), stage1.Payload...), stage2.Payload...)
	if len(combined) != len(out)*len(FlashDescriptor{}) {
		return out, core.NewError(tag, "probe-cfi", core.KindProtocolViolation,
			errors.Errorf("CFI probe returned %d bytes, want %d", len(combined), len(out)*64))
	}
	for i := range out {
		copy(out[i][:], combined[i*64:(i+1)*64])
	}
	return out, nil
}
