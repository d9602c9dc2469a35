package ebl

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
)

const tag = "ebl"

const (
	startToken uint16 = 2
	endToken   uint16 = 3

	headerSize = 6 // start token(2) + cmd(2) + size(2)
	trailerSize = 4 // checksum(2) + end token(2)
)

// Frame is one decoded EBL packet.
type Frame struct {
	Cmd     uint16
	Payload []byte
}

// checksum is the 16-bit sum of cmd, size, and every payload byte, per
// the glossary's EBL checksum definition.
func checksum(cmd uint16, size uint16, payload []byte) uint16 {
	sum := uint32(cmd) + uint32(size)
	for _, b := range payload {
		sum += uint32(b)
	}
	return uint16(sum)
}

// encodeFrame builds a complete on-wire EBL packet for cmd/payload.
func encodeFrame(cmd uint16, payload []byte) []byte {
	size := uint16(len(payload))
	out := make([]byte, 0, headerSize+len(payload)+trailerSize)

	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], startToken)
	out = append(out, tmp[:]...)
	binary.LittleEndian.PutUint16(tmp[:], cmd)
	out = append(out, tmp[:]...)
	binary.LittleEndian.PutUint16(tmp[:], size)
	out = append(out, tmp[:]...)
	out = append(out, payload...)
	binary.LittleEndian.PutUint16(tmp[:], checksum(cmd, size, payload))
	out = append(out, tmp[:]...)
	binary.LittleEndian.PutUint16(tmp[:], endToken)
	out = append(out, tmp[:]...)

	return out
}

// decodeHeader validates the first 6 bytes of a reply and returns the
// reply's cmd and declared payload size.
func decodeHeader(header []byte, wantCmd uint16) (size uint16, err error) {
	if len(header) != headerSize {
		return 0, errors.Errorf("ebl: short header: %d bytes", len(header))
	}
	if got := binary.LittleEndian.Uint16(header[0:2]); got != startToken {
		return 0, core.NewError(tag, "decode-header", core.KindProtocolViolation,
			errors.Errorf("bad start token 0x%04X", got))
	}
	gotCmd := binary.LittleEndian.Uint16(header[2:4])
	if gotCmd != wantCmd {
		return 0, core.NewError(tag, "decode-header", core.KindProtocolViolation,
			errors.Errorf("cmd mismatch: got 0x%04X, want 0x%04X", gotCmd, wantCmd))
	}
	return binary.LittleEndian.Uint16(header[4:6]), nil
}

// decodeBody validates the size+4 trailing bytes of a reply (payload,
// checksum, end token) and returns the decoded Frame.
func decodeBody(cmd uint16, size uint16, body []byte) (Frame, error) {
	if len(body) != int(size)+trailerSize {
		return Frame{}, errors.Errorf("ebl: short body: %d bytes, want %d", len(body), int(size)+trailerSize)
	}
	payload := body[:size]
	gotChecksum := binary.LittleEndian.Uint16(body[size : size+2])
	if got := binary.LittleEndian.Uint16(body[size+2 : size+4]); got != endToken {
		return Frame{}, core.NewError(tag, "decode-body", core.KindProtocolViolation,
			errors.Errorf("bad end token 0x%04X", got))
	}
	want := checksum(cmd, size, payload)
	if gotChecksum != want {
		return Frame{}, core.NewError(tag, "decode-body", core.KindIntegrityFailure,
			errors.Errorf("checksum mismatch: got 0x%04X, want 0x%04X", gotChecksum, want))
	}
	return Frame{Cmd: cmd, Payload: append([]byte(nil), payload...)}, nil
}
