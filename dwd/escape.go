package dwd

import "github.com/pkg/errors"

// escapePrefix is the literal "AT#" that opens every DWD wire frame.
var escapePrefix = []byte{0x41, 0x54, 0x23}

// positionBase is added to each escaped byte's index within the body
// to produce the offset value recorded in the header.
const positionBase = 14

// trailerByte closes every DWD wire frame.
const trailerByte = 0x0D

// escapedByte is the raw value (carriage return) that cannot appear
// verbatim in the tunneled body and is replaced with substituteByte.
const escapedByte = 0x0D
const substituteByte = 0x0C

// encapsulate wraps a raw DWD frame body for transmission inside an AT
// line: any 0x0D in body is replaced with 0x0C, and its position
// (positionBase + index-in-body) is recorded in the header so the
// receiver can restore it.
func encapsulate(body []byte) []byte {
	out := make([]byte, len(body))
	var offsets []byte
	for i, b := range body {
		if b == escapedByte {
			out[i] = substituteByte
			offsets = append(offsets, byte(positionBase+i))
		} else {
			out[i] = b
		}
	}

	wire := make([]byte, 0, len(escapePrefix)+1+len(offsets)+len(out)+1)
	wire = append(wire, escapePrefix...)
	wire = append(wire, byte(len(offsets)))
	wire = append(wire, offsets...)
	wire = append(wire, out...)
	wire = append(wire, trailerByte)
	return wire
}

// decapsulate reverses encapsulate, restoring every escaped 0x0D to
// its original position in the body.
func decapsulate(wire []byte) ([]byte, error) {
	if len(wire) < len(escapePrefix)+2 {
		return nil, errors.New("dwd: frame too short")
	}
	for i, b := range escapePrefix {
		if wire[i] != b {
			return nil, errors.New("dwd: missing AT# prefix")
		}
	}
	if wire[len(wire)-1] != trailerByte {
		return nil, errors.New("dwd: missing trailer")
	}

	count := int(wire[len(escapePrefix)])
	offsetsStart := len(escapePrefix) + 1
	offsetsEnd := offsetsStart + count
	if offsetsEnd > len(wire)-1 {
		return nil, errors.New("dwd: escape count exceeds frame length")
	}
	offsets := wire[offsetsStart:offsetsEnd]
	body := wire[offsetsEnd : len(wire)-1]

	out := make([]byte, len(body))
	copy(out, body)
	for _, off := range offsets {
		idx := int(off) - positionBase
		if idx < 0 || idx >= len(out) {
			return nil, errors.New("dwd: escape offset out of range")
		}
		out[idx] = escapedByte
	}
	return out, nil
}
