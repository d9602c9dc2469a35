package dwd

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Fixed probe randoms used by the connect handshake. The design treats
// these as "chosen-random" constants fixed for deterministic
// reproduction rather than drawn fresh per attempt.
const (
	rand1 uint16 = 5500
	rand2 uint16 = 5500
	rand3 uint16 = 5500
	rand4 uint16 = 0
)

// buildConnect1Request formats the Connect-1 probe for the given
// key2/key4 guess. The 10-byte frame is opcode + four little-endian
// u16 fields + one reserved byte.
func buildConnect1Request(key2, key4 uint16) []byte {
	val := (key4 ^ key2 ^ rand1) + rand2 + 0x4ED5
	buf := make([]byte, 10)
	buf[0] = byte(OpConnect1Request)
	binary.LittleEndian.PutUint16(buf[1:3], rand1)
	binary.LittleEndian.PutUint16(buf[3:5], val)
	binary.LittleEndian.PutUint16(buf[5:7], rand2)
	binary.LittleEndian.PutUint16(buf[7:9], rand3)
	return buf
}

// connect1Reply is the parsed Connect-1 response: (echo, chk1, r6, chk2).
type connect1Reply struct {
	Echo, Chk1, R6, Chk2 uint16
}

func parseConnect1Response(frame []byte) (connect1Reply, error) {
	if len(frame) < 9 || Opcode(frame[0]) != OpConnect1Response {
		return connect1Reply{}, errors.New("dwd: malformed connect-1 response")
	}
	return connect1Reply{
		Echo: binary.LittleEndian.Uint16(frame[1:3]),
		Chk1: binary.LittleEndian.Uint16(frame[3:5]),
		R6:   binary.LittleEndian.Uint16(frame[5:7]),
		Chk2: binary.LittleEndian.Uint16(frame[7:9]),
	}, nil
}

// verifyChk1 checks the Connect-1 response's chk1 field.
func verifyChk1(chk1 uint16) bool {
	return chk1 == (rand1*8-rand2)^0xD427
}

// deriveKeyRotate recovers the rotate index from the response's r6
// field.
func deriveKeyRotate(r6 uint16) int {
	return int((r6 - rand2) & 0xF)
}

// verifyChk2 checks the Connect-1 response's chk2 field against a
// candidate keyset and the derived rotate index.
func verifyChk2(ks Keyset, keyRotate int, chk2 uint16) bool {
	want := (uint16(ks.Key1[keyRotate])<<4 ^ (uint16(ks.Key3[0xF-keyRotate])<<3 ^ 0x7F39))
	return chk2 == want
}

// buildConnect2Request formats the Connect-2 confirmation once
// keyRotate is known.
func buildConnect2Request(ks Keyset, keyRotate int) []byte {
	val := uint16(ks.Key1[0xF-keyRotate]) ^ (uint16(ks.Key3[keyRotate]) << 4) ^ 0x4D33
	buf := make([]byte, 8)
	buf[0] = byte(OpConnect2Request)
	binary.LittleEndian.PutUint16(buf[1:3], rand4)
	binary.LittleEndian.PutUint16(buf[3:5], val)
	binary.LittleEndian.PutUint16(buf[5:7], rand4)
	return buf
}

// isConnect2Response reports whether frame is a well-formed Connect-2
// reply. The response's payload length beyond the opcode is
// unspecified, so any frame carrying opcode 0x56 and at least 4 bytes
// total is accepted.
func isConnect2Response(frame []byte) bool {
	return len(frame) >= 4 && Opcode(frame[0]) == OpConnect2Response
}
