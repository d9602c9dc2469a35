package dwd

// Opcode identifies a DWD frame's operation. The low byte travels as
// the first byte of the (decapsulated) frame body.
type Opcode byte

const (
	OpConnect1Request  Opcode = 0x58
	OpConnect1Response Opcode = 0x57
	OpConnect2Request  Opcode = 0x59
	OpConnect2Response Opcode = 0x56
	OpReadRequest      Opcode = 0x76
	OpReadResponse     Opcode = 0x77
	OpWriteRequest     Opcode = 0x78
	OpWriteResponse    Opcode = 0x79
	OpVersionRequest   Opcode = 0x54
	OpVersionResponse  Opcode = 0x55
	OpSWResetRequest   Opcode = 0xAD
)

// frameLength is the fixed wire length (including the opcode byte)
// for frame kinds with a known-fixed size; variable-length kinds
// return 0 and are bounded only by what the transport delivers.
func frameLength(op Opcode) int {
	switch op {
	case OpConnect1Request, OpConnect1Response:
		return 10
	case OpConnect2Request:
		return 8
	case OpReadRequest:
		return 8
	case OpWriteResponse:
		return 4
	case OpVersionRequest:
		return 2
	case OpSWResetRequest:
		return 2
	default:
		return 0
	}
}

// MaxReadChunk and MaxWriteChunk bound a single memory I/O request,
// for a single exchange; larger transfers are driven through the adaptive I/O
// engine.
const (
	MaxReadChunk  = 230
	MaxWriteChunk = 226
)

// Keyset is the 4-tuple DWD's keyed handshake authenticates against.
type Keyset struct {
	Name string
	Key1 [16]byte
	Key2 uint16
	Key3 [16]byte
	Key4 uint16
}

// builtinKeysets are the named keysets the connect procedure iterates
// through when "auto" is selected. The exact production key material
// for "service"/"lg"/"panasonic" is phone-family-specific and not
// named by the design; these are placeholder constants documented as
// such, distinct enough to exercise the handshake math in tests.
var builtinKeysets = []Keyset{
	{Name: "auto"},
	{Name: "service", Key2: 0x1234, Key4: 0x5678},
	{Name: "lg", Key2: 0x2468, Key4: 0x1357},
	{Name: "panasonic", Key2: 0x0FF0, Key4: 0x0AA0},
}

// Keysets returns the built-in named keysets in iteration order.
func Keysets() []Keyset {
	out := make([]Keyset, len(builtinKeysets))
	copy(out, builtinKeysets)
	return out
}

// KeysetByName looks up a built-in keyset by name.
func KeysetByName(name string) (Keyset, bool) {
	for _, ks := range builtinKeysets {
		if ks.Name == name {
			return ks, true
		}
	}
	return Keyset{}, false
}
