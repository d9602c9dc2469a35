package bfc

// FrameType occupies the high nibble of a frame's combined type/flags
// byte.
type FrameType byte

const (
	TypeSingle   FrameType = 0x00
	TypeMultiple FrameType = 0x01
	TypeAck      FrameType = 0x02
	TypeStatus   FrameType = 0x03
)

func (t FrameType) String() string {
	switch t {
	case TypeSingle:
		return "single"
	case TypeMultiple:
		return "multiple"
	case TypeAck:
		return "ack"
	case TypeStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Flag occupies the low nibble of a frame's combined type/flags byte.
type Flag byte

const (
	FlagAck Flag = 0x01
	FlagCRC Flag = 0x02
)

// Frame is one BFC packet: a destination/source pair, a payload, and
// the type/flags that govern how it's acknowledged and checksummed.
type Frame struct {
	Dst     byte
	Src     byte
	Type    FrameType
	Flags   Flag
	Payload []byte
}

func (f Frame) hasFlag(fl Flag) bool { return f.Flags&fl != 0 }
