package ebl

// Command codes, chosen in the same low-byte-range style as the rest
// of this command set; documented in DESIGN.md as an assumption.
const (
	cmdSetBaudrate  uint16 = 0x01
	cmdSetEBUConfig uint16 = 0x02
	cmdCFIProbe1    uint16 = 0x03
	cmdCFIProbe2    uint16 = 0x04
)

// EBUConfig is the 88-byte EBU (external bus unit) configuration
// record: a fixed 24-byte prologue followed by four
// (cs, addrsel, buscon, busap) quadruples, one per chip-select.
type EBUConfig struct {
	ChipSelects [4]EBUChipSelect
}

// EBUChipSelect is one of EBUConfig's four chip-select descriptors.
type EBUChipSelect struct {
	CS      uint32
	AddrSel uint32
	BusCon  uint32
	BusAP   uint32
}

// FlashDescriptor is one of the four 64-byte CFI flash descriptors
// ProbeCFI assembles from its two-stage request/response exchange.
// Its internal fields beyond overall size are undocumented here, so
// this module carries it as an opaque blob for callers to interpret
// against their own CFI tables.
type FlashDescriptor [64]byte
