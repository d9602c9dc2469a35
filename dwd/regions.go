package dwd

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// ebuIDAddr is where the External Bus Unit's revision ID lives.
const ebuIDAddr = 0xF0000008

// RegionKind classifies a discovered memory range.
type RegionKind int

const (
	RegionUnknown RegionKind = iota
	RegionFlash
	RegionRAM
	RegionTCM
	RegionSRAM
)

func (k RegionKind) String() string {
	switch k {
	case RegionFlash:
		return "flash"
	case RegionRAM:
		return "ram"
	case RegionTCM:
		return "tcm"
	case RegionSRAM:
		return "sram"
	default:
		return "unknown"
	}
}

// MemoryRegion is one entry in the discovered memory map.
type MemoryRegion struct {
	Name string
	Kind RegionKind
	Addr uint32
	Size uint32
}

func (r MemoryRegion) end() uint32 { return r.Addr + r.Size }

// addrselStride picks the address of chip-select 0's ADDRSEL register;
// addrselStep gives the distance between chip-selects. Both changed
// between EBU hardware revisions.
func addrselStride(rev byte) uint32 {
	if rev < 8 {
		return 0xF0000080
	}
	return 0xF0000020
}

func addrselStep(rev byte) uint32 {
	if rev < 8 {
		return 8
	}
	return 4
}

// decodeAddrsel splits one chip-select's ADDRSEL register into a base
// address, size, and enabled flag.
func decodeAddrsel(addrsel uint32) (base uint32, size uint32, enabled bool) {
	base = addrsel & 0xFFFFF000
	shift := 27 - ((addrsel >> 4) & 0xF)
	size = 1 << shift
	enabled = addrsel&0x1 != 0
	return base, size, enabled
}

func classifyBase(base uint32, agen uint32) RegionKind {
	topByte := base >> 24
	if topByte >= 0xA0 && topByte <= 0xAF {
		return RegionFlash
	}
	if agen == 3 || agen == 4 {
		return RegionRAM
	}
	return RegionUnknown
}

// DiscoverRegions reads the EBU ID and decodes each of the four
// chip-selects into a merged, named memory map.
func DiscoverRegions(c *Client) ([]MemoryRegion, error) {
	idRaw, err := c.ReadMemory(ebuIDAddr, 4)
	if err != nil {
		return nil, errors.Wrap(err, "dwd: read EBU ID")
	}
	rev := byte(binary.LittleEndian.Uint32(idRaw))

	var regions []MemoryRegion
	base := addrselStride(rev)
	step := addrselStep(rev)
	for i := uint32(0); i < 4; i++ {
		raw, err := c.ReadMemory(base+i*step, 4)
		if err != nil {
			return nil, errors.Wrapf(err, "dwd: read ADDRSEL %d", i)
		}
		addrsel := binary.LittleEndian.Uint32(raw)
		csBase, csSize, enabled := decodeAddrsel(addrsel)
		if !enabled {
			continue
		}

		busconRaw, err := c.ReadMemory(base+i*step+4, 4)
		agen := uint32(0)
		if err == nil {
			agen = binary.LittleEndian.Uint32(busconRaw) & 0xF
		}

		kind := classifyBase(csBase, agen)
		regions = append(regions, MemoryRegion{
			Name: fmt.Sprintf("cs%d", i),
			Kind: kind,
			Addr: csBase,
			Size: csSize,
		})
	}

	regions = append(regions,
		MemoryRegion{Name: "tcm", Kind: RegionTCM, Addr: 0xFFFF0000, Size: 16 * 1024},
		MemoryRegion{Name: "sram", Kind: RegionSRAM, Addr: 0, Size: 96 * 1024},
	)

	return mergeRegions(regions), nil
}

// mergeRegions sorts by address and merges adjacent entries of the
// same kind; cosmetic name collisions are disambiguated with a
// numeric suffix. Merging and naming are cosmetic, not load-bearing
// for correctness.
func mergeRegions(regions []MemoryRegion) []MemoryRegion {
	sorted := append([]MemoryRegion(nil), regions...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Addr < sorted[j-1].Addr; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	var merged []MemoryRegion
	for _, r := range sorted {
		if n := len(merged); n > 0 && merged[n-1].Kind == r.Kind && merged[n-1].end() == r.Addr {
			merged[n-1].Size += r.Size
			continue
		}
		merged = append(merged, r)
	}

	seen := make(map[string]int)
	for i, r := range merged {
		seen[r.Name]++
		if seen[r.Name] > 1 {
			merged[i].Name = fmt.Sprintf("%s_%d", r.Name, seen[r.Name]-1)
		}
	}
	return merged
}
