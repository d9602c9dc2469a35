package flashmap

import (
	"sort"

	"github.com/pkg/errors"
)

// Region is one contiguous, erase-block-sized span of flash.
type Region struct {
	Addr      uint32
	Size      uint32
	EraseSize uint32
}

func (r Region) end() uint32 { return r.Addr + r.Size }

// Map is a sorted, non-overlapping sequence of Regions forming a flash
// layout.
type Map []Region

// NewMap sorts regions by address and validates that they do not
// overlap. It does not require the regions to be contiguous — gaps are
// allowed, they simply can't be written to.
func NewMap(regions []Region) (Map, error) {
	m := append(Map(nil), regions...)
	sort.Slice(m, func(i, j int) bool { return m[i].Addr < m[j].Addr })
	for i := 1; i < len(m); i++ {
		if m[i].Addr < m[i-1].end() {
			return nil, errors.Errorf("flashmap: region %d (addr=0x%X) overlaps region %d (end=0x%X)",
				i, m[i].Addr, i-1, m[i-1].end())
		}
	}
	return m, nil
}

// Chunk is one region-aligned slice of a larger write, as produced by
// AlignToRegions.
type Chunk struct {
	Addr         uint32
	Size         uint32
	BufferOffset int
	BufferSize   int
	IsPartial    bool
}

// AlignToRegions partitions a [addr, addr+size) write into per-region
// Chunks. isPartial is set whenever a chunk does not cover its whole
// region (bufferOffset != 0 or bufferSize != region.Size). size == 0
// returns an empty, non-nil-error slice.
func AlignToRegions(addr uint32, size uint32, m Map) ([]Chunk, error) {
	if size == 0 {
		return []Chunk{}, nil
	}
	end := addr + size
	var chunks []Chunk
	cursor := addr
	for cursor < end {
		region, ok := findRegion(m, cursor)
		if !ok {
			return nil, errors.Errorf("flashmap: address 0x%X is not covered by any region", cursor)
		}
		regionEnd := region.end()
		chunkEnd := end
		if regionEnd < chunkEnd {
			chunkEnd = regionEnd
		}
		bufSize := int(chunkEnd - cursor)
		bufOff := int(cursor - region.Addr)
		isPartial := bufOff != 0 || uint32(bufSize) != region.Size

		chunks = append(chunks, Chunk{
			Addr:         region.Addr,
			Size:         region.Size,
			BufferOffset: bufOff,
			BufferSize:   bufSize,
			IsPartial:    isPartial,
		})
		cursor = chunkEnd
	}
	return chunks, nil
}

func findRegion(m Map, addr uint32) (Region, bool) {
	for _, r := range m {
		if addr >= r.Addr && addr < r.end() {
			return r, true
		}
	}
	return Region{}, false
}
