package chaos

import (
	"context"

	"github.com/siemens-mobile-hacks/siecore/flashmap"
)

// FlashMap fetches GET_INFO and turns its self-describing region table
// into a flashmap.Map: regions enumerate contiguously starting at
// FlashBase, each InfoRegion expanding to Count entries of SizeBytes.
func (l *Loader) FlashMap(ctx context.Context) (flashmap.Map, error) {
	info, err := l.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	return infoRegionsToMap(info)
}

func infoRegionsToMap(info InfoRecord) (flashmap.Map, error) {
	var regions []flashmap.Region
	addr := info.FlashBase
	for _, r := range info.Regions {
		for i := 0; i < r.Count; i++ {
			regions = append(regions, flashmap.Region{
				Addr:      addr,
				Size:      r.SizeBytes,
				EraseSize: r.SizeBytes,
			})
			addr += r.SizeBytes
		}
	}
	return flashmap.NewMap(regions)
}
