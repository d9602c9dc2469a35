package chaos

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
)

// infoRecordSize is GET_INFO's fixed reply length: a 16-byte
// model/vendor/imei/reserved0 block (64B), flashBase (4B), reserved1
// (12B), flashVID/flashPID/flashSize/writeBufferSize/regionsN (8B),
// and up to 10 region entries of 4B each.
const infoRecordSize = 128

const (
	infoStringFieldSize = 16
	infoMaxRegions      = 10
)

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// parseInfoRecord decodes a 128-byte GET_INFO reply.
func parseInfoRecord(buf []byte) (InfoRecord, error) {
	if len(buf) != infoRecordSize {
		return InfoRecord{}, core.NewError(tag, "parse-info", core.KindProtocolViolation,
			errors.Errorf("info record length = %d, want %d", len(buf), infoRecordSize))
	}

	var off int
	readString := func() string {
		s := cString(buf[off : off+infoStringFieldSize])
		off += infoStringFieldSize
		return s
	}

	rec := InfoRecord{}
	rec.Model = readString()
	rec.Vendor = readString()
	rec.IMEI = readString()
	off += infoStringFieldSize // reserved0

	rec.FlashBase = binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	off += 12 // reserved1

	rec.FlashVID = binary.LittleEndian.Uint16(buf[off : off+2])
	off += 2
	rec.FlashPID = binary.LittleEndian.Uint16(buf[off : off+2])
	off += 2
	rec.FlashSize = buf[off]
	off++
	rec.WriteBufferSize = binary.LittleEndian.Uint16(buf[off : off+2])
	off += 2
	regionsN := int(buf[off])
	off++

	if regionsN > infoMaxRegions {
		return InfoRecord{}, core.NewError(tag, "parse-info", core.KindProtocolViolation,
			errors.Errorf("regionsN = %d exceeds maximum %d", regionsN, infoMaxRegions))
	}

	rec.Regions = make([]InfoRegion, regionsN)
	for i := 0; i < regionsN; i++ {
		count := binary.LittleEndian.Uint16(buf[off : off+2])
		off += 2
		sizeUnits := binary.LittleEndian.Uint16(buf[off : off+2])
		off += 2
		rec.Regions[i] = InfoRegion{
			Count:     int(count) + 1,
			SizeBytes: uint32(sizeUnits) * 256,
		}
	}
	return rec, nil
}
