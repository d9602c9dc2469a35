package chaos

import (
	"encoding/binary"
	"testing"
)

func buildInfoRecord(t *testing.T, model, vendor, imei string, flashBase uint32, regions []InfoRegion) []byte {
	t.Helper()
	buf := make([]byte, infoRecordSize)

	putString := func(off int, s string) {
		copy(buf[off:off+infoStringFieldSize], []byte(s))
	}
	putString(0, model)
	putString(16, vendor)
	putString(32, imei)
	// reserved0 at 48..64 left zero

	binary.LittleEndian.PutUint32(buf[64:68], flashBase)
	// reserved1 at 68..80 left zero

	binary.LittleEndian.PutUint16(buf[80:82], 0x1234) // flashVID
	binary.LittleEndian.PutUint16(buf[82:84], 0x5678) // flashPID
	buf[84] = 7                                        // flashSize
	binary.LittleEndian.PutUint16(buf[85:87], 512)     // writeBufferSize
	buf[87] = byte(len(regions))

	off := 88
	for _, r := range regions {
		count := r.Count - 1
		units := r.SizeBytes / 256
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(count))
		binary.LittleEndian.PutUint16(buf[off+2:off+4], uint16(units))
		off += 4
	}
	return buf
}

func TestParseInfoRecordRoundTrips(t *testing.T) {
	wantRegions := []InfoRegion{
		{Count: 4, SizeBytes: 65536},
		{Count: 124, SizeBytes: 8192},
	}
	buf := buildInfoRecord(t, "ELxx", "SIEMENS", "490154203237518", 0x02000000, wantRegions)

	rec, err := parseInfoRecord(buf)
	if err != nil {
		t.Fatalf("parseInfoRecord: %v", err)
	}
	if rec.Model != "ELxx" || rec.Vendor != "SIEMENS" || rec.IMEI != "490154203237518" {
		t.Fatalf("strings = %+v", rec)
	}
	if rec.FlashBase != 0x02000000 {
		t.Fatalf("FlashBase = 0x%X", rec.FlashBase)
	}
	if rec.FlashVID != 0x1234 || rec.FlashPID != 0x5678 || rec.FlashSize != 7 || rec.WriteBufferSize != 512 {
		t.Fatalf("flash fields wrong: %+v", rec)
	}
	if len(rec.Regions) != len(wantRegions) {
		t.Fatalf("got %d regions, want %d", len(rec.Regions), len(wantRegions))
	}
	for i, r := range wantRegions {
		if rec.Regions[i] != r {
			t.Fatalf("region %d = %+v, want %+v", i, rec.Regions[i], r)
		}
	}
}

func TestParseInfoRecordRejectsWrongLength(t *testing.T) {
	if _, err := parseInfoRecord(make([]byte, infoRecordSize-1)); err == nil {
		t.Fatal("expected error for short record")
	}
}

func TestParseInfoRecordRejectsTooManyRegions(t *testing.T) {
	buf := make([]byte, infoRecordSize)
	buf[87] = infoMaxRegions + 1
	if _, err := parseInfoRecord(buf); err == nil {
		t.Fatal("expected error for oversized regionsN")
	}
}

func TestCStringStopsAtNUL(t *testing.T) {
	if got := cString([]byte("abc\x00garbage")); got != "abc" {
		t.Fatalf("cString = %q", got)
	}
}

func TestCStringHandlesUnterminatedField(t *testing.T) {
	if got := cString([]byte("0123456789ABCDEF")); got != "0123456789ABCDEF" {
		t.Fatalf("cString = %q", got)
	}
}
