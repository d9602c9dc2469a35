package chaos

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/siemens-mobile-hacks/siecore/serial"
)

func TestXOR16AndXOR8(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}
	if got := xor16(data); got != 0x0004 {
		t.Fatalf("xor16 = 0x%04X, want 0x0004", got)
	}
	if got := xor8(data); got != 0x04 {
		t.Fatalf("xor8 = 0x%02X, want 0x04", got)
	}
}

func TestReadPageValidatesChecksumAndStatus(t *testing.T) {
	fp := &fakePort{}
	async := serial.Open(fp, 115200)
	defer async.Close()
	l := NewLoader(async, WithPageTimeout(100*time.Millisecond))

	data := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	reply := make([]byte, 0, len(data)+4)
	reply = append(reply, data...)
	var statusBuf, chkBuf [2]byte
	binary.LittleEndian.PutUint16(statusBuf[:], statusOK)
	binary.LittleEndian.PutUint16(chkBuf[:], xor16(data))
	reply = append(reply, statusBuf[:]...)
	reply = append(reply, chkBuf[:]...)

	go func() {
		time.Sleep(5 * time.Millisecond)
		fp.feed(reply)
	}()

	got, err := l.readPage(context.Background(), 0x1000, len(data))
	if err != nil {
		t.Fatalf("readPage: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("got %X, want %X", got, data)
	}

	fp.mu.Lock()
	sent := fp.writes[0]
	fp.mu.Unlock()
	if sent[0] != byte(OpReadFlash) {
		t.Fatalf("opcode = 0x%02X", sent[0])
	}
	if binary.BigEndian.Uint32(sent[1:5]) != 0x1000 {
		t.Fatalf("addr field wrong: %X", sent[1:5])
	}
	if binary.BigEndian.Uint32(sent[5:9]) != uint32(len(data)) {
		t.Fatalf("size field wrong: %X", sent[5:9])
	}
}

func TestReadPageRejectsChecksumMismatch(t *testing.T) {
	fp := &fakePort{}
	async := serial.Open(fp, 115200)
	defer async.Close()
	l := NewLoader(async, WithPageTimeout(100*time.Millisecond))

	data := []byte{0x01, 0x02}
	reply := append(append([]byte{}, data...), 0x4F, 0x4B, 0xFF, 0xFF)

	go func() {
		time.Sleep(5 * time.Millisecond)
		fp.feed(reply)
	}()

	if _, err := l.readPage(context.Background(), 0, len(data)); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
}

func TestWritePageReportsChecksumError(t *testing.T) {
	fp := &fakePort{}
	async := serial.Open(fp, 115200)
	defer async.Close()
	l := NewLoader(async, WithPageTimeout(100*time.Millisecond))

	go func() {
		time.Sleep(5 * time.Millisecond)
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], statusChecksumError)
		fp.feed(buf[:])
	}()

	err := l.writePage(context.Background(), 0x2000, []byte{0x11, 0x22})
	if err == nil {
		t.Fatal("expected checksum-error status to surface as an error")
	}
}

func TestWritePageFrameLayout(t *testing.T) {
	fp := &fakePort{}
	async := serial.Open(fp, 115200)
	defer async.Close()
	l := NewLoader(async, WithPageTimeout(100*time.Millisecond))

	data := []byte{0x11, 0x22, 0x33}
	go func() {
		time.Sleep(5 * time.Millisecond)
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], statusOK)
		fp.feed(buf[:])
	}()

	if err := l.writePage(context.Background(), 0x3000, data); err != nil {
		t.Fatalf("writePage: %v", err)
	}

	fp.mu.Lock()
	sent := fp.writes[0]
	fp.mu.Unlock()
	if sent[0] != byte(OpWriteFlash) {
		t.Fatalf("opcode = 0x%02X", sent[0])
	}
	if binary.BigEndian.Uint32(sent[1:5]) != 0x3000 {
		t.Fatalf("addr field wrong: %X", sent[1:5])
	}
	if binary.BigEndian.Uint32(sent[5:9]) != uint32(len(data)) {
		t.Fatalf("size field wrong: %X", sent[5:9])
	}
	if string(sent[9:9+len(data)]) != string(data) {
		t.Fatalf("payload wrong: %X", sent[9:9+len(data)])
	}
	if sent[len(sent)-1] != xor8(data) {
		t.Fatalf("trailing checksum wrong: 0x%02X", sent[len(sent)-1])
	}
}

func TestChaosReadAPIPageSizeMatchesConfig(t *testing.T) {
	fp := &fakePort{}
	async := serial.Open(fp, 115200)
	defer async.Close()
	l := NewLoader(async, WithPageSizes(4096, 128))
	api := chaosReadAPI{loader: l}
	if api.PageSize() != 4096 {
		t.Fatalf("PageSize = %d, want 4096", api.PageSize())
	}
}
