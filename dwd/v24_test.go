package dwd

import (
	"bytes"
	"testing"

	"github.com/siemens-mobile-hacks/siecore/serial"
)

func TestV24CommandBytesMatchSpec(t *testing.T) {
	wantEnable := []byte{0x41, 0x54, 0x23, 0xFD, 0x0D, 0x00, 0x66, 0x8D, 0xED}
	wantDisable := []byte{0x41, 0x54, 0x23, 0xFE, 0x0D, 0x00, 0x66, 0x8D, 0xED}
	if !bytes.Equal(v24EnableCmd, wantEnable) {
		t.Fatalf("v24EnableCmd = %X, want %X", v24EnableCmd, wantEnable)
	}
	if !bytes.Equal(v24DisableCmd, wantDisable) {
		t.Fatalf("v24DisableCmd = %X, want %X", v24DisableCmd, wantDisable)
	}
}

func TestSetV24WritesLiteralCommand(t *testing.T) {
	fp := &fakePort{}
	async := serial.Open(fp, 115200)
	defer async.Close()
	link := NewLink(async)

	if err := link.SetV24(true); err != nil {
		t.Fatalf("SetV24: %v", err)
	}
	fp.mu.Lock()
	sent := fp.writes[0]
	fp.mu.Unlock()
	if !bytes.Equal(sent, v24EnableCmd) {
		t.Fatalf("sent = %X, want %X", sent, v24EnableCmd)
	}
}
