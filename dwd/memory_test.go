package dwd

import (
	"bytes"
	"testing"
)

func TestBuildReadRequestRejectsOversizedLength(t *testing.T) {
	if _, err := BuildReadRequest(0x1000, MaxReadChunk+1); err == nil {
		t.Fatal("expected error for oversized read")
	}
}

func TestBuildWriteRequestRejectsOversizedPayload(t *testing.T) {
	data := make([]byte, MaxWriteChunk+1)
	if _, err := BuildWriteRequest(0x1000, data); err == nil {
		t.Fatal("expected error for oversized write")
	}
}

func TestBuildReadRequestEncodesSizeAndAddr(t *testing.T) {
	req, err := BuildReadRequest(0x12345678, 0x20)
	if err != nil {
		t.Fatalf("BuildReadRequest: %v", err)
	}
	want := []byte{byte(OpReadRequest), 0x20, 0x00, 0x78, 0x56, 0x34, 0x12}
	if !bytes.Equal(req, want) {
		t.Fatalf("req = %X, want %X", req, want)
	}
}

func TestParseReadResponseRejectsWrongOpcode(t *testing.T) {
	if _, err := ParseReadResponse([]byte{byte(OpWriteResponse), 0, 0, 0}); err == nil {
		t.Fatal("expected error for wrong opcode")
	}
}
