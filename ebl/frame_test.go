package ebl

import (
	"bytes"
	"testing"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name     string
		cmd      uint16
		size     uint16
		payload  []byte
		expected uint16
	}{
		{name: "empty payload", cmd: 0x01, size: 0, payload: nil, expected: 0x01},
		{name: "single byte", cmd: 0x02, size: 1, payload: []byte{0x10}, expected: 0x13},
		{name: "multiple bytes", cmd: 0x10, size: 4, payload: []byte{0x01, 0x02, 0x03, 0x04}, expected: 0x1E},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checksum(tt.cmd, tt.size, tt.payload)
			if got != tt.expected {
				t.Errorf("checksum() = 0x%04X, want 0x%04X", got, tt.expected)
			}
		})
	}
}

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	raw := encodeFrame(0x02, payload)

	size, err := decodeHeader(raw[:headerSize], 0x02)
	if err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	if int(size) != len(payload) {
		t.Fatalf("size = %d, want %d", size, len(payload))
	}

	frame, err := decodeBody(0x02, size, raw[headerSize:])
	if err != nil {
		t.Fatalf("decodeBody: %v", err)
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatalf("payload = %v, want %v", frame.Payload, payload)
	}
}

func TestDecodeHeaderRejectsCmdMismatch(t *testing.T) {
	raw := encodeFrame(0x02, []byte{0x01})
	if _, err := decodeHeader(raw[:headerSize], 0x03); err == nil {
		t.Fatal("expected cmd mismatch error")
	}
}

func TestDecodeBodyRejectsChecksumMismatch(t *testing.T) {
	raw := encodeFrame(0x02, []byte{0x01, 0x02})
	raw[headerSize] ^= 0xFF // corrupt first payload byte
	size, err := decodeHeader(raw[:headerSize], 0x02)
	if err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	if _, err := decodeBody(0x02, size, raw[headerSize:]); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
}
