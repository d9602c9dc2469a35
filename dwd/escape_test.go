package dwd

import (
	"bytes"
	"testing"
)

func TestEncapsulateSingleEscape(t *testing.T) {
	input := []byte{0x76, 0x00, 0x1E, 0x00, 0x0D, 0x0C, 0x00, 0xA0}
	want := []byte{0x41, 0x54, 0x23, 0x01, 0x12, 0x76, 0x00, 0x1E, 0x00, 0x0C, 0x0C, 0x00, 0xA0, 0x0D}

	got := encapsulate(input)
	if !bytes.Equal(got, want) {
		t.Fatalf("encapsulate(%X) = %X, want %X", input, got, want)
	}
}

func TestEncapsulateMultipleEscapes(t *testing.T) {
	input := []byte{0x76, 0x00, 0x1E, 0x00, 0x0D, 0x0D, 0x0C, 0xA0}
	want := []byte{0x41, 0x54, 0x23, 0x02, 0x12, 0x13, 0x76, 0x00, 0x1E, 0x00, 0x0C, 0x0C, 0x0C, 0xA0, 0x0D}

	got := encapsulate(input)
	if !bytes.Equal(got, want) {
		t.Fatalf("encapsulate(%X) = %X, want %X", input, got, want)
	}
}

func TestDecapsulateReversesEncapsulate(t *testing.T) {
	inputs := [][]byte{
		{0x76, 0x00, 0x1E, 0x00, 0x0D, 0x0C, 0x00, 0xA0},
		{0x76, 0x00, 0x1E, 0x00, 0x0D, 0x0D, 0x0C, 0xA0},
		{0x01, 0x02, 0x03},
		{},
	}
	for _, in := range inputs {
		wire := encapsulate(in)
		got, err := decapsulate(wire)
		if err != nil {
			t.Fatalf("decapsulate(%X): %v", wire, err)
		}
		if !bytes.Equal(got, in) {
			t.Fatalf("roundtrip mismatch: got %X, want %X", got, in)
		}
	}
}

func TestDecapsulateRejectsMissingPrefix(t *testing.T) {
	if _, err := decapsulate([]byte{0x00, 0x00, 0x00, 0x00, 0x0D}); err == nil {
		t.Fatal("expected error for missing AT# prefix")
	}
}

func TestDecapsulateRejectsMissingTrailer(t *testing.T) {
	wire := encapsulate([]byte{0x01, 0x02})
	wire[len(wire)-1] = 0xFF
	if _, err := decapsulate(wire); err == nil {
		t.Fatal("expected error for missing trailer")
	}
}
