package dwd

import "testing"

func TestVerifyChk1IsKeyIndependent(t *testing.T) {
	want := (rand1*8 - rand2) ^ 0xD427
	if !verifyChk1(want) {
		t.Fatal("expected chk1 formula to validate its own computed value")
	}
	if verifyChk1(want ^ 1) {
		t.Fatal("expected a perturbed chk1 to fail validation")
	}
}

func TestDeriveKeyRotateWrapsIntoNibble(t *testing.T) {
	for r6 := 0; r6 < 64; r6++ {
		kr := deriveKeyRotate(uint16(r6))
		if kr < 0 || kr > 0xF {
			t.Fatalf("keyRotate %d out of nibble range for r6=%d", kr, r6)
		}
	}
}

func TestVerifyChk2RoundTripsWithSolveKey1Byte(t *testing.T) {
	var ks Keyset
	ks.Key1[5] = 0x3C
	// key3 left zero, matching the bruteforce assumption.
	keyRotate := 5
	chk2 := (uint16(ks.Key1[keyRotate])<<4 ^ (uint16(ks.Key3[0xF-keyRotate])<<3 ^ 0x7F39))

	if !verifyChk2(ks, keyRotate, chk2) {
		t.Fatal("verifyChk2 rejected its own computed value")
	}

	got := solveKey1Byte(chk2)
	if got != ks.Key1[keyRotate] {
		t.Fatalf("solveKey1Byte = 0x%02X, want 0x%02X", got, ks.Key1[keyRotate])
	}
}

func TestBuildConnect1RequestRoundTripsThroughParse(t *testing.T) {
	req := buildConnect1Request(0x1234, 0x5678)
	if len(req) != 10 {
		t.Fatalf("connect-1 request length = %d, want 10", len(req))
	}
	if Opcode(req[0]) != OpConnect1Request {
		t.Fatalf("opcode = 0x%02X, want 0x%02X", req[0], OpConnect1Request)
	}
}

func TestParseConnect1ResponseRejectsWrongOpcode(t *testing.T) {
	frame := make([]byte, 9)
	frame[0] = byte(OpReadResponse)
	if _, err := parseConnect1Response(frame); err == nil {
		t.Fatal("expected error for wrong opcode")
	}
}

func TestIsConnect2ResponseAcceptsMinimalFrame(t *testing.T) {
	if !isConnect2Response([]byte{byte(OpConnect2Response), 0, 0, 0}) {
		t.Fatal("expected a 4-byte opcode-0x56 frame to be accepted")
	}
	if isConnect2Response([]byte{byte(OpConnect2Response), 0, 0}) {
		t.Fatal("expected a too-short frame to be rejected")
	}
}
