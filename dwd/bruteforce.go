package dwd

// solveKey1Byte recovers key1[keyRotate] from an observed chk2 value,
// assuming key3 is all zero: with key3=0 the chk2 formula collapses to
// chk2 == (key1[kr]<<4) ^ 0x7F39.
func solveKey1Byte(chk2 uint16) byte {
	shifted := chk2 ^ 0x7F39
	return byte((shifted >> 4) & 0xFF)
}

// chk1OnlyMatches reports whether a Connect-1 reply satisfies chk1
// alone, for the key2 bruteforce pass: chk2 validation is disabled
// here.
func chk1OnlyMatches(reply connect1Reply) bool {
	return verifyChk1(reply.Chk1)
}

// ScanKey2Candidates tries every key2 value in [0, 0xFFFF] against
// link (key4 fixed at 0) and returns those whose Connect-1 reply
// satisfies chk1 alone. This issues up to 65536 transactions; callers
// typically bound attempts with a context-aware wrapper in practice.
func ScanKey2Candidates(link *Link, maxCandidates int) ([]uint16, error) {
	var hits []uint16
	for key2 := 0; key2 <= 0xFFFF; key2++ {
		reply, err := link.Transact(buildConnect1Request(uint16(key2), 0))
		if err != nil {
			continue
		}
		parsed, err := parseConnect1Response(reply)
		if err != nil {
			continue
		}
		if chk1OnlyMatches(parsed) {
			hits = append(hits, uint16(key2))
			if maxCandidates > 0 && len(hits) >= maxCandidates {
				return hits, nil
			}
		}
	}
	return hits, nil
}

// SolveKey1 repeatedly probes Connect-1 with the given key2 until a
// byte of key1 has been recovered for each of the 16 rotate
// positions, or maxAttempts is exhausted.
func SolveKey1(link *Link, key2 uint16, maxAttempts int) ([16]byte, error) {
	var key1 [16]byte
	solved := make([]bool, 16)
	remaining := 16

	for attempt := 0; attempt < maxAttempts && remaining > 0; attempt++ {
		reply, err := link.Transact(buildConnect1Request(key2, 0))
		if err != nil {
			continue
		}
		parsed, err := parseConnect1Response(reply)
		if err != nil {
			continue
		}
		kr := deriveKeyRotate(parsed.R6)
		if solved[kr] {
			continue
		}
		key1[kr] = solveKey1Byte(parsed.Chk2)
		solved[kr] = true
		remaining--
	}

	return key1, nil
}
