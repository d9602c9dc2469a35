// Package ebl implements EBL, the second-stage boot firmware a phone
// runs after BSL hands off. EBL speaks small checksummed request/
// response packets over the same serial link BSL used.
//
// Frame layout: a 2-byte little-endian start token (value 2), a
// 2-byte little-endian command code, a 2-byte little-endian payload
// size, the payload itself, a 2-byte little-endian checksum, and a
// 2-byte little-endian end token (value 3). The checksum is the
// 16-bit sum of (cmd + size + every payload byte).
//
// This package is adapted from the Infineon Cypress bootloader
// "build frame, checksum, parse and validate" shape: SOP/EOP single
// bytes and a 2's-complement checksum become EBL's two-byte start/end
// tokens and an additive mod-2^16 checksum, but the request/response
// cycle (Transact) is the same build-then-send, read-header-then-body
// dance.
package ebl
