// Package bsl implements BSL, the boot-ROM handshake a Siemens phone
// speaks before any application firmware has run. A BSL scan
// repeatedly sends the two-byte probe "AT" (optionally toggling DTR
// as an ignition signal) until the boot ROM answers with a single
// byte identifying its CPU variant; a single framed payload is then
// uploaded and the boot ROM's one-byte ACK reports acceptance.
//
// Grounded on OpenChirp's ccboot Sync/SendPacket attempt-budget loop
// shape (numAttempts, sentinel bytes, timeout sentinel errors) and a
// build-frame-then-checksum framing idiom, with BSL's XOR checksum in
// place of a 2's-complement sum.
package bsl
