// Package chaos drives CHAOS, a resident flasher loader that BSL
// installs into RAM and hands control to. Once resident it answers a
// small one-byte-opcode command set over the same serial line, with a
// heartbeat keeping it in its command loop between transactions.
//
// Session orchestration follows the same phase-by-phase shape as this
// module's other session-oriented protocols: connect -> handshake ->
// paged transfer -> quit, expressed here as HELLO -> paged transfer ->
// QUIT, with Progress/ProgressCallback/Logger delivered through the
// usual functional-option Config. The chunk-then-verify loop a naive
// implementation would hand-roll is instead a call into the shared
// ioengine with a CHAOS-specific adaptive paging policy and heartbeat
// suspension around each transaction.
package chaos
