// Package dwd implements DWD, a binary debug protocol tunneled inside
// AT-command lines: every frame is wrapped in a small escape scheme
// (prefix "AT#", an escape table, a trailing 0x0D) so it can ride the
// same serial line as plain AT commands without the modem's line
// parser choking on an embedded carriage return.
//
// The escaping scheme itself is bespoke to this protocol. The
// surrounding request/response shape — a BuildXxxRequest paired with
// a ParseXxxResponse, little-endian fields throughout — follows a
// consistent function-pair idiom used across this module's other
// binary protocols.
package dwd
