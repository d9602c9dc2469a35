// Package cgsn implements CGSN, a firmware-side patch that exposes
// memory peek/poke/execute operations through custom AT-command
// suffixes (AT+CGSN:, AT+CGSN*, AT+CGSN@, AT+CGSN%). Every operation
// is built directly atop the at package's KindBinary command: CGSN's
// replies are an 0xA1 ACK byte followed by a fixed-size binary
// payload, exactly the shape at.Channel's binary dispatch consumes.
//
// Command-string formatting follows a Build*Cmd naming and
// validate-before-build style: buildReadCmd, buildWriteCmd and
// buildBulkQueryCmd reject malformed arguments before allocating a
// command string; buildExecuteCmd accepts any address and registers.
package cgsn
