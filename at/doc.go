// Package at implements the line-oriented AT command/response engine
// shared by the CGSN and DWD protocols, and used directly by BFC
// during its connect handshake.
//
// It follows the classification style of a Hayes-compatible modem
// channel: commands are sent CRLF-terminated, responses arrive as
// CRLF-terminated lines, a final result code (OK/ERROR/CONNECT/...)
// completes the command, and unsolicited result codes can arrive
// asynchronously between commands.
//
// # Command kinds
//
// A Channel dispatches an in-flight Command's incoming lines according
// to its Kind: Default, Multiline, PrefixFiltered, NoPrefix,
// NoPrefixAll, Binary, Numeric, Dial, or NoResponse. See Kind's doc
// comment for the exact per-kind rule.
//
// # Usage
//
//	ch := at.NewChannel(port)
//	ch.Start()
//	defer ch.Stop()
//	resp, err := ch.Send(ctx, at.Command{Text: "AT^SIFS", Kind: at.KindDefault, Timeout: time.Second})
package at
