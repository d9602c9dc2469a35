// Package bfc implements BFC, a multiplexed, checksummed framing
// protocol used by Siemens service software to carry many independent
// command/response channels ("destinations") over one serial link.
//
// A Bus owns the port's raw byte stream exclusively, for the duration
// of the session. Frames are demultiplexed by destination byte into
// per-dst receiver slots (bfc.receiverSlot), with frame type constants
// modeled on RoganDawes-munifying__proto_bootloader.go's command-table
// enum style. The exec/auto-ACK shape is a straightforward
// read-validate-unwrap request/response flow, generalized here to run
// over a multiplexed bus instead of a single channel.
package bfc
