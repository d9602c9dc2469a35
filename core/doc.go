// Package core defines the error vocabulary shared by every protocol
// package in this module (serial, at, ioengine, bsl, ebl, bfc, cgsn, dwd,
// chaos).
//
// # Error Kinds
//
// Every error that crosses a package boundary is classified into one of
// a small set of Kinds (TransportClosed, Timeout, ProtocolViolation, ...).
// Callers that need to branch on the failure mode use KindOf or the
// per-kind Is* helpers rather than comparing error strings or concrete
// types.
//
// # Wrapping
//
// Layers wrap lower-level errors with github.com/pkg/errors so that
// Cause() always recovers the original error while the message chain
// stays readable in logs:
//
//	if err != nil {
//	    return errors.Wrap(err, "read memory page")
//	}
package core
