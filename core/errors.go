package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error by failure mode.
type Kind int

const (
	// KindUnknown is the zero value; never produced by this module.
	KindUnknown Kind = iota

	// KindTransportClosed means the serial port closed while an
	// operation was pending. Fatal for the current session.
	KindTransportClosed

	// KindTimeout means no expected byte or line arrived within the
	// configured window.
	KindTimeout

	// KindProtocolViolation means a frame type, length, start/end
	// token, or opcode was unexpected. Never retried silently.
	KindProtocolViolation

	// KindIntegrityFailure means a header-XOR, CRC, or checksum
	// mismatch was detected. Triggers adaptive retry/back-off in the
	// I/O engine.
	KindIntegrityFailure

	// KindAuthDenied means a BFC authentication challenge was
	// rejected by the phone.
	KindAuthDenied

	// KindDenied means a BSL rejection ACK (0x1B/0x1C) was received.
	KindDenied

	// KindAlignment means the caller supplied an address or length
	// that violates a protocol's alignment requirement.
	KindAlignment

	// KindCancelled means the operation was stopped by caller
	// cancellation; a partial result accompanies this kind.
	KindCancelled

	// KindUnsupported means the request is valid but this module (or
	// the attached phone) does not support it.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindTransportClosed:
		return "transport-closed"
	case KindTimeout:
		return "timeout"
	case KindProtocolViolation:
		return "protocol-violation"
	case KindIntegrityFailure:
		return "integrity-failure"
	case KindAuthDenied:
		return "authentication-denied"
	case KindDenied:
		return "denied"
	case KindAlignment:
		return "alignment"
	case KindCancelled:
		return "cancelled"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is the structured error type every protocol package returns for
// classified failures. It implements error and Unwrap so that
// errors.Is/errors.As and github.com/pkg/errors' Cause both work.
type Error struct {
	Kind Kind
	Op   string
	Tag  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Tag, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Tag, e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Cause returns the wrapped error, so that github.com/pkg/errors' Cause
// walks through an *Error to the error it carries. It is nil for an
// Error built without one.
func (e *Error) Cause() error { return e.Err }

// NewError constructs a classified Error, wrapping err with the given
// tag (the protocol's logging tag: at, bfc, dwd, cgsn, chaos, bsl, ebl)
// and operation name.
func NewError(tag, op string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: op, Tag: tag, Err: err}
}

// KindOf extracts the Kind carried by err, walking the Unwrap/Cause
// chain. Returns KindUnknown if no *Error is found.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// Is reports whether err (or anything in its chain) carries kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

var (
	// ErrPortClosed is returned by the serial package for any
	// operation attempted on (or completed by) a closed port.
	ErrPortClosed = errors.New("serial port closed")

	// ErrTimeout is returned when a bounded wait expires without the
	// expected data arriving.
	ErrTimeout = errors.New("timed out waiting for response")

	// ErrCancelled is returned when a caller-supplied cancellation
	// signal fires before an operation completes.
	ErrCancelled = errors.New("operation cancelled")
)
