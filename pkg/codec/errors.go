// Package codec provides the byte-level primitives shared by every layer
// of the HotSync protocol stack: fixed and variable integer fields,
// bitmasks, null-terminated strings, length-prefixed arrays, and CRC-16.
package codec

import "fmt"

// Kind identifies the taxonomy of an error raised anywhere in the stack.
type Kind string

const (
	KindFraming    Kind = "framing"
	KindProtocol   Kind = "protocol"
	KindTransport  Kind = "transport"
	KindRemote     Kind = "remote"
	KindEncoding   Kind = "encoding"
	KindValidation Kind = "validation"
)

// Error is the common error type used across every HotSync layer. It
// carries a machine-readable Kind, a human message, and optionally the
// offending bytes.
type Error struct {
	kind    Kind
	msg     string
	Bytes   []byte
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Kind returns the machine-readable error category.
func (e *Error) Kind() Kind { return e.kind }

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.wrapped }

// NewError constructs a HotSync error of the given kind.
func NewError(kind Kind, msg string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(msg, args...)}
}

// WrapError constructs a HotSync error wrapping an underlying cause.
func WrapError(kind Kind, err error, msg string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(msg, args...), wrapped: err}
}

// WithBytes attaches the offending bytes to an error for diagnostics.
func (e *Error) WithBytes(b []byte) *Error {
	e.Bytes = append([]byte(nil), b...)
	return e
}

// FramingError reports a signature/checksum/CRC violation at the framing layer.
func FramingError(msg string, args ...interface{}) *Error { return NewError(KindFraming, msg, args...) }

// ProtocolError reports an ordering or flag violation above the framing layer.
func ProtocolError(msg string, args ...interface{}) *Error {
	return NewError(KindProtocol, msg, args...)
}

// TransportError reports stream I/O failure or retry/timeout exhaustion.
func TransportError(msg string, args ...interface{}) *Error {
	return NewError(KindTransport, msg, args...)
}

// ValidationError reports a caller-supplied value out of range.
func ValidationError(msg string, args ...interface{}) *Error {
	return NewError(KindValidation, msg, args...)
}

// EncodingError reports a text or content codec failure.
func EncodingError(msg string, args ...interface{}) *Error {
	return NewError(KindEncoding, msg, args...)
}

// RemoteErr reports a DLP response whose status code was not OK.
// It is distinct from Error because callers match on Status, not Kind,
// via ignoredStatuses.
type RemoteErr struct {
	Status  uint16
	Command byte
}

func (e *RemoteErr) Error() string {
	return fmt.Sprintf("remote: dlp command 0x%02x returned status %d", e.Command, e.Status)
}

// Kind implements the same taxonomy interface as *Error.
func (e *RemoteErr) Kind() Kind { return KindRemote }

