package hubcore

import (
	"errors"
	"fmt"
)

// Kind is the closed vocabulary of error categories the hub surfaces,
// mapped to JSON-RPC error codes at the transport boundary.
type Kind string

const (
	KindInvalidRequest      Kind = "invalid-request"
	KindMethodNotFound      Kind = "method-not-found"
	KindInvalidParams       Kind = "invalid-params"
	KindInternalError       Kind = "internal-error"
	KindTaskNotFound        Kind = "task-not-found"
	KindTaskNotCancelable   Kind = "task-not-cancelable"
	KindNotImplemented      Kind = "not-implemented"
	KindReserved            Kind = "reserved-method"
	KindTransportUnavailable Kind = "transport-unavailable"
	KindTimeout             Kind = "timeout"
	KindUnauthorized        Kind = "unauthorized"
	KindNoSuitableAgents    Kind = "no-suitable-agents"
	KindConsensusNotReached Kind = "consensus-not-reached"
	KindHandlerFailure      Kind = "handler-failure"
)

// Error is a hubcore error: a Kind plus a human-readable message and an
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError constructs an *Error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it is, or wraps, a *Error. It
// returns KindInternalError for any other error, matching the
// transport layer's fallback JSON-RPC code.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternalError
}

// Sentinel structural-validation errors raised by Message.Normalize.
var (
	ErrInvalidMessage  = NewError(KindInvalidParams, "message is missing a required field")
	ErrMessageFromHost = NewError(KindInvalidParams, "message claims to originate from the host identity")
)
