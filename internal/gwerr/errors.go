// Package gwerr defines the gateway's error taxonomy.
//
// Every error that reaches a caller is an *Error carrying a Code. Validation
// errors (NOT_FOUND, PORT) are raised before any host mutation is attempted;
// batch operations accumulate per-item failures instead of returning an error.
package gwerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code categorizes gateway errors.
type Code string

const (
	// CodeProtocol marks a malformed frame or JSON payload.
	CodeProtocol Code = "PROTOCOL"

	// CodeTimeout marks work that did not complete on the owner in time.
	// The work may still be pending on the owner.
	CodeTimeout Code = "TIMEOUT"

	// CodeNotFound marks a graph, node, resource or definition that could not
	// be resolved. Always carries a remediation hint.
	CodeNotFound Code = "NOT_FOUND"

	// CodePort marks a port that is not valid for the resolved node kind.
	// Always lists the valid alternatives.
	CodePort Code = "PORT"

	// CodeCoercion marks a value that could not be boxed into a primitive.
	CodeCoercion Code = "COERCION"

	// CodeUnavailable marks a bridge whose owning context could not be set up.
	CodeUnavailable Code = "UNAVAILABLE"

	// CodeUnknownCommand marks a command kind with no handler.
	CodeUnknownCommand Code = "UNKNOWN_COMMAND"

	// CodeInvalidParams marks parameters that failed decoding or validation.
	CodeInvalidParams Code = "INVALID_PARAMS"

	// CodeHost marks a failure reported by the host API itself.
	CodeHost Code = "HOST"
)

// Error is the structured gateway error.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Hint tells the caller how to recover.
	Hint string

	// Valid lists accepted alternatives (ports, command kinds, types).
	Valid []string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Valid) > 0 {
		fmt.Fprintf(&b, ". Available: [%s]", strings.Join(e.Valid, ", "))
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, ". %s", e.Hint)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the Code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsTimeout reports whether err is a timeout error.
func IsTimeout(err error) bool { return Is(err, CodeTimeout) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return Is(err, CodeNotFound) }

// IsPort reports whether err is a port validation error.
func IsPort(err error) bool { return Is(err, CodePort) }

// Protocol creates a protocol error.
func Protocol(format string, args ...any) *Error {
	return &Error{Code: CodeProtocol, Message: fmt.Sprintf(format, args...)}
}

// Timeout creates a timeout error for work that exceeded the deadline.
func Timeout(what string, after fmt.Stringer) *Error {
	return &Error{
		Code:    CodeTimeout,
		Message: fmt.Sprintf("%s timed out after %s", what, after),
		Hint:    "The host may be busy; the work may still complete later",
	}
}

// NotFound creates a not-found error. hint must tell the caller what to do.
func NotFound(hint, format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...), Hint: hint}
}

// Port creates a port validation error listing the valid ports.
func Port(direction, port, node string, valid []string) *Error {
	sorted := append([]string(nil), valid...)
	sort.Strings(sorted)
	return &Error{
		Code:    CodePort,
		Message: fmt.Sprintf("%s port '%s' not found on node '%s'", direction, port, node),
		Valid:   sorted,
		Details: map[string]string{"direction": direction, "port": port, "node": node},
	}
}

// Coercion creates a coercion error.
func Coercion(typ string, err error) *Error {
	return &Error{
		Code:    CodeCoercion,
		Message: fmt.Sprintf("cannot box value as %s", typ),
		Err:     err,
	}
}

// Unavailable creates a bridge-unavailable error.
func Unavailable(reason string) *Error {
	return &Error{
		Code:    CodeUnavailable,
		Message: "owning context unavailable, cannot dispatch: " + reason,
	}
}

// UnknownCommand creates an unknown-command error listing all known kinds.
func UnknownCommand(kind string, known []string) *Error {
	sorted := append([]string(nil), known...)
	sort.Strings(sorted)
	return &Error{
		Code:    CodeUnknownCommand,
		Message: fmt.Sprintf("Unknown command: '%s'", kind),
		Valid:   sorted,
	}
}

// InvalidParams creates an invalid-parameters error.
func InvalidParams(kind string, err error) *Error {
	return &Error{
		Code:    CodeInvalidParams,
		Message: fmt.Sprintf("invalid parameters for '%s'", kind),
		Err:     err,
	}
}

// Host wraps a failure reported by the host API.
func Host(op string, err error) *Error {
	return &Error{Code: CodeHost, Message: op, Err: err}
}
