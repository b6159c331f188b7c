// Package status implements the ic_status-like error taxonomy of spec §7,
// carried as a typed error rather than the C original's thread-local
// error-context buffer (see DESIGN.md Open Question 1).
package status

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Code is the wire-visible status of a reply: zero/negative commands on
// the IC wire encode it directly (see icwire.Command), and the HTTP
// gateway maps it to an HTTP status code per spec §4.7.
type Code int32

const (
	Ok Code = iota
	Exn
	Retry
	Abort
	Invalid
	Unimplemented
	ServerError
	ProxyError
	TimedOut
	Canceled
)

func (c Code) String() string {
	switch c {
	case Ok:
		return "Ok"
	case Exn:
		return "Exn"
	case Retry:
		return "Retry"
	case Abort:
		return "Abort"
	case Invalid:
		return "Invalid"
	case Unimplemented:
		return "Unimplemented"
	case ServerError:
		return "ServerError"
	case ProxyError:
		return "ProxyError"
	case TimedOut:
		return "TimedOut"
	case Canceled:
		return "Canceled"
	default:
		return fmt.Sprintf("Code(%d)", int32(c))
	}
}

// HTTPStatus implements the mapping table of spec §4.7.
func (c Code) HTTPStatus() int {
	switch c {
	case Ok:
		return http.StatusOK
	case Exn:
		return http.StatusInternalServerError
	case Retry, Abort, Invalid, ProxyError, ServerError, TimedOut, Canceled:
		return http.StatusBadRequest
	case Unimplemented:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is the error value carried end to end from a codec/dispatch
// failure to the reply path; it replaces the original's thread-local
// "error context" buffer (spec §7) with a value threaded through normal
// Go error returns - the single-goroutine-per-channel concurrency model
// (spec §5) makes a side channel unnecessary.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// As reports the Code an arbitrary error carries, defaulting to
// ServerError for anything that isn't a *status.Error - the behavior
// spec §4.6 implies for "unexpected application failure".
func As(err error) Code {
	if err == nil {
		return Ok
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ServerError
}
