// Package errs defines the closed error-kind enumeration used across the
// server so that callers can branch on policy ("close the session",
// "reply PermissionDenied", "retry once") instead of matching strings.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the error kinds from the propagation policy table.
type Kind int

const (
	Internal Kind = iota
	TransportError
	ProtocolError
	AuthError
	PermissionError
	ValidationError
	NotFound
	Conflict
	StoreError
	RateLimited
	Timeout
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case TransportError:
		return "transport_error"
	case ProtocolError:
		return "protocol_error"
	case AuthError:
		return "auth_error"
	case PermissionError:
		return "permission_error"
	case ValidationError:
		return "validation_error"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case StoreError:
		return "store_error"
	case RateLimited:
		return "rate_limited"
	case Timeout:
		return "timeout"
	case Cancelled:
		return "cancelled"
	default:
		return "internal"
	}
}

// Error carries a Kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err (which may be nil) with kind and an operation label.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or anything it wraps) carries kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to Internal if err does not
// carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// TerminatesSession reports whether the propagation policy for kind is to
// close the owning session: true for TransportError and ProtocolError only.
// AuthError reports false here; internal/server's control loop rejects and
// closes the connection on an AuthError itself.
func TerminatesSession(kind Kind) bool {
	switch kind {
	case TransportError, ProtocolError:
		return true
	default:
		return false
	}
}
