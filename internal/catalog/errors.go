package catalog

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of catalog operations.
type ErrorKind int

const (
	// KindTransport covers connectivity failures: dial errors, timeouts,
	// interrupted reads. The request may never have reached the service.
	KindTransport ErrorKind = iota

	// KindProtocol covers unexpected response shapes or statuses: malformed
	// JSON, HTML error pages, statuses the client has no mapping for.
	KindProtocol

	// KindUnauthorized means the bearer token was rejected.
	KindUnauthorized

	// KindForbidden means the account lacks the entitlement for the
	// operation (e.g. spawning a machine outside the subscription tier).
	KindForbidden

	// KindConflict means the service refused due to its own state, e.g.
	// another machine is already active.
	KindConflict
)

// String returns a short label for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by all catalog operations.
type Error struct {
	Kind    ErrorKind
	Status  int    // HTTP status when one was received, 0 otherwise
	Message string // Service-provided message when one could be decoded
	Err     error  // Underlying cause (transport error, decode error)
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s (%d)", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a catalog *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}
