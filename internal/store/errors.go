package store

import "fmt"

// ErrorKind enumerates the store's typed error categories. The management
// API translates them to HTTP status codes (see adminapi's writeError).
type ErrorKind string

const (
	KindNotFound           ErrorKind = "not_found"
	KindConflict           ErrorKind = "conflict"
	KindCapacityExceeded   ErrorKind = "capacity_exceeded"
	KindValidationFailed   ErrorKind = "validation_failed"
	KindDependencyMissing  ErrorKind = "dependency_missing"
	KindConcurrentModified ErrorKind = "concurrent_modification"
	KindInvalidState       ErrorKind = "invalid_state"
)

// Error is the typed error every store operation returns on failure.
type Error struct {
	Kind     ErrorKind
	Resource string
	Name     string
	Reason   string
	cause    error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %s %q: %s", e.Resource, e.Kind, e.Name, e.Reason)
	}
	return fmt.Sprintf("%s %s: %s", e.Resource, e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.cause }

func newErr(kind ErrorKind, resource, name, reason string) *Error {
	return &Error{Kind: kind, Resource: resource, Name: name, Reason: reason}
}

func wrapErr(kind ErrorKind, resource, name, reason string, cause error) *Error {
	return &Error{Kind: kind, Resource: resource, Name: name, Reason: reason, cause: cause}
}

// IsNotFound reports whether err is a store Error of kind NotFound.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsConflict reports whether err is a store Error of kind Conflict.
func IsConflict(err error) bool { return hasKind(err, KindConflict) }

// IsCapacityExceeded reports whether err is a store Error of kind CapacityExceeded.
func IsCapacityExceeded(err error) bool { return hasKind(err, KindCapacityExceeded) }

// IsValidationFailed reports whether err is a store Error of kind ValidationFailed.
func IsValidationFailed(err error) bool { return hasKind(err, KindValidationFailed) }

// IsDependencyMissing reports whether err is a store Error of kind DependencyMissing.
func IsDependencyMissing(err error) bool { return hasKind(err, KindDependencyMissing) }

func hasKind(err error, kind ErrorKind) bool {
	var e *Error
	for err != nil {
		if se, ok := err.(*Error); ok {
			e = se
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
