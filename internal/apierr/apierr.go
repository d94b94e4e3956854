// Package apierr defines the named error kinds from spec.md §7 and maps
// them to HTTP status codes. The teacher's handlers call http.Error with a
// status literal inline per failure branch; this repo centralizes that
// into a typed error so six distinct kinds with distinct propagation
// policy (retried vs. not, logged vs. not) stay consistent across every
// handler.
package apierr

import "fmt"

// Kind names one of the error kinds enumerated in spec.md §7.
type Kind int

const (
	// KindValidation is a malformed request input: caller's fault, not
	// retried.
	KindValidation Kind = iota
	// KindAuth is a missing or invalid token.
	KindAuth
	// KindNotFound is a missing resource.
	KindNotFound
	// KindPolicyDenied is a reset attempted outside the sample store.
	KindPolicyDenied
	// KindStore is a failed store transaction; callers may retry.
	KindStore
	// KindTransientConfig is a condition like the stats cache being
	// recomputed; callers should retry.
	KindTransientConfig
)

// Error is a typed, user-facing error carrying a Kind and a message safe
// to return verbatim in a JSON {"error": "..."} body. Status overrides the
// Kind's default HTTP status when non-zero: KindAuth defaults to 401 for a
// missing/unconfigured token, but a wrong token is 403, so AuthForbidden
// sets Status explicitly rather than adding a seventh Kind for one status
// variant.
type Error struct {
	Kind    Kind
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

// New constructs an *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation constructs a KindValidation error.
func Validation(format string, args ...any) *Error { return New(KindValidation, format, args...) }

// Auth constructs a KindAuth error defaulting to 401 (missing/unconfigured
// token).
func Auth(format string, args ...any) *Error { return New(KindAuth, format, args...) }

// AuthForbidden constructs a KindAuth error with a 403 status (a token was
// presented but did not match).
func AuthForbidden(format string, args ...any) *Error {
	e := New(KindAuth, format, args...)
	e.Status = 403
	return e
}

// NotFound constructs a KindNotFound error.
func NotFound(format string, args ...any) *Error { return New(KindNotFound, format, args...) }

// PolicyDenied constructs a KindPolicyDenied error.
func PolicyDenied(format string, args ...any) *Error { return New(KindPolicyDenied, format, args...) }

// Store constructs a KindStore error.
func Store(format string, args ...any) *Error { return New(KindStore, format, args...) }

// TransientConfig constructs a KindTransientConfig error.
func TransientConfig(format string, args ...any) *Error {
	return New(KindTransientConfig, format, args...)
}

// StatusCode returns e's HTTP status: the explicit Status override when
// set, otherwise the Kind's default.
func (e *Error) StatusCode() int {
	if e.Status != 0 {
		return e.Status
	}
	return e.Kind.StatusCode()
}

// StatusCode maps a Kind to its default HTTP status code.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return 400
	case KindAuth:
		return 401
	case KindNotFound:
		return 404
	case KindPolicyDenied:
		return 403
	case KindStore:
		return 500
	case KindTransientConfig:
		return 503
	default:
		return 500
	}
}
