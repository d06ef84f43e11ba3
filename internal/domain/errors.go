package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates malformed or missing input. It is raised before
	// any state is touched.
	ErrValidation = errors.New("validation error")

	// ErrInvalidState indicates the action is permitted for the actor's role
	// but not while the entity is in its current status.
	ErrInvalidState = errors.New("invalid state")

	// ErrAuthorization indicates the actor's role (or identity) is never
	// permitted to perform the action.
	ErrAuthorization = errors.New("not authorized")

	// ErrConflict indicates the entity changed underneath the caller, or a
	// competing entity already occupies the slot (e.g. an active payment request).
	ErrConflict = errors.New("conflict")

	// ErrNetwork indicates a transport failure between client and server.
	ErrNetwork = errors.New("network error")

	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)

// ErrorKind is the wire name of an error class.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindInvalidState  ErrorKind = "invalid_state"
	KindAuthorization ErrorKind = "authorization"
	KindConflict      ErrorKind = "conflict"
	KindNetwork       ErrorKind = "network"
	KindNotFound      ErrorKind = "not_found"
	KindInternal      ErrorKind = "internal"
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:    ErrValidation,
	KindInvalidState:  ErrInvalidState,
	KindAuthorization: ErrAuthorization,
	KindConflict:      ErrConflict,
	KindNetwork:       ErrNetwork,
	KindNotFound:      ErrNotFound,
}

// KindOf classifies err by the first sentinel it wraps.
// Errors that wrap none of them are KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrAuthorization):
		return KindAuthorization
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// SentinelFor returns the sentinel error for kind, or nil for unknown kinds.
func SentinelFor(kind ErrorKind) error {
	return kindSentinels[kind]
}

// Errorf formats a message and wraps it around sentinel so errors.Is keeps working.
func Errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
