package exam

import (
	"errors"
	"fmt"
)

// Error kinds returned by Service. Callers match them with errors.Is.
var (
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrNotYetOpen     = errors.New("test is not open yet")
	ErrClosed         = errors.New("test is closed")
	ErrInvalidAttempt = errors.New("invalid attempt")
	ErrTimeExceeded   = errors.New("time limit exceeded")
	ErrIntegrity      = errors.New("test data integrity error")
)

var codes = map[error]string{
	ErrForbidden:      "forbidden",
	ErrNotFound:       "not_found",
	ErrNotYetOpen:     "not_yet_open",
	ErrClosed:         "closed",
	ErrInvalidAttempt: "invalid_attempt",
	ErrTimeExceeded:   "time_exceeded",
	ErrIntegrity:      "integrity",
}

// Error carries the failing operation and kind alongside the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func fail(op string, kind error, cause error) error {
	return &Error{Op: op, Kind: kind, Err: cause}
}

// Code returns a stable machine-readable code for err, or "" when err is not
// one of the engine's kinds.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return codes[e.Kind]
	}
	for kind, code := range codes {
		if errors.Is(err, kind) {
			return code
		}
	}
	return ""
}
