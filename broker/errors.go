package broker

import (
	"errors"
	"fmt"
)

// Class partitions broker failures by how callers must react.
type Class int

const (
	// Transient failures (network, timeout) are retried with backoff.
	Transient Class = iota
	// Rejected means broker-side validation failed; never retried.
	Rejected
	// Fatal means lost authentication or connectivity; new submissions halt,
	// close-only operations continue.
	Fatal
)

func (c Class) String() string {
	switch c {
	case Rejected:
		return "rejected"
	case Fatal:
		return "fatal"
	default:
		return "transient"
	}
}

// Error wraps a broker failure with its class.
type Error struct {
	Class Class
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("broker %s: %s: %v", e.Op, e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(class Class, op string, err error) *Error {
	return &Error{Class: class, Op: op, Err: err}
}

func classOf(err error) (Class, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Class, true
	}
	return 0, false
}

// IsTransient reports whether err should be retried. Unclassified errors are
// treated as transient so an unknown failure mode cannot silently drop an
// order without exhausting retries first.
func IsTransient(err error) bool {
	c, ok := classOf(err)
	return !ok || c == Transient
}

func IsRejected(err error) bool {
	c, ok := classOf(err)
	return ok && c == Rejected
}

func IsFatal(err error) bool {
	c, ok := classOf(err)
	return ok && c == Fatal
}
