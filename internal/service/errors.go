// Package service holds the booking and dues business rules: the slot
// reservation state machine, the availability checker, the ledger engine
// and the notification hook that every transition fires.
package service

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers match them with errors.Is; the message carried by
// the returned error is meant for the client.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrValidation        = errors.New("validation failed")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrDependency        = errors.New("dependency failure")
)

type domainError struct {
	kind error
	msg  string
}

func (e *domainError) Error() string { return e.msg }
func (e *domainError) Unwrap() error { return e.kind }

func newError(kind error, format string, args ...any) error {
	return &domainError{kind: kind, msg: fmt.Sprintf(format, args...)}
}
