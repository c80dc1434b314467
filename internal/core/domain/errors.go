package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument covers every precondition failure: bad k, absent
	// target entity, or an entity that breaks its construction rules.
	ErrInvalidArgument = errors.New("domain: invalid argument")

	// ErrNotFound is returned by repository finders on a miss.
	ErrNotFound = errors.New("domain: not found")
)

// InvalidArgumentError gives context for a rejected argument.
type InvalidArgumentError struct {
	Op     string
	Reason string
	Err    error
}

// Invalid builds an InvalidArgumentError for op.
func Invalid(op, format string, args ...any) *InvalidArgumentError {
	return &InvalidArgumentError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func (e *InvalidArgumentError) Error() string {
	msg := ErrInvalidArgument.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func (e *InvalidArgumentError) Unwrap() error {
	return e.Err
}
