package retry

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig is returned by New when Config has invalid values.
	ErrInvalidConfig = errors.New("invalid retry config")

	// ErrExhausted matches every *ExhaustedError via errors.Is.
	ErrExhausted = errors.New("retry attempts exhausted")
)

// ExhaustedError is returned when the delay grew past MaxDelay without a
// successful attempt. It unwraps to the last operation error.
type ExhaustedError struct {
	// Attempts is the number of times the operation ran.
	Attempts int

	// LastDelay is the computed delay that exceeded the maximum.
	LastDelay time.Duration

	// Err is the error returned by the final attempt.
	Err error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrExhausted, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// PermanentError marks an operation error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the executor stops immediately and returns err
// as is. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}
