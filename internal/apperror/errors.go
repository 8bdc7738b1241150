package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the tutoring engine.
// Use errors.Is to check the category: errors.Is(err, apperror.ErrGateway)
var (
	// ErrValidation marks malformed caller input, rejected before any state mutation.
	ErrValidation = errors.New("validation error")

	// ErrGateway marks a failure of the external generative-text service:
	// timeout, non-2xx status, or structurally invalid output.
	ErrGateway = errors.New("gateway error")

	// ErrPersistence marks a durable-tier read/write failure. Always fatal
	// to the current operation.
	ErrPersistence = errors.New("persistence error")

	// ErrState marks a missing session or an operation requested while the
	// session's turn state does not match the caller's expectation.
	ErrState = errors.New("state error")
)

func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Gateway(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrGateway, op, err)
}

func GatewayInvalid(op, detail string) error {
	return fmt.Errorf("%w: %s: invalid output: %s", ErrGateway, op, detail)
}

func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}

func State(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrState, fmt.Sprintf(format, args...))
}
