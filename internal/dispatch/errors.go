package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrInterrupted is returned by Run when the parent context ends the run.
	ErrInterrupted = errors.New("interrupted by user")

	// ErrAlreadyStarted is returned when Run is called more than once.
	ErrAlreadyStarted = errors.New("coordinator already started")
)

// FatalError is a request failure that aborted the run.
type FatalError struct {
	// Payload is the URL whose request failed.
	Payload string

	// Attempts is the number of times the request was tried.
	Attempts int

	// Err is the final transport error.
	Err error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("request to %s failed after %d attempt(s): %v", e.Payload, e.Attempts, e.Err)
}

// Unwrap returns the transport error.
func (e *FatalError) Unwrap() error {
	return e.Err
}
