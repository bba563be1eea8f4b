package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by calls made after the client shut down, and is
	// used to reject every request still pending at shutdown.
	ErrClosed = errors.New("agent client closed")

	// ErrDuplicateID is returned when a request ID is registered twice.
	ErrDuplicateID = errors.New("duplicate request id")
)

// CancelledError reports that the caller stopped waiting for a request,
// either because its context was cancelled or because the request timed out.
// The agent is asked to stop the work but the outcome of that is not awaited.
type CancelledError struct {
	ID   int
	Func string
	Err  error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("agent request %d (%s) cancelled: %v", e.ID, e.Func, e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

// DecodeError reports a response payload that does not fit the result type
// the caller asked for.
type DecodeError struct {
	ID   int
	Func string
	Raw  string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode agent response %d (%s): %v", e.ID, e.Func, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
