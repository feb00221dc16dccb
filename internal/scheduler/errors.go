package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrNoViableSlot means the algorithm found no acceptable slot.
	ErrNoViableSlot = errors.New("no viable slot")
	// ErrNotFound means no result exists for the content ID.
	ErrNotFound = errors.New("content not scheduled")
	// ErrInvalidRequest means the request is malformed.
	ErrInvalidRequest = errors.New("invalid request")
)

// SchedulingFailedError reports why a single item could not be scheduled.
type SchedulingFailedError struct {
	ContentID string
	Reason    error
}

func (e *SchedulingFailedError) Error() string {
	return fmt.Sprintf("scheduling %s failed: %v", e.ContentID, e.Reason)
}

func (e *SchedulingFailedError) Unwrap() error {
	return e.Reason
}

func failed(id string, reason error) error {
	return &SchedulingFailedError{ContentID: id, Reason: reason}
}
