package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrWorkNotFound      = errors.New("work not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMissingDueDates   = errors.New("tasks are missing due dates")
	ErrInvalidInput      = errors.New("invalid input")
	// ErrMirrorStale matches any *StaleMirrorError
	ErrMirrorStale = errors.New("remote mirror is stale")
)

// StaleMirrorError means the local change was applied but the remote mirror was not updated
type StaleMirrorError struct {
	TaskID string
	Op     string
	Err    error
}

func (e *StaleMirrorError) Error() string {
	return fmt.Sprintf("%s applied locally for task %s but remote mirror is stale: %v", e.Op, e.TaskID, e.Err)
}

func (e *StaleMirrorError) Unwrap() error {
	return e.Err
}

func (e *StaleMirrorError) Is(target error) bool {
	return target == ErrMirrorStale
}

// IsStale reports whether err only signals a stale mirror
func IsStale(err error) bool {
	return errors.Is(err, ErrMirrorStale)
}

func staleOrNil(taskID, op string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &StaleMirrorError{TaskID: taskID, Op: op, Err: errors.Join(errs...)}
}
