package thought

import "errors"

// Domain errors for the task/thought store.
var (
	// ErrTaskNotFound indicates no task exists with the given id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrThoughtNotFound indicates no thought exists with the given id.
	ErrThoughtNotFound = errors.New("thought not found")

	// ErrInvalidTransition indicates a status update that the thought
	// lifecycle machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)
