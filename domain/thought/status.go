// Package thought provides the core domain model of the deliberation loop:
// tasks, the thoughts derived from them, their status machines, and the
// persistence facade the orchestration core consumes.
package thought

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskActive    TaskStatus = "active"
	TaskDeferred  TaskStatus = "deferred"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// IsTerminal returns true for completed and failed tasks. Deferred tasks
// may be reactivated externally, so deferral is not terminal.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// String returns the string representation of the status.
func (s TaskStatus) String() string {
	return string(s)
}

// Status represents the lifecycle state of a thought.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusDeferred   Status = "deferred"
	StatusFailed     Status = "failed"
)

// IsTerminal returns true if no further processing happens on this thought
// within its current lineage. Deferred thoughts may later be reactivated by
// an external authority.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusDeferred, StatusFailed:
		return true
	default:
		return false
	}
}

// IsValid returns true if the status is a recognized lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusDeferred, StatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the status machine allows moving from s
// to the target state. Pending thoughts enter processing; processing
// thoughts resolve to a terminal state or return to pending for another
// round; deferred thoughts may be reactivated.
func (s Status) CanTransitionTo(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusDeferred || to == StatusFailed || to == StatusPending
	case StatusDeferred:
		return to == StatusPending
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Kind distinguishes how a thought came to exist.
type Kind string

const (
	KindStandard  Kind = "standard"
	KindFollowUp  Kind = "follow_up"
	KindScheduled Kind = "scheduled"
)
