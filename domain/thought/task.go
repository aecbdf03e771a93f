package thought

import "time"

// WakeupRootTaskID is the reserved parent task id that marks the wakeup
// ritual lineage. Tasks under this root must speak before completing.
const WakeupRootTaskID = "WAKEUP_ROOT"

// TaskContext carries the origin of a task: the message that created it and
// any routing markers set by the task source.
type TaskContext struct {
	InitialContent string            `json:"initial_content,omitempty"`
	ChannelID      string            `json:"channel_id,omitempty"`
	AuthorID       string            `json:"author_id,omitempty"`
	StepType       string            `json:"step_type,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Task is a unit of work that owns one or more thoughts across its
// lifetime. Tasks are created by an external task source and only ever
// status-transitioned, never deleted.
type Task struct {
	ID           string      `json:"id"`
	Description  string      `json:"description"`
	Status       TaskStatus  `json:"status"`
	Priority     int         `json:"priority"`
	ParentTaskID string      `json:"parent_task_id,omitempty"`
	Context      TaskContext `json:"context,omitempty"`
	Outcome      string      `json:"outcome,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// NewTask creates a pending task with the given id and description.
func NewTask(id, description string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:          id,
		Description: description,
		Status:      TaskPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsWakeup returns true if the task belongs to the wakeup ritual lineage,
// either by parent id or by a step-type marker in its context.
func (t *Task) IsWakeup() bool {
	if t == nil {
		return false
	}
	return t.ParentTaskID == WakeupRootTaskID || t.Context.StepType != ""
}
