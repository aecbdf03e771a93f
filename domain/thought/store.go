package thought

import (
	"context"

	"github.com/veritaslabs/cogito/domain/action"
)

// Store is the persistence facade consumed by the orchestration core.
// Implementations live in infrastructure. Calls are synchronous and
// idempotent from the core's perspective; callers retry a transient
// failure at most once before surfacing it.
type Store interface {
	AddTask(ctx context.Context, t *Task) error
	GetTaskByID(ctx context.Context, id string) (*Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status TaskStatus) error
	UpdateTaskOutcome(ctx context.Context, id, outcome string) error

	AddThought(ctx context.Context, th *Thought) error
	GetThoughtByID(ctx context.Context, id string) (*Thought, error)
	GetThoughtsByTaskID(ctx context.Context, taskID string) ([]*Thought, error)

	// UpdateThoughtStatus records the thought's final status for the round
	// and, when non-nil, the action that produced it.
	UpdateThoughtStatus(ctx context.Context, id string, status Status, finalAction *action.SelectionResult) error

	// UpdateThoughtPonderState persists the incremented ponder count and the
	// accumulated notes carried into the next round.
	UpdateThoughtPonderState(ctx context.Context, id string, count int, notes []string) error
}

// TaskHasSuccessfulSpeak reports whether any completed thought on the task
// resolved with a speak action. The wakeup ritual uses this to refuse task
// completion before an utterance has succeeded.
func TaskHasSuccessfulSpeak(ctx context.Context, store Store, taskID string) bool {
	thoughts, err := store.GetThoughtsByTaskID(ctx, taskID)
	if err != nil {
		return false
	}
	for _, th := range thoughts {
		if th.Status != StatusCompleted || th.FinalAction == nil {
			continue
		}
		if th.FinalAction.SelectedAction == action.TypeSpeak {
			return true
		}
	}
	return false
}
