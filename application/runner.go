package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/veritaslabs/cogito/domain/thought"
	"github.com/veritaslabs/cogito/infrastructure/logging"
)

// defaultMaxIterations bounds a task run against runaway lineages.
const defaultMaxIterations = 50

// Runner drives a task's thoughts through the processor until the task
// reaches a terminal or deferred state, one thought at a time.
type Runner struct {
	processor     *ThoughtProcessor
	store         thought.Store
	maxIterations int
}

// NewRunner creates a runner over the processor and store.
func NewRunner(processor *ThoughtProcessor, store thought.Store) *Runner {
	return &Runner{
		processor:     processor,
		store:         store,
		maxIterations: defaultMaxIterations,
	}
}

// RunTask seeds the task with an initial thought and processes pending
// thoughts until none remain, the task leaves the active states, or the
// iteration bound trips. It returns the task in its final state.
func (r *Runner) RunTask(ctx context.Context, task *thought.Task, seedContent string) (*thought.Task, error) {
	if err := r.store.AddTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to add task: %w", err)
	}

	seed := thought.New(task.ID, seedContent)
	seed.Context.ChannelID = task.Context.ChannelID
	if err := r.store.AddThought(ctx, seed); err != nil {
		return nil, fmt.Errorf("failed to seed thought: %w", err)
	}

	for i := 0; i < r.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, err := r.nextPending(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}

		outcome, err := r.processor.ProcessThought(ctx, next.ID)
		if err != nil {
			if errors.Is(err, ErrShuttingDown) {
				break
			}
			return nil, err
		}
		logging.Debug().
			Add(logging.ThoughtID(outcome.ThoughtID)).
			Add(logging.Action(outcome.Action)).
			Add(logging.ThoughtStatus(outcome.Status)).
			Msg("round finished")

		current, err := r.store.GetTaskByID(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		if current.Status.IsTerminal() || current.Status == thought.TaskDeferred {
			return current, nil
		}
	}

	return r.store.GetTaskByID(ctx, task.ID)
}

// nextPending returns the earliest-created pending thought on the task,
// or nil when none remains.
func (r *Runner) nextPending(ctx context.Context, taskID string) (*thought.Thought, error) {
	thoughts, err := r.store.GetThoughtsByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	for _, th := range thoughts {
		if th.Status == thought.StatusPending {
			return th, nil
		}
	}
	return nil, nil
}
