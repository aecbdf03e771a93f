package handlers

import (
	"context"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/thought"
	"github.com/veritaslabs/cogito/infrastructure/audit"
	"github.com/veritaslabs/cogito/infrastructure/logging"
)

// TaskCompleteHandler closes the thought and its task successfully,
// recording the optional outcome. Terminal for the lineage, no follow-up.
type TaskCompleteHandler struct {
	base
}

// NewTaskCompleteHandler creates the task-complete handler.
func NewTaskCompleteHandler(deps *Deps) *TaskCompleteHandler {
	return &TaskCompleteHandler{base: newBase(deps, action.TypeTaskComplete)}
}

func (h *TaskCompleteHandler) Handle(ctx context.Context, result *action.SelectionResult, th *thought.Thought, dc action.DispatchContext) (string, error) {
	h.auditStart(th, dc)

	params, err := action.ParseParams[action.TaskCompleteParams](result.Parameters)
	if err != nil {
		return h.failThought(ctx, th, dc, err.Error())
	}

	if err := h.setStatus(ctx, th, thought.StatusCompleted, "task complete", result); err != nil {
		h.auditEnd(th, dc, audit.OutcomeFailed, err.Error())
		return "", err
	}

	err = h.deps.Retry.Do(ctx, func(ctx context.Context) error {
		if err := h.deps.Store.UpdateTaskStatus(ctx, th.SourceTaskID, thought.TaskCompleted); err != nil {
			return err
		}
		if params.Outcome != "" {
			return h.deps.Store.UpdateTaskOutcome(ctx, th.SourceTaskID, params.Outcome)
		}
		return nil
	})
	if err != nil {
		logging.Warn().
			Add(logging.TaskID(th.SourceTaskID)).
			Add(logging.ErrorField(err)).
			Msg("failed to complete task")
	}

	logging.Info().
		Add(logging.TaskID(th.SourceTaskID)).
		Add(logging.ThoughtID(th.ID)).
		Add(logging.Outcome(params.Outcome)).
		Msg("task completed")
	h.auditEnd(th, dc, audit.OutcomeSuccess, params.Outcome)
	return "", nil
}
