package handlers

import (
	"context"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/thought"
	"github.com/veritaslabs/cogito/infrastructure/audit"
	"github.com/veritaslabs/cogito/infrastructure/logging"
)

// RejectHandler declines to act: the thought and its task both fail with
// the stated reason. Terminal for the lineage, no follow-up.
type RejectHandler struct {
	base
}

// NewRejectHandler creates the reject handler.
func NewRejectHandler(deps *Deps) *RejectHandler {
	return &RejectHandler{base: newBase(deps, action.TypeReject)}
}

func (h *RejectHandler) Handle(ctx context.Context, result *action.SelectionResult, th *thought.Thought, dc action.DispatchContext) (string, error) {
	h.auditStart(th, dc)

	params, err := action.ParseParams[action.RejectParams](result.Parameters)
	if err != nil {
		return h.failThought(ctx, th, dc, err.Error())
	}

	if err := h.setStatus(ctx, th, thought.StatusFailed, params.Reason, result); err != nil {
		h.auditEnd(th, dc, audit.OutcomeFailed, err.Error())
		return "", err
	}
	err = h.deps.Retry.Do(ctx, func(ctx context.Context) error {
		return h.deps.Store.UpdateTaskStatus(ctx, th.SourceTaskID, thought.TaskFailed)
	})
	if err != nil {
		logging.Warn().
			Add(logging.TaskID(th.SourceTaskID)).
			Add(logging.ErrorField(err)).
			Msg("failed to fail task on rejection")
	}

	logging.Info().
		Add(logging.ThoughtID(th.ID)).
		Add(logging.Str("reason", params.Reason)).
		Msg("thought rejected")
	h.auditEnd(th, dc, audit.OutcomeSuccess, params.Reason)
	return "", nil
}
