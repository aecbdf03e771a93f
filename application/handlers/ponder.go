package handlers

import (
	"context"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/thought"
	"github.com/veritaslabs/cogito/infrastructure/audit"
	"github.com/veritaslabs/cogito/infrastructure/logging"
)

// ReasonMaxPonderRounds is attached to thoughts deferred by the ponder
// bound.
const ReasonMaxPonderRounds = "maximum ponder rounds reached"

// PonderHandler re-delivers the thought for another deliberation round,
// accumulating the round's open questions, until the ponder bound forces
// deferral.
type PonderHandler struct {
	base
}

// NewPonderHandler creates the ponder handler.
func NewPonderHandler(deps *Deps) *PonderHandler {
	return &PonderHandler{base: newBase(deps, action.TypePonder)}
}

func (h *PonderHandler) Handle(ctx context.Context, result *action.SelectionResult, th *thought.Thought, dc action.DispatchContext) (string, error) {
	h.auditStart(th, dc)

	params, err := action.ParseParams[action.PonderParams](result.Parameters)
	if err != nil {
		return h.failThought(ctx, th, dc, err.Error())
	}

	newCount := th.PonderCount + 1
	notes := append(append([]string(nil), th.PonderNotes...), params.Questions...)

	err = h.deps.Retry.Do(ctx, func(ctx context.Context) error {
		return h.deps.Store.UpdateThoughtPonderState(ctx, th.ID, newCount, notes)
	})
	if err != nil {
		return h.failThought(ctx, th, dc, err.Error())
	}
	th.PonderCount = newCount
	th.PonderNotes = notes

	// The bound wins over whatever the evaluators wanted.
	if newCount >= h.deps.MaxPonderRounds {
		final := action.NewSelection(action.TypeDefer, action.DeferParams{
			Reason: ReasonMaxPonderRounds,
		}, ReasonMaxPonderRounds)

		if err := h.setStatus(ctx, th, thought.StatusDeferred, ReasonMaxPonderRounds, final); err != nil {
			h.auditEnd(th, dc, audit.OutcomeFailed, err.Error())
			return "", err
		}
		if err := h.deferTask(ctx, th.SourceTaskID); err != nil {
			logging.Warn().
				Add(logging.TaskID(th.SourceTaskID)).
				Add(logging.ErrorField(err)).
				Msg("failed to defer task at ponder bound")
		}

		logging.Info().
			Add(logging.ThoughtID(th.ID)).
			Add(logging.PonderCount(newCount)).
			Msg("ponder bound reached, thought deferred")
		h.auditEnd(th, dc, audit.OutcomeSuccess, ReasonMaxPonderRounds)
		return "", nil
	}

	// Under the bound the same thought goes back to pending for the next
	// round; no follow-up is created.
	if err := h.setStatus(ctx, th, thought.StatusPending, "re-deliberation", nil); err != nil {
		h.auditEnd(th, dc, audit.OutcomeFailed, err.Error())
		return "", err
	}

	logging.Debug().
		Add(logging.ThoughtID(th.ID)).
		Add(logging.PonderCount(newCount)).
		Msg("thought re-delivered for another round")
	h.auditEnd(th, dc, audit.OutcomeSuccess, "")
	return "", nil
}

func (h *PonderHandler) deferTask(ctx context.Context, taskID string) error {
	return h.deps.Retry.Do(ctx, func(ctx context.Context) error {
		return h.deps.Store.UpdateTaskStatus(ctx, taskID, thought.TaskDeferred)
	})
}
