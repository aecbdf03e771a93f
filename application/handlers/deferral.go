package handlers

import (
	"context"
	"time"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/service"
	"github.com/veritaslabs/cogito/domain/thought"
	"github.com/veritaslabs/cogito/infrastructure/audit"
	"github.com/veritaslabs/cogito/infrastructure/logging"
)

// DeferHandler hands the thought to the wise authority and closes the
// lineage as deferred. Reporting the deferral is best effort; the status
// transition happens regardless.
type DeferHandler struct {
	base
}

// NewDeferHandler creates the defer handler.
func NewDeferHandler(deps *Deps) *DeferHandler {
	return &DeferHandler{base: newBase(deps, action.TypeDefer)}
}

func (h *DeferHandler) Handle(ctx context.Context, result *action.SelectionResult, th *thought.Thought, dc action.DispatchContext) (string, error) {
	h.auditStart(th, dc)

	params, err := action.ParseParams[action.DeferParams](result.Parameters)
	if err != nil {
		return h.failThought(ctx, th, dc, err.Error())
	}

	instance := h.discover(ctx, service.TypeWiseAuthority, service.CapSendDeferral)
	if wa, ok := instance.(service.WiseAuthorityService); ok {
		deferral := service.Deferral{
			ThoughtID: th.ID,
			TaskID:    th.SourceTaskID,
			Reason:    params.Reason,
			CreatedAt: time.Now().UTC(),
		}
		if err := wa.SendDeferral(ctx, deferral); err != nil {
			logging.Warn().
				Add(logging.ThoughtID(th.ID)).
				Add(logging.ErrorField(err)).
				Msg("failed to report deferral to wise authority")
		}
	} else {
		logging.Warn().
			Add(logging.ThoughtID(th.ID)).
			Msg("no wise authority available, deferring locally")
	}

	if err := h.setStatus(ctx, th, thought.StatusDeferred, params.Reason, result); err != nil {
		h.auditEnd(th, dc, audit.OutcomeFailed, err.Error())
		return "", err
	}
	err = h.deps.Retry.Do(ctx, func(ctx context.Context) error {
		return h.deps.Store.UpdateTaskStatus(ctx, th.SourceTaskID, thought.TaskDeferred)
	})
	if err != nil {
		logging.Warn().
			Add(logging.TaskID(th.SourceTaskID)).
			Add(logging.ErrorField(err)).
			Msg("failed to defer task")
	}

	h.auditEnd(th, dc, audit.OutcomeSuccess, params.Reason)
	return "", nil
}
