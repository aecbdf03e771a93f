package handlers

import (
	"context"
	"fmt"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/service"
	"github.com/veritaslabs/cogito/domain/thought"
)

// RecallHandler queries graph memory and carries the recalled entries
// into the follow-up thought.
type RecallHandler struct {
	base
}

// NewRecallHandler creates the recall handler.
func NewRecallHandler(deps *Deps) *RecallHandler {
	return &RecallHandler{base: newBase(deps, action.TypeRecall)}
}

func (h *RecallHandler) Handle(ctx context.Context, result *action.SelectionResult, th *thought.Thought, dc action.DispatchContext) (string, error) {
	h.auditStart(th, dc)

	params, err := action.ParseParams[action.RecallParams](result.Parameters)
	if err != nil {
		return h.failThought(ctx, th, dc, err.Error())
	}

	instance := h.discover(ctx, service.TypeMemory, service.CapRecall)
	mem, ok := instance.(service.MemoryService)
	if !ok {
		return h.failThought(ctx, th, dc, ErrServiceUnavailable.Error())
	}

	entries, err := mem.Recall(ctx, params.Key, params.Scope)
	if err != nil {
		return h.failThought(ctx, th, dc, fmt.Sprintf("recall failed: %v", err))
	}

	content := fmt.Sprintf("recalled nothing for %s in scope %s", params.Key, scopeOrLocal(params.Scope))
	if len(entries) > 0 {
		content = fmt.Sprintf("recalled %s in scope %s: %s", params.Key, scopeOrLocal(params.Scope), entries[0].Value)
	}
	return h.completeParent(ctx, th, result, dc, content)
}
