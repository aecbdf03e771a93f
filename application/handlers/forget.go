package handlers

import (
	"context"
	"fmt"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/service"
	"github.com/veritaslabs/cogito/domain/thought"
)

// ForgetHandler deletes one entry from graph memory.
type ForgetHandler struct {
	base
}

// NewForgetHandler creates the forget handler.
func NewForgetHandler(deps *Deps) *ForgetHandler {
	return &ForgetHandler{base: newBase(deps, action.TypeForget)}
}

func (h *ForgetHandler) Handle(ctx context.Context, result *action.SelectionResult, th *thought.Thought, dc action.DispatchContext) (string, error) {
	h.auditStart(th, dc)

	params, err := action.ParseParams[action.ForgetParams](result.Parameters)
	if err != nil {
		return h.failThought(ctx, th, dc, err.Error())
	}

	instance := h.discover(ctx, service.TypeMemory, service.CapForget)
	mem, ok := instance.(service.MemoryService)
	if !ok {
		return h.failThought(ctx, th, dc, ErrServiceUnavailable.Error())
	}

	if err := mem.Forget(ctx, params.Key, params.Scope); err != nil {
		return h.failThought(ctx, th, dc, fmt.Sprintf("forget failed: %v", err))
	}

	return h.completeParent(ctx, th, result, dc,
		fmt.Sprintf("forgot %s in scope %s", params.Key, scopeOrLocal(params.Scope)))
}
