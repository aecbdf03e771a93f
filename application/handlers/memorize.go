package handlers

import (
	"context"
	"fmt"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/service"
	"github.com/veritaslabs/cogito/domain/thought"
)

// MemorizeHandler writes one entry to graph memory.
type MemorizeHandler struct {
	base
}

// NewMemorizeHandler creates the memorize handler.
func NewMemorizeHandler(deps *Deps) *MemorizeHandler {
	return &MemorizeHandler{base: newBase(deps, action.TypeMemorize)}
}

func (h *MemorizeHandler) Handle(ctx context.Context, result *action.SelectionResult, th *thought.Thought, dc action.DispatchContext) (string, error) {
	h.auditStart(th, dc)

	params, err := action.ParseParams[action.MemorizeParams](result.Parameters)
	if err != nil {
		return h.failThought(ctx, th, dc, err.Error())
	}

	instance := h.discover(ctx, service.TypeMemory, service.CapMemorize)
	mem, ok := instance.(service.MemoryService)
	if !ok {
		return h.failThought(ctx, th, dc, ErrServiceUnavailable.Error())
	}

	entry := service.MemoryEntry{
		Key:   params.Key,
		Scope: params.Scope,
		Value: params.Value,
	}
	if err := mem.Memorize(ctx, entry); err != nil {
		return h.failThought(ctx, th, dc, fmt.Sprintf("memorize failed: %v", err))
	}

	return h.completeParent(ctx, th, result, dc,
		fmt.Sprintf("memorized %s in scope %s", params.Key, scopeOrLocal(params.Scope)))
}

func scopeOrLocal(scope string) string {
	if scope == "" {
		return "local"
	}
	return scope
}
