package handlers

import (
	"context"
	"fmt"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/service"
	"github.com/veritaslabs/cogito/domain/thought"
)

// ToolHandler executes one named external tool through a discovered tool
// service. Executions run inside the shared tool gate, which bounds
// concurrency and applies a per-call timeout.
type ToolHandler struct {
	base
}

// NewToolHandler creates the tool handler.
func NewToolHandler(deps *Deps) *ToolHandler {
	return &ToolHandler{base: newBase(deps, action.TypeTool)}
}

func (h *ToolHandler) Handle(ctx context.Context, result *action.SelectionResult, th *thought.Thought, dc action.DispatchContext) (string, error) {
	h.auditStart(th, dc)

	params, err := action.ParseParams[action.ToolParams](result.Parameters)
	if err != nil {
		return h.failThought(ctx, th, dc, err.Error())
	}

	instance := h.discover(ctx, service.TypeTool, service.CapExecuteTool)
	tools, ok := instance.(service.ToolService)
	if !ok {
		return h.failThought(ctx, th, dc, ErrServiceUnavailable.Error())
	}

	toolResult, err := h.deps.ToolGate.Execute(ctx, func(ctx context.Context) (*service.ToolResult, error) {
		return tools.ExecuteTool(ctx, params.Name, params.Args)
	})
	if err != nil {
		return h.failThought(ctx, th, dc, fmt.Sprintf("tool %s failed: %v", params.Name, err))
	}
	if !toolResult.OK() {
		return h.failThought(ctx, th, dc, fmt.Sprintf("tool %s failed: %s", params.Name, toolResult.Error))
	}

	return h.completeParent(ctx, th, result, dc,
		fmt.Sprintf("tool %s succeeded: %s", params.Name, toolResult.Output))
}
