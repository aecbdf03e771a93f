package handlers

import (
	"context"
	"fmt"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/service"
	"github.com/veritaslabs/cogito/domain/thought"
)

// defaultObserveLimit bounds how many messages an observe without an
// explicit limit fetches.
const defaultObserveLimit = 20

// ObserveHandler fetches recent channel messages through a discovered
// communication service and carries a digest into the follow-up.
type ObserveHandler struct {
	base
}

// NewObserveHandler creates the observe handler.
func NewObserveHandler(deps *Deps) *ObserveHandler {
	return &ObserveHandler{base: newBase(deps, action.TypeObserve)}
}

func (h *ObserveHandler) Handle(ctx context.Context, result *action.SelectionResult, th *thought.Thought, dc action.DispatchContext) (string, error) {
	h.auditStart(th, dc)

	params, err := action.ParseParams[action.ObserveParams](result.Parameters)
	if err != nil {
		return h.failThought(ctx, th, dc, err.Error())
	}
	limit := params.Limit
	if limit == 0 {
		limit = defaultObserveLimit
	}

	instance := h.discover(ctx, service.TypeCommunication, service.CapFetchMessages)
	comm, ok := instance.(service.CommunicationService)
	if !ok {
		return h.failThought(ctx, th, dc, ErrServiceUnavailable.Error())
	}

	channel := channelFor(params.ChannelID, dc, th)
	messages, err := comm.FetchMessages(ctx, channel, limit)
	if err != nil {
		return h.failThought(ctx, th, dc, fmt.Sprintf("fetch messages failed: %v", err))
	}

	content := fmt.Sprintf("observed %d messages in channel %s", len(messages), channel)
	if n := len(messages); n > 0 {
		content += fmt.Sprintf("; latest: %s", messages[n-1].Content)
	}
	return h.completeParent(ctx, th, result, dc, content)
}
