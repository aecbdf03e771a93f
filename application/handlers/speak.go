package handlers

import (
	"context"
	"fmt"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/service"
	"github.com/veritaslabs/cogito/domain/thought"
)

// SpeakHandler sends one message to a channel through a discovered
// communication service.
type SpeakHandler struct {
	base
}

// NewSpeakHandler creates the speak handler.
func NewSpeakHandler(deps *Deps) *SpeakHandler {
	return &SpeakHandler{base: newBase(deps, action.TypeSpeak)}
}

func (h *SpeakHandler) Handle(ctx context.Context, result *action.SelectionResult, th *thought.Thought, dc action.DispatchContext) (string, error) {
	h.auditStart(th, dc)

	params, err := action.ParseParams[action.SpeakParams](result.Parameters)
	if err != nil {
		return h.failThought(ctx, th, dc, err.Error())
	}

	instance := h.discover(ctx, service.TypeCommunication, service.CapSendMessage)
	comm, ok := instance.(service.CommunicationService)
	if !ok {
		return h.failThought(ctx, th, dc, ErrServiceUnavailable.Error())
	}

	channel := channelFor(params.ChannelID, dc, th)
	if err := comm.SendMessage(ctx, channel, params.Content); err != nil {
		return h.failThought(ctx, th, dc, fmt.Sprintf("send message failed: %v", err))
	}

	return h.completeParent(ctx, th, result, dc,
		fmt.Sprintf("spoke in channel %s: %s", channel, params.Content))
}
