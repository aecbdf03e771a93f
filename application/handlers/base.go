package handlers

import (
	"context"
	"fmt"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/service"
	"github.com/veritaslabs/cogito/domain/thought"
	"github.com/veritaslabs/cogito/infrastructure/audit"
	"github.com/veritaslabs/cogito/infrastructure/logging"
)

// base carries the shared contract plumbing embedded in every handler.
type base struct {
	deps *Deps
	name string
	kind action.Type
}

func newBase(deps *Deps, kind action.Type) base {
	return base{
		deps: deps,
		name: string(kind) + "_handler",
		kind: kind,
	}
}

func (b *base) Kind() action.Type {
	return b.kind
}

// auditStart records the start event for one invocation.
func (b *base) auditStart(th *thought.Thought, dc action.DispatchContext) {
	b.deps.Audit.Record(audit.Entry{
		Action:        b.kind,
		ThoughtID:     th.ID,
		TaskID:        th.SourceTaskID,
		ChannelID:     dc.ChannelID,
		CorrelationID: dc.CorrelationID,
		Outcome:       audit.OutcomeStart,
	})
}

// auditEnd records the terminal event for one invocation.
func (b *base) auditEnd(th *thought.Thought, dc action.DispatchContext, outcome, detail string) {
	b.deps.Audit.Record(audit.Entry{
		Action:        b.kind,
		ThoughtID:     th.ID,
		TaskID:        th.SourceTaskID,
		ChannelID:     dc.ChannelID,
		CorrelationID: dc.CorrelationID,
		Outcome:       outcome,
		Detail:        detail,
	})
}

// discover fetches a service instance for this handler through the
// registry. A nil return means no provider qualified.
func (b *base) discover(ctx context.Context, kind service.Type, capabilities ...string) any {
	return b.deps.Registry.GetService(ctx, b.name, kind, capabilities)
}

// setStatus validates and persists a thought status transition, recording
// the final action when non-nil. Store writes retry once on failure.
func (b *base) setStatus(ctx context.Context, th *thought.Thought, to thought.Status, reason string, final *action.SelectionResult) error {
	if err := b.deps.Lifecycle.Step(th, to, reason); err != nil {
		return err
	}
	return b.deps.Retry.Do(ctx, func(ctx context.Context) error {
		return b.deps.Store.UpdateThoughtStatus(ctx, th.ID, to, final)
	})
}

// createFollowUp persists the mandatory successor thought after the parent's
// final status is already recorded. A store failure here is fatal to the
// dispatch and wraps ErrFollowUpCreation.
func (b *base) createFollowUp(ctx context.Context, parent *thought.Thought, content, errDetail string) (string, error) {
	next := thought.NewFollowUp(parent, content)
	next.Context.ParentAction = b.kind
	next.Context.ErrorDetail = errDetail

	err := b.deps.Retry.Do(ctx, func(ctx context.Context) error {
		return b.deps.Store.AddThought(ctx, next)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFollowUpCreation, err)
	}
	return next.ID, nil
}

// completeParent persists the parent's COMPLETED status together with the
// decision that resolved it, then creates the follow-up. Ordering matters:
// the parent's closure must be visible before the follow-up is.
func (b *base) completeParent(ctx context.Context, th *thought.Thought, result *action.SelectionResult, dc action.DispatchContext, followUpContent string) (string, error) {
	if err := b.setStatus(ctx, th, thought.StatusCompleted, "", result); err != nil {
		b.auditEnd(th, dc, audit.OutcomeFailed, err.Error())
		return "", err
	}

	followUpID, err := b.createFollowUp(ctx, th, followUpContent, "")
	if err != nil {
		b.auditEnd(th, dc, audit.OutcomeFailed, err.Error())
		return "", err
	}

	b.auditEnd(th, dc, audit.OutcomeSuccess, "")
	return followUpID, nil
}

// failThought recovers from a local handler failure: the thought is marked
// FAILED with the cause attached to its final action, and a follow-up
// carries the error detail forward. It never raises past the dispatcher
// except for follow-up creation itself.
func (b *base) failThought(ctx context.Context, th *thought.Thought, dc action.DispatchContext, detail string) (string, error) {
	logging.Warn().
		Add(logging.Handler(b.name)).
		Add(logging.ThoughtID(th.ID)).
		Add(logging.Str("detail", detail)).
		Msg("handler failed thought")

	final := action.NewSelection(b.kind, nil, detail)
	if err := b.setStatus(ctx, th, thought.StatusFailed, detail, final); err != nil {
		b.auditEnd(th, dc, audit.OutcomeFailed, err.Error())
		return "", err
	}

	followUpID, err := b.createFollowUp(ctx, th,
		fmt.Sprintf("%s action failed: %s", b.kind, detail), detail)
	if err != nil {
		b.auditEnd(th, dc, audit.OutcomeFailed, err.Error())
		return "", err
	}

	b.auditEnd(th, dc, audit.OutcomeFailed, detail)
	return followUpID, nil
}

// channelFor resolves the channel an action addresses: explicit parameter,
// then dispatch context, then the thought's own channel.
func channelFor(param string, dc action.DispatchContext, th *thought.Thought) string {
	if param != "" {
		return param
	}
	if dc.ChannelID != "" {
		return dc.ChannelID
	}
	return th.Context.ChannelID
}
