// Package statemachine provides the statekit statechart for the thought
// lifecycle. Every status transition the core persists is validated and
// driven through this machine, so an illegal transition fails loud instead
// of corrupting a thought's lineage.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/veritaslabs/cogito/domain/thought"
)

// Context carries the thought being transitioned through the machine.
type Context struct {
	Thought *thought.Thought
	Reason  string
}

// State IDs as StateID type for statekit.
const (
	statePending    statekit.StateID = statekit.StateID(thought.StatusPending)
	stateProcessing statekit.StateID = statekit.StateID(thought.StatusProcessing)
	stateCompleted  statekit.StateID = statekit.StateID(thought.StatusCompleted)
	stateDeferred   statekit.StateID = statekit.StateID(thought.StatusDeferred)
	stateFailed     statekit.StateID = statekit.StateID(thought.StatusFailed)
)

// NewThoughtMachine creates the canonical thought lifecycle statechart.
func NewThoughtMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("thought").
		WithInitial(statePending).
		WithContext(&Context{}).
		WithAction("applyStatus", applyStatus).
		State(statePending).
			On("PROCESS").Target(stateProcessing).Do("applyStatus").
			On("FAIL").Target(stateFailed).Do("applyStatus").
			Done().
		State(stateProcessing).
			On("COMPLETE").Target(stateCompleted).Do("applyStatus").
			On("DEFER").Target(stateDeferred).Do("applyStatus").
			On("FAIL").Target(stateFailed).Do("applyStatus").
			On("REQUEUE").Target(statePending).Do("applyStatus").
			Done().
		State(stateDeferred).
			On("REACTIVATE").Target(statePending).Do("applyStatus").
			Done().
		State(stateCompleted).
			Final().
			Done().
		State(stateFailed).
			Final().
			Done().
		Build()
}

// EventForStatus returns the machine event that reaches the target status
// from the given state.
func EventForStatus(from, to thought.Status) statekit.EventType {
	switch to {
	case thought.StatusProcessing:
		return "PROCESS"
	case thought.StatusCompleted:
		return "COMPLETE"
	case thought.StatusDeferred:
		return "DEFER"
	case thought.StatusFailed:
		return "FAIL"
	case thought.StatusPending:
		if from == thought.StatusDeferred {
			return "REACTIVATE"
		}
		return "REQUEUE"
	default:
		return statekit.EventType(to)
	}
}

// applyStatus records the new status on the thought in context.
// In statekit, actions receive a pointer to the context; since our context
// is *Context, actions receive **Context.
func applyStatus(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).Thought == nil {
		return
	}
	c := *ctx
	if payload, ok := event.Payload.(TransitionPayload); ok {
		c.Thought.Status = payload.ToStatus
		c.Reason = payload.Reason
	}
}

// TransitionPayload carries the target status and reason with an event.
type TransitionPayload struct {
	ToStatus thought.Status
	Reason   string
}
