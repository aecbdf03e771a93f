package statemachine

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/veritaslabs/cogito/domain/thought"
)

// Lifecycle validates and applies thought status transitions through the
// statechart. One Lifecycle is shared by the processor and all handlers.
type Lifecycle struct {
	machine *statekit.MachineConfig[*Context]
}

// NewLifecycle builds the thought machine once for reuse.
func NewLifecycle() (*Lifecycle, error) {
	machine, err := NewThoughtMachine()
	if err != nil {
		return nil, fmt.Errorf("failed to build thought machine: %w", err)
	}
	return &Lifecycle{machine: machine}, nil
}

// CanTransition reports whether the machine allows moving between the two
// statuses.
func (l *Lifecycle) CanTransition(from, to thought.Status) bool {
	return from.CanTransitionTo(to)
}

// Step transitions the thought to the target status, mutating th.Status on
// success. It returns ErrInvalidTransition (wrapped) when the machine does
// not allow the move.
func (l *Lifecycle) Step(th *thought.Thought, to thought.Status, reason string) error {
	from := th.Status
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", thought.ErrInvalidTransition, from, to)
	}

	ctx := &Context{Thought: th}
	interp := statekit.NewInterpreter(l.machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})

	// Resume the interpreter at the thought's current status; statekit
	// panics on events invalid for a state, so the guard above runs first.
	snapshot := statekit.Snapshot[*Context]{
		MachineID:    "thought",
		CurrentState: statekit.StateID(from),
		Context:      ctx,
		CreatedAt:    time.Now(),
	}
	if err := interp.Restore(snapshot); err != nil {
		return fmt.Errorf("failed to restore lifecycle state: %w", err)
	}

	interp.Send(statekit.Event{
		Type: EventForStatus(from, to),
		Payload: TransitionPayload{
			ToStatus: to,
			Reason:   reason,
		},
	})

	th.Status = to
	th.UpdatedAt = time.Now().UTC()
	return nil
}
