package statemachine

import (
	"errors"
	"testing"

	"github.com/veritaslabs/cogito/domain/thought"
)

func TestLifecycle_Step(t *testing.T) {
	lc, err := NewLifecycle()
	if err != nil {
		t.Fatalf("NewLifecycle() error: %v", err)
	}

	tests := []struct {
		name    string
		from    thought.Status
		to      thought.Status
		wantErr bool
	}{
		{"pending to processing", thought.StatusPending, thought.StatusProcessing, false},
		{"processing to completed", thought.StatusProcessing, thought.StatusCompleted, false},
		{"processing to deferred", thought.StatusProcessing, thought.StatusDeferred, false},
		{"processing to failed", thought.StatusProcessing, thought.StatusFailed, false},
		{"processing back to pending", thought.StatusProcessing, thought.StatusPending, false},
		{"deferred reactivation", thought.StatusDeferred, thought.StatusPending, false},
		{"pending straight to completed", thought.StatusPending, thought.StatusCompleted, true},
		{"completed is terminal", thought.StatusCompleted, thought.StatusPending, true},
		{"failed is terminal", thought.StatusFailed, thought.StatusProcessing, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := thought.New("task-1", "content")
			th.Status = tt.from

			err := lc.Step(th, tt.to, "test")
			if tt.wantErr {
				if !errors.Is(err, thought.ErrInvalidTransition) {
					t.Fatalf("Step(%s -> %s) = %v, want ErrInvalidTransition", tt.from, tt.to, err)
				}
				if th.Status != tt.from {
					t.Fatalf("status mutated to %s on rejected transition", th.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("Step(%s -> %s) error: %v", tt.from, tt.to, err)
			}
			if th.Status != tt.to {
				t.Fatalf("status = %s after Step, want %s", th.Status, tt.to)
			}
		})
	}
}

func TestEventForStatus_PendingDependsOnOrigin(t *testing.T) {
	if got := EventForStatus(thought.StatusProcessing, thought.StatusPending); got != "REQUEUE" {
		t.Fatalf("EventForStatus(processing, pending) = %s, want REQUEUE", got)
	}
	if got := EventForStatus(thought.StatusDeferred, thought.StatusPending); got != "REACTIVATE" {
		t.Fatalf("EventForStatus(deferred, pending) = %s, want REACTIVATE", got)
	}
}
