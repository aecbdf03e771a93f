// Package audit provides an append-only, best-effort record of every
// handler invocation and dispatch outcome. Writes never block the caller
// and never fail; durability beyond the process is a sink concern.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veritaslabs/cogito/infrastructure/logging"
)

// Trail is an in-process append-only audit record.
type Trail struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewTrail creates an empty audit trail.
func NewTrail() *Trail {
	return &Trail{
		entries: make([]Entry, 0),
	}
}

// Record appends an entry, filling id and timestamp when absent, and
// mirrors it to the structured log. Best effort: it never returns an error.
func (t *Trail) Record(e Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	t.mu.Lock()
	t.entries = append(t.entries, e)
	t.mu.Unlock()

	logging.Debug().
		Add(logging.Action(e.Action)).
		Add(logging.ThoughtID(e.ThoughtID)).
		Add(logging.Outcome(e.Outcome)).
		Msg("audit event")
}

// Entries returns a copy of all entries.
func (t *Trail) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ByThought returns all entries recorded for the given thought.
func (t *Trail) ByThought(thoughtID string) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Entry
	for _, e := range t.entries {
		if e.ThoughtID == thoughtID {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of recorded entries.
func (t *Trail) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
