// Package memory provides in-memory implementations of the persistence
// facade and the graph memory service, used by tests and the default
// runtime profile.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/thought"
)

// Store is an in-memory implementation of thought.Store.
type Store struct {
	mu       sync.RWMutex
	tasks    map[string]*thought.Task
	thoughts map[string]*thought.Thought
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		tasks:    make(map[string]*thought.Task),
		thoughts: make(map[string]*thought.Thought),
	}
}

// AddTask stores a copy of the task.
func (s *Store) AddTask(ctx context.Context, t *thought.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

// GetTaskByID returns a copy of the task or ErrTaskNotFound.
func (s *Store) GetTaskByID(ctx context.Context, id string) (*thought.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", thought.ErrTaskNotFound, id)
	}
	cp := *t
	return &cp, nil
}

// UpdateTaskStatus transitions the task's status.
func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status thought.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", thought.ErrTaskNotFound, id)
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateTaskOutcome records the task outcome.
func (s *Store) UpdateTaskOutcome(ctx context.Context, id, outcome string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", thought.ErrTaskNotFound, id)
	}
	t.Outcome = outcome
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// AddThought stores a copy of the thought.
func (s *Store) AddThought(ctx context.Context, th *thought.Thought) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *th
	s.thoughts[th.ID] = &cp
	return nil
}

// GetThoughtByID returns a copy of the thought or ErrThoughtNotFound.
func (s *Store) GetThoughtByID(ctx context.Context, id string) (*thought.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	th, ok := s.thoughts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", thought.ErrThoughtNotFound, id)
	}
	cp := *th
	return &cp, nil
}

// GetThoughtsByTaskID returns copies of all thoughts on the task, ordered
// by creation time.
func (s *Store) GetThoughtsByTaskID(ctx context.Context, taskID string) ([]*thought.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*thought.Thought
	for _, th := range s.thoughts {
		if th.SourceTaskID == taskID {
			cp := *th
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateThoughtStatus records the thought's status and final action.
func (s *Store) UpdateThoughtStatus(ctx context.Context, id string, status thought.Status, finalAction *action.SelectionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	th, ok := s.thoughts[id]
	if !ok {
		return fmt.Errorf("%w: %s", thought.ErrThoughtNotFound, id)
	}
	th.Status = status
	if finalAction != nil {
		th.FinalAction = finalAction
	}
	th.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateThoughtPonderState persists ponder count and notes.
func (s *Store) UpdateThoughtPonderState(ctx context.Context, id string, count int, notes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	th, ok := s.thoughts[id]
	if !ok {
		return fmt.Errorf("%w: %s", thought.ErrThoughtNotFound, id)
	}
	th.PonderCount = count
	th.PonderNotes = append([]string(nil), notes...)
	th.UpdatedAt = time.Now().UTC()
	return nil
}
