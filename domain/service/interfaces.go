package service

import (
	"context"
	"encoding/json"
	"time"
)

// HealthChecker is implemented by providers that support health probing.
// The registry probes it during discovery; a non-nil error counts as a
// circuit breaker failure for that provider.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// Message is a single channel message returned by a communication service.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	AuthorID  string    `json:"author_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CommunicationService sends and fetches channel messages.
type CommunicationService interface {
	SendMessage(ctx context.Context, channelID, content string) error
	FetchMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
}

// MemoryEntry is one record in the agent's graph memory.
type MemoryEntry struct {
	Key       string    `json:"key"`
	Scope     string    `json:"scope"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// MemoryService performs graph memory writes, queries, and deletions.
type MemoryService interface {
	Memorize(ctx context.Context, entry MemoryEntry) error
	Recall(ctx context.Context, key, scope string) ([]MemoryEntry, error)
	Forget(ctx context.Context, key, scope string) error
}

// ToolResult is the outcome of one external tool execution.
type ToolResult struct {
	Name     string          `json:"name"`
	Output   json.RawMessage `json:"output,omitempty"`
	Error    string          `json:"error,omitempty"`
	Duration time.Duration   `json:"duration,omitempty"`
}

// OK returns true if the execution produced no error.
func (r *ToolResult) OK() bool {
	return r != nil && r.Error == ""
}

// ToolService executes named external tools.
type ToolService interface {
	ExecuteTool(ctx context.Context, name string, args json.RawMessage) (*ToolResult, error)
}

// Deferral is a request for human judgment on a thought the agent cannot
// or should not resolve on its own.
type Deferral struct {
	ThoughtID string    `json:"thought_id"`
	TaskID    string    `json:"task_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// WiseAuthorityService routes deferrals and guidance requests to a human
// wise authority.
type WiseAuthorityService interface {
	SendDeferral(ctx context.Context, d Deferral) error
	FetchGuidance(ctx context.Context, topic string) (string, error)
}
