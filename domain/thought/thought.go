package thought

import (
	"time"

	"github.com/google/uuid"

	"github.com/veritaslabs/cogito/domain/action"
)

// Context carries processing metadata accumulated across a thought lineage.
type Context struct {
	ChannelID    string            `json:"channel_id,omitempty"`
	ParentAction action.Type       `json:"parent_action,omitempty"`
	ErrorDetail  string            `json:"error_detail,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Thought is one unit of reasoning derived from a task. During processing
// it is owned exclusively by the lifecycle driver; handlers never mutate a
// persisted thought except through explicit status updates, and carry
// lineage forward by appending new follow-up thoughts.
type Thought struct {
	ID              string                  `json:"id"`
	SourceTaskID    string                  `json:"source_task_id"`
	Kind            Kind                    `json:"kind"`
	Status          Status                  `json:"status"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
	RoundNumber     int                     `json:"round_number"`
	Content         string                  `json:"content"`
	Context         Context                 `json:"context,omitempty"`
	PonderCount     int                     `json:"ponder_count"`
	PonderNotes     []string                `json:"ponder_notes,omitempty"`
	ParentThoughtID string                  `json:"parent_thought_id,omitempty"`
	FinalAction     *action.SelectionResult `json:"final_action,omitempty"`
}

// New creates a pending standard thought for the given task.
func New(taskID, content string) *Thought {
	now := time.Now().UTC()
	return &Thought{
		ID:           uuid.NewString(),
		SourceTaskID: taskID,
		Kind:         KindStandard,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		Content:      content,
	}
}

// NewFollowUp creates the successor thought for a non-terminal action.
// Lineage invariants: the follow-up inherits the source task unchanged,
// points back at its parent, and carries the parent's ponder count (only
// the ponder path itself increments it).
func NewFollowUp(parent *Thought, content string) *Thought {
	now := time.Now().UTC()
	return &Thought{
		ID:              uuid.NewString(),
		SourceTaskID:    parent.SourceTaskID,
		Kind:            KindFollowUp,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		RoundNumber:     parent.RoundNumber + 1,
		Content:         content,
		PonderCount:     parent.PonderCount,
		ParentThoughtID: parent.ID,
		Context: Context{
			ChannelID: parent.Context.ChannelID,
		},
	}
}
