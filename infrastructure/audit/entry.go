package audit

import (
	"time"

	"github.com/veritaslabs/cogito/domain/action"
)

// Outcome classifies an audit entry.
const (
	OutcomeStart   = "start"
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Entry is one audited handler invocation or dispatch outcome.
type Entry struct {
	ID            string      `json:"id"`
	Action        action.Type `json:"action"`
	ThoughtID     string      `json:"thought_id"`
	TaskID        string      `json:"task_id,omitempty"`
	ChannelID     string      `json:"channel_id,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Outcome       string      `json:"outcome"`
	Detail        string      `json:"detail,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}
