package action

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidParams indicates the raw action parameters could not be parsed
// or failed validation for the selected action.
var ErrInvalidParams = errors.New("invalid action parameters")

// Params is implemented by every typed parameter struct.
type Params interface {
	Validate() error
}

// ParseParams decodes raw parameters into the typed shape P and validates
// them. Empty input decodes to the zero value, so actions whose parameters
// are all optional accept a missing payload.
func ParseParams[P Params](raw json.RawMessage) (P, error) {
	var p P
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return p, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return p, nil
}

// SpeakParams carries the message a speak action sends.
type SpeakParams struct {
	ChannelID string `json:"channel_id,omitempty"`
	Content   string `json:"content"`
}

func (p SpeakParams) Validate() error {
	if p.Content == "" {
		return errors.New("content is required")
	}
	return nil
}

// ObserveParams selects the channel and window an observe action reads.
type ObserveParams struct {
	ChannelID string `json:"channel_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

func (p ObserveParams) Validate() error {
	if p.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	return nil
}

// MemorizeParams writes one entry to graph memory.
type MemorizeParams struct {
	Key   string `json:"key"`
	Scope string `json:"scope,omitempty"`
	Value string `json:"value"`
}

func (p MemorizeParams) Validate() error {
	if p.Key == "" {
		return errors.New("key is required")
	}
	if p.Value == "" {
		return errors.New("value is required")
	}
	return nil
}

// RecallParams queries graph memory.
type RecallParams struct {
	Key   string `json:"key"`
	Scope string `json:"scope,omitempty"`
}

func (p RecallParams) Validate() error {
	if p.Key == "" {
		return errors.New("key is required")
	}
	return nil
}

// ForgetParams deletes one entry from graph memory.
type ForgetParams struct {
	Key   string `json:"key"`
	Scope string `json:"scope,omitempty"`
}

func (p ForgetParams) Validate() error {
	if p.Key == "" {
		return errors.New("key is required")
	}
	return nil
}

// ToolParams names the external tool to execute and its arguments.
type ToolParams struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

func (p ToolParams) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// PonderParams carries the open questions that motivate re-deliberation.
type PonderParams struct {
	Questions []string `json:"questions,omitempty"`
}

func (p PonderParams) Validate() error {
	return nil
}

// DeferParams explains why a thought is handed to the wise authority.
type DeferParams struct {
	Reason  string            `json:"reason"`
	Context map[string]string `json:"context,omitempty"`
}

func (p DeferParams) Validate() error {
	if p.Reason == "" {
		return errors.New("reason is required")
	}
	return nil
}

// RejectParams explains why the agent declines to act.
type RejectParams struct {
	Reason string `json:"reason"`
}

func (p RejectParams) Validate() error {
	if p.Reason == "" {
		return errors.New("reason is required")
	}
	return nil
}

// TaskCompleteParams optionally records the task outcome.
type TaskCompleteParams struct {
	Outcome string `json:"outcome,omitempty"`
}

func (p TaskCompleteParams) Validate() error {
	return nil
}
