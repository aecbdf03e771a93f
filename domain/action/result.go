package action

import "encoding/json"

// SelectionResult is the structured decision produced by the external
// action-selection evaluator. Parameters stay raw until the owning handler
// parses them into its typed shape.
type SelectionResult struct {
	SelectedAction Type            `json:"selected_action"`
	Parameters     json.RawMessage `json:"action_parameters,omitempty"`
	Rationale      string          `json:"rationale,omitempty"`
	Confidence     float64         `json:"confidence,omitempty"`
}

// NewSelection creates a selection result with marshaled parameters. It is
// a convenience for synthesized decisions (forced ponder, upstream-failure
// deferral); a marshal failure leaves parameters empty, which every handler
// tolerates.
func NewSelection(t Type, params any, rationale string) *SelectionResult {
	raw, err := json.Marshal(params)
	if err != nil {
		raw = nil
	}
	return &SelectionResult{
		SelectedAction: t,
		Parameters:     raw,
		Rationale:      rationale,
	}
}

// DispatchContext carries the identifiers and authorization state of one
// dispatch. It is passed read-only to handlers.
type DispatchContext struct {
	ChannelID     string `json:"channel_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	HandlerName   string `json:"handler_name,omitempty"`
	WAAuthorized  bool   `json:"wa_authorized,omitempty"`
	Action        Type   `json:"action,omitempty"`
}
