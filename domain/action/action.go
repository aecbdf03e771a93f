// Package action provides the closed set of actions the agent can take on a
// thought, the evaluator output that selects one, and the typed parameter
// shapes each action carries.
package action

// Type identifies the kind of action selected for a thought. The set is
// closed: the dispatcher maps each type to exactly one handler and fails
// loud on anything else.
type Type string

const (
	TypeSpeak        Type = "speak"
	TypeObserve      Type = "observe"
	TypeMemorize     Type = "memorize"
	TypeRecall       Type = "recall"
	TypeForget       Type = "forget"
	TypeTool         Type = "tool"
	TypePonder       Type = "ponder"
	TypeDefer        Type = "defer"
	TypeReject       Type = "reject"
	TypeTaskComplete Type = "task_complete"
)

// IsValid returns true if the type is a recognized action kind.
func (t Type) IsValid() bool {
	switch t {
	case TypeSpeak, TypeObserve, TypeMemorize, TypeRecall, TypeForget,
		TypeTool, TypePonder, TypeDefer, TypeReject, TypeTaskComplete:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the action ends the thought lineage: no
// follow-up thought is created after it.
func (t Type) IsTerminal() bool {
	switch t {
	case TypeTaskComplete, TypeReject, TypeDefer:
		return true
	default:
		return false
	}
}

// String returns the string representation of the type.
func (t Type) String() string {
	return string(t)
}

// AllTypes returns all recognized action kinds.
func AllTypes() []Type {
	return []Type{
		TypeSpeak,
		TypeObserve,
		TypeMemorize,
		TypeRecall,
		TypeForget,
		TypeTool,
		TypePonder,
		TypeDefer,
		TypeReject,
		TypeTaskComplete,
	}
}
