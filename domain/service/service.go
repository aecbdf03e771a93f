// Package service defines the service kinds, capability tags, and consumed
// interfaces through which the orchestration core reaches the outside world.
// Concrete implementations live in adapters and are discovered at runtime
// through the service registry, never referenced directly.
package service

// Type identifies a class of service a handler may request.
type Type string

const (
	TypeCommunication Type = "communication" // Send and fetch channel messages
	TypeMemory        Type = "memory"        // Graph memory operations
	TypeTool          Type = "tool"          // External tool execution
	TypeAudit         Type = "audit"         // Audit event sink
	TypeWiseAuthority Type = "wise_authority" // Deferral and guidance
	TypeLLM           Type = "llm"           // Model-backed evaluation
)

// IsValid returns true if the type is a recognized service kind.
func (t Type) IsValid() bool {
	switch t {
	case TypeCommunication, TypeMemory, TypeTool, TypeAudit, TypeWiseAuthority, TypeLLM:
		return true
	default:
		return false
	}
}

// String returns the string representation of the type.
func (t Type) String() string {
	return string(t)
}

// AllTypes returns all recognized service kinds.
func AllTypes() []Type {
	return []Type{
		TypeCommunication,
		TypeMemory,
		TypeTool,
		TypeAudit,
		TypeWiseAuthority,
		TypeLLM,
	}
}
