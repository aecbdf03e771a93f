package service

// Priority orders providers within a priority group. Lower values are
// preferred; FALLBACK sorts after every other level.
type Priority int

const (
	PriorityCritical Priority = 0
	PriorityHigh     Priority = 1
	PriorityNormal   Priority = 2
	PriorityLow      Priority = 3
	PriorityFallback Priority = 9
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Strategy selects a provider within a priority group.
type Strategy int

const (
	// StrategyFallback tries providers in priority order and returns the
	// first usable one.
	StrategyFallback Strategy = iota

	// StrategyRoundRobin rotates across the group's providers, skipping
	// unusable ones without resetting position.
	StrategyRoundRobin
)

// String returns the strategy name.
func (s Strategy) String() string {
	if s == StrategyRoundRobin {
		return "round_robin"
	}
	return "fallback"
}
