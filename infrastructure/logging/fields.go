package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/service"
	"github.com/veritaslabs/cogito/domain/thought"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for orchestration logging.

// ThoughtID adds a thought ID field.
func ThoughtID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("thought_id", id)
	}
}

// TaskID adds a task ID field.
func TaskID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("task_id", id)
	}
}

// Action adds an action kind field.
func Action(t action.Type) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("action", string(t))
	}
}

// ThoughtStatus adds a thought status field.
func ThoughtStatus(s thought.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("status", string(s))
	}
}

// Handler adds a handler name field.
func Handler(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("handler", name)
	}
}

// ServiceKind adds a service kind field.
func ServiceKind(t service.Type) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("service", string(t))
	}
}

// Provider adds a provider name field.
func Provider(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("provider", name)
	}
}

// ChannelID adds a channel ID field.
func ChannelID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("channel_id", id)
	}
}

// Round adds a round number field.
func Round(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("round", n)
	}
}

// PonderCount adds a ponder count field.
func PonderCount(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("ponder_count", n)
	}
}

// Outcome adds an outcome field.
func Outcome(outcome string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("outcome", outcome)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Str adds an arbitrary string field.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Int adds an arbitrary int field.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, value)
	}
}
