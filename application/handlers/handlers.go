// Package handlers contains one action handler per decision kind. Every
// handler shares the same contract: audit start and terminal events,
// typed parameter validation, exactly one side-effect class per
// invocation through a registry-discovered service, and follow-up
// creation after the parent's final status is persisted.
package handlers

import (
	"context"
	"errors"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/thought"
	"github.com/veritaslabs/cogito/infrastructure/audit"
	"github.com/veritaslabs/cogito/infrastructure/registry"
	"github.com/veritaslabs/cogito/infrastructure/resilience"
	"github.com/veritaslabs/cogito/infrastructure/statemachine"
)

// Sentinel errors of the dispatch contract.
var (
	// ErrServiceUnavailable indicates the registry returned no provider for
	// a required service kind. Handlers recover locally by failing the
	// thought; it never crosses the dispatcher.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrFollowUpCreation indicates the mandatory follow-up thought could
	// not be persisted after a handled action. It is fatal to the dispatch
	// and propagates to the driver.
	ErrFollowUpCreation = errors.New("follow-up creation failed")
)

// DefaultMaxPonderRounds bounds the ponder loop when no configuration
// overrides it.
const DefaultMaxPonderRounds = 5

// Handler handles one action kind.
type Handler interface {
	// Kind returns the action kind this handler owns.
	Kind() action.Type

	// Handle performs the action's side effect and persists the thought's
	// final status. It returns the id of the follow-up thought it created,
	// or empty for terminal actions and re-delivered ponders.
	Handle(ctx context.Context, result *action.SelectionResult, th *thought.Thought, dc action.DispatchContext) (string, error)
}

// Deps is the shared dependency bundle injected into every handler.
type Deps struct {
	// Registry discovers the services handlers act through.
	Registry *registry.ServiceRegistry

	// Store is the task/thought persistence facade.
	Store thought.Store

	// Audit receives start and terminal events for every invocation.
	Audit *audit.Trail

	// Lifecycle validates thought status transitions.
	Lifecycle *statemachine.Lifecycle

	// Retry retries transient store writes at most once.
	Retry *resilience.StoreRetry

	// ToolGate bounds concurrent external tool executions.
	ToolGate *resilience.ToolGate

	// MaxPonderRounds forces deferral once a thought's ponder count
	// reaches it.
	MaxPonderRounds int

	// Shutdown, when set, is invoked by handlers that request a runtime
	// stop. Optional.
	Shutdown func(reason string)
}

// All constructs the full dispatch table of handlers over one dependency
// bundle.
func All(deps *Deps) []Handler {
	if deps.MaxPonderRounds <= 0 {
		deps.MaxPonderRounds = DefaultMaxPonderRounds
	}
	return []Handler{
		NewSpeakHandler(deps),
		NewObserveHandler(deps),
		NewMemorizeHandler(deps),
		NewRecallHandler(deps),
		NewForgetHandler(deps),
		NewToolHandler(deps),
		NewPonderHandler(deps),
		NewDeferHandler(deps),
		NewRejectHandler(deps),
		NewTaskCompleteHandler(deps),
	}
}
