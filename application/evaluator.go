package application

import (
	"context"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/thought"
)

// Evaluation is one evaluator's structured opinion on a thought.
type Evaluation struct {
	// Evaluator names the branch that produced this opinion.
	Evaluator string

	// Opinion is the evaluator's reasoning output.
	Opinion string

	// Flagged marks an opinion that argues against proceeding.
	Flagged bool

	// Err carries the branch's failure. A failed branch degrades to this
	// synthesized error result instead of aborting its siblings.
	Err error
}

// Evaluator is one of the independent pre-selection evaluators (ethical,
// common-sense, domain-specific). Implementations are external; the
// processor only requires that they be safe to call concurrently.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, th *thought.Thought) (Evaluation, error)
}

// ActionSelector turns the joined evaluations into one selected action.
type ActionSelector interface {
	Select(ctx context.Context, th *thought.Thought, evals []Evaluation) (*action.SelectionResult, error)
}

// GuardrailVerdict is the outcome of the safety check on a proposed
// action. A failed check is an expected branch, not an error.
type GuardrailVerdict struct {
	Passed bool
	Reason string
}

// Guardrail applies the content-safety check to a proposed action before
// dispatch. A returned error is a hard upstream failure, distinct from a
// failed verdict.
type Guardrail interface {
	Check(ctx context.Context, th *thought.Thought, result *action.SelectionResult) (GuardrailVerdict, error)
}
