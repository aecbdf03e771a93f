// Package evaluator provides deterministic evaluator, selector, and
// guardrail implementations for the CLI runtime and for tests. The
// LLM-backed equivalents live behind the same application interfaces.
package evaluator

import (
	"context"
	"sync"

	"github.com/veritaslabs/cogito/application"
	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/thought"
)

// StaticEvaluator returns a fixed opinion for every thought.
type StaticEvaluator struct {
	name    string
	opinion string
	flagged bool
}

// NewStaticEvaluator creates an evaluator with a fixed opinion.
func NewStaticEvaluator(name, opinion string) *StaticEvaluator {
	return &StaticEvaluator{name: name, opinion: opinion}
}

// NewFlaggingEvaluator creates an evaluator that flags every thought.
func NewFlaggingEvaluator(name, opinion string) *StaticEvaluator {
	return &StaticEvaluator{name: name, opinion: opinion, flagged: true}
}

func (e *StaticEvaluator) Name() string { return e.name }

func (e *StaticEvaluator) Evaluate(_ context.Context, _ *thought.Thought) (application.Evaluation, error) {
	return application.Evaluation{
		Evaluator: e.name,
		Opinion:   e.opinion,
		Flagged:   e.flagged,
	}, nil
}

// DefaultEvaluators returns the standard three-branch evaluator set with
// permissive static opinions.
func DefaultEvaluators() []application.Evaluator {
	return []application.Evaluator{
		NewStaticEvaluator("ethical", "no ethical concerns identified"),
		NewStaticEvaluator("common_sense", "plausible and coherent"),
		NewStaticEvaluator("domain", "within domain competence"),
	}
}

// ScriptedSelector returns selections from a predefined sequence,
// repeating the final step once the script is exhausted.
type ScriptedSelector struct {
	mu    sync.Mutex
	steps []*action.SelectionResult
	index int
}

// NewScriptedSelector creates a selector over the given decision sequence.
func NewScriptedSelector(steps ...*action.SelectionResult) *ScriptedSelector {
	return &ScriptedSelector{steps: steps}
}

func (s *ScriptedSelector) Select(_ context.Context, _ *thought.Thought, evals []application.Evaluation) (*action.SelectionResult, error) {
	for _, ev := range evals {
		if ev.Flagged {
			return action.NewSelection(action.TypeDefer, action.DeferParams{
				Reason: ev.Evaluator + " flagged the thought: " + ev.Opinion,
			}, "evaluator objection"), nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return action.NewSelection(action.TypeTaskComplete, nil, "script exhausted"), nil
	}
	result := s.steps[s.index]
	if s.index < len(s.steps)-1 {
		s.index++
	}
	return result, nil
}

// Reset rewinds the selector to the start of its script.
func (s *ScriptedSelector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = 0
}

// EchoSelector speaks the thought's own content back, then completes the
// task on the follow-up round. It gives the CLI a minimal end-to-end loop
// without any model behind it.
type EchoSelector struct{}

// NewEchoSelector creates the echo selector.
func NewEchoSelector() *EchoSelector {
	return &EchoSelector{}
}

func (s *EchoSelector) Select(_ context.Context, th *thought.Thought, _ []application.Evaluation) (*action.SelectionResult, error) {
	if th.Kind == thought.KindFollowUp {
		return action.NewSelection(action.TypeTaskComplete, action.TaskCompleteParams{
			Outcome: "echoed the task content",
		}, "utterance delivered"), nil
	}
	return action.NewSelection(action.TypeSpeak, action.SpeakParams{
		Content: th.Content,
	}, "echoing task content"), nil
}

// DenylistGuardrail fails any speak action whose content contains one of
// the configured substrings. Empty denylist passes everything.
type DenylistGuardrail struct {
	denied []string
}

// NewDenylistGuardrail creates a guardrail over the given substrings.
func NewDenylistGuardrail(denied ...string) *DenylistGuardrail {
	return &DenylistGuardrail{denied: denied}
}

func (g *DenylistGuardrail) Check(_ context.Context, _ *thought.Thought, result *action.SelectionResult) (application.GuardrailVerdict, error) {
	if result.SelectedAction != action.TypeSpeak {
		return application.GuardrailVerdict{Passed: true}, nil
	}

	params, err := action.ParseParams[action.SpeakParams](result.Parameters)
	if err != nil {
		// Let the handler surface the validation failure on its own path.
		return application.GuardrailVerdict{Passed: true}, nil
	}
	for _, word := range g.denied {
		if word != "" && containsFold(params.Content, word) {
			return application.GuardrailVerdict{
				Passed: false,
				Reason: "content matches denied term",
			}, nil
		}
	}
	return application.GuardrailVerdict{Passed: true}, nil
}
