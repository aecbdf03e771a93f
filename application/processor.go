package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/veritaslabs/cogito/application/handlers"
	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/thought"
	"github.com/veritaslabs/cogito/infrastructure/logging"
	"github.com/veritaslabs/cogito/infrastructure/observability"
	"github.com/veritaslabs/cogito/infrastructure/resilience"
	"github.com/veritaslabs/cogito/infrastructure/statemachine"
)

// ReasonUpstreamFailure is the rationale attached to the synthetic
// deferral produced when an evaluator or guardrail fails hard.
const ReasonUpstreamFailure = "critical upstream failure"

// forcedPonderKeyword is the diagnostic task content that overrides any
// evaluator decision with a ponder.
const forcedPonderKeyword = "ponder"

// Outcome summarizes one processed thought.
type Outcome struct {
	ThoughtID  string
	Action     action.Type
	Status     thought.Status
	FollowUpID string
}

// ProcessorConfig assembles a thought processor.
type ProcessorConfig struct {
	Store       thought.Store
	Lifecycle   *statemachine.Lifecycle
	Retry       *resilience.StoreRetry
	Dispatcher  *Dispatcher
	Evaluators  []Evaluator
	Selector    ActionSelector
	Guardrail   Guardrail
	Instruments *observability.Instruments
}

// ThoughtProcessor drives one thought through evaluation, action
// selection, guardrails, special-case resolution, and dispatch.
type ThoughtProcessor struct {
	store       thought.Store
	lifecycle   *statemachine.Lifecycle
	retry       *resilience.StoreRetry
	dispatcher  *Dispatcher
	evaluators  []Evaluator
	selector    ActionSelector
	guardrail   Guardrail
	instruments *observability.Instruments
}

// NewThoughtProcessor creates a processor from the given configuration.
func NewThoughtProcessor(cfg ProcessorConfig) (*ThoughtProcessor, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Lifecycle == nil {
		return nil, errors.New("lifecycle is required")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if cfg.Selector == nil {
		return nil, errors.New("selector is required")
	}
	if cfg.Retry == nil {
		cfg.Retry = resilience.NewStoreRetry()
	}
	return &ThoughtProcessor{
		store:       cfg.Store,
		lifecycle:   cfg.Lifecycle,
		retry:       cfg.Retry,
		dispatcher:  cfg.Dispatcher,
		evaluators:  cfg.Evaluators,
		selector:    cfg.Selector,
		guardrail:   cfg.Guardrail,
		instruments: cfg.Instruments,
	}, nil
}

// ProcessThought runs one full round on the thought with the given id.
func (p *ThoughtProcessor) ProcessThought(ctx context.Context, thoughtID string) (*Outcome, error) {
	th, err := p.store.GetThoughtByID(ctx, thoughtID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thought: %w", err)
	}

	task, err := p.store.GetTaskByID(ctx, th.SourceTaskID)
	if err != nil {
		logging.Warn().
			Add(logging.ThoughtID(th.ID)).
			Add(logging.TaskID(th.SourceTaskID)).
			Add(logging.ErrorField(err)).
			Msg("thought has no fetchable task")
		task = nil
	}

	if err := p.markProcessing(ctx, th, task); err != nil {
		return nil, err
	}

	evals := p.runEvaluators(ctx, th)
	result := p.selectAction(ctx, th, evals)
	result = p.applyGuardrail(ctx, th, result)
	result = p.resolveSpecialCases(ctx, th, task, result)

	dc := action.DispatchContext{
		ChannelID:     th.Context.ChannelID,
		CorrelationID: th.ID,
	}
	followUpID, err := p.dispatcher.Dispatch(ctx, result, th, dc)
	if err != nil {
		if errors.Is(err, handlers.ErrFollowUpCreation) {
			// State on this lineage is incomplete; do not continue it.
			logging.Error().
				Add(logging.ThoughtID(th.ID)).
				Add(logging.Action(result.SelectedAction)).
				Add(logging.ErrorField(err)).
				Msg("follow-up creation failed, halting lineage")
		}
		return nil, err
	}

	p.recordCounters(ctx, result.SelectedAction)

	return &Outcome{
		ThoughtID:  th.ID,
		Action:     result.SelectedAction,
		Status:     th.Status,
		FollowUpID: followUpID,
	}, nil
}

// markProcessing transitions the thought (and a pending task) into the
// active state before evaluation begins.
func (p *ThoughtProcessor) markProcessing(ctx context.Context, th *thought.Thought, task *thought.Task) error {
	if err := p.lifecycle.Step(th, thought.StatusProcessing, "round start"); err != nil {
		return err
	}
	err := p.retry.Do(ctx, func(ctx context.Context) error {
		return p.store.UpdateThoughtStatus(ctx, th.ID, thought.StatusProcessing, nil)
	})
	if err != nil {
		return fmt.Errorf("failed to mark thought processing: %w", err)
	}

	if task != nil && task.Status == thought.TaskPending {
		if err := p.store.UpdateTaskStatus(ctx, task.ID, thought.TaskActive); err != nil {
			logging.Warn().
				Add(logging.TaskID(task.ID)).
				Add(logging.ErrorField(err)).
				Msg("failed to activate task")
		} else {
			task.Status = thought.TaskActive
		}
	}
	return nil
}

// runEvaluators fans out all evaluators concurrently and joins them. A
// failed branch degrades to a synthesized error result rather than
// aborting its siblings.
func (p *ThoughtProcessor) runEvaluators(ctx context.Context, th *thought.Thought) []Evaluation {
	evals := make([]Evaluation, len(p.evaluators))
	var wg sync.WaitGroup
	for i, ev := range p.evaluators {
		wg.Add(1)
		go func(i int, ev Evaluator) {
			defer wg.Done()
			result, err := ev.Evaluate(ctx, th)
			if err != nil {
				result = Evaluation{Evaluator: ev.Name(), Err: err}
			}
			if result.Evaluator == "" {
				result.Evaluator = ev.Name()
			}
			evals[i] = result
		}(i, ev)
	}
	wg.Wait()
	return evals
}

// selectAction turns evaluations into one decision. Any hard evaluator or
// selector failure short-circuits to a synthetic deferral.
func (p *ThoughtProcessor) selectAction(ctx context.Context, th *thought.Thought, evals []Evaluation) *action.SelectionResult {
	for _, ev := range evals {
		if ev.Err != nil {
			logging.Error().
				Add(logging.ThoughtID(th.ID)).
				Add(logging.Str("evaluator", ev.Evaluator)).
				Add(logging.ErrorField(ev.Err)).
				Msg("evaluator failed")
			return syntheticDeferral()
		}
	}

	result, err := p.selector.Select(ctx, th, evals)
	if err != nil || result == nil {
		logging.Error().
			Add(logging.ThoughtID(th.ID)).
			Add(logging.ErrorField(err)).
			Msg("action selection failed")
		return syntheticDeferral()
	}
	return result
}

// applyGuardrail runs the safety check on the proposed action. A failed
// verdict replaces the action with a deferral carrying the reason; a hard
// error short-circuits like an evaluator failure. Synthetic deferrals skip
// the check.
func (p *ThoughtProcessor) applyGuardrail(ctx context.Context, th *thought.Thought, result *action.SelectionResult) *action.SelectionResult {
	if p.guardrail == nil || result.Rationale == ReasonUpstreamFailure {
		return result
	}

	verdict, err := p.guardrail.Check(ctx, th, result)
	if err != nil {
		logging.Error().
			Add(logging.ThoughtID(th.ID)).
			Add(logging.ErrorField(err)).
			Msg("guardrail failed")
		return syntheticDeferral()
	}
	if !verdict.Passed {
		logging.Info().
			Add(logging.ThoughtID(th.ID)).
			Add(logging.Action(result.SelectedAction)).
			Add(logging.Str("reason", verdict.Reason)).
			Msg("guardrail rejected action")
		return action.NewSelection(action.TypeDefer, action.DeferParams{
			Reason: verdict.Reason,
		}, verdict.Reason)
	}
	return result
}

// resolveSpecialCases applies the pre-dispatch overrides: the forced
// ponder keyword and the wakeup must-speak guard.
func (p *ThoughtProcessor) resolveSpecialCases(ctx context.Context, th *thought.Thought, task *thought.Task, result *action.SelectionResult) *action.SelectionResult {
	if task == nil {
		return result
	}

	if strings.EqualFold(strings.TrimSpace(task.Context.InitialContent), forcedPonderKeyword) {
		if result.SelectedAction != action.TypePonder {
			logging.Info().
				Add(logging.ThoughtID(th.ID)).
				Add(logging.Action(result.SelectedAction)).
				Msg("forced ponder keyword overrides decision")
		}
		return action.NewSelection(action.TypePonder, action.PonderParams{
			Questions: []string{"forced ponder round"},
		}, "task content requests a forced ponder")
	}

	if task.IsWakeup() && result.SelectedAction == action.TypeTaskComplete &&
		!thought.TaskHasSuccessfulSpeak(ctx, p.store, task.ID) {
		logging.Info().
			Add(logging.ThoughtID(th.ID)).
			Add(logging.TaskID(task.ID)).
			Msg("wakeup task cannot complete before speaking")
		return action.NewSelection(action.TypePonder, action.PonderParams{
			Questions: []string{"the wakeup ritual requires a successful utterance before completion"},
		}, "wakeup ritual must speak before completing")
	}

	return result
}

func (p *ThoughtProcessor) recordCounters(ctx context.Context, kind action.Type) {
	if p.instruments == nil {
		return
	}
	switch kind {
	case action.TypePonder:
		p.instruments.PonderTotal.Add(ctx, 1)
	case action.TypeDefer:
		p.instruments.DeferralTotal.Add(ctx, 1)
	}
}

func syntheticDeferral() *action.SelectionResult {
	return action.NewSelection(action.TypeDefer, action.DeferParams{
		Reason: ReasonUpstreamFailure,
	}, ReasonUpstreamFailure)
}
