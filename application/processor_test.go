package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/veritaslabs/cogito/application/handlers"
	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/service"
	"github.com/veritaslabs/cogito/domain/thought"
	"github.com/veritaslabs/cogito/infrastructure/audit"
	"github.com/veritaslabs/cogito/infrastructure/registry"
	"github.com/veritaslabs/cogito/infrastructure/resilience"
	"github.com/veritaslabs/cogito/infrastructure/statemachine"
)

// memStore is an insertion-ordered in-memory store for driver tests.
type memStore struct {
	mu       sync.Mutex
	tasks    map[string]*thought.Task
	thoughts map[string]*thought.Thought
	order    []string
}

func newMemStore() *memStore {
	return &memStore{
		tasks:    make(map[string]*thought.Task),
		thoughts: make(map[string]*thought.Thought),
	}
}

func (s *memStore) AddTask(_ context.Context, t *thought.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	return nil
}

func (s *memStore) GetTaskByID(_ context.Context, id string) (*thought.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, thought.ErrTaskNotFound
	}
	return t, nil
}

func (s *memStore) UpdateTaskStatus(_ context.Context, id string, status thought.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return thought.ErrTaskNotFound
	}
	t.Status = status
	return nil
}

func (s *memStore) UpdateTaskOutcome(_ context.Context, id, outcome string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return thought.ErrTaskNotFound
	}
	t.Outcome = outcome
	return nil
}

func (s *memStore) AddThought(_ context.Context, th *thought.Thought) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thoughts[th.ID] = th
	s.order = append(s.order, th.ID)
	return nil
}

func (s *memStore) GetThoughtByID(_ context.Context, id string) (*thought.Thought, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	th, ok := s.thoughts[id]
	if !ok {
		return nil, thought.ErrThoughtNotFound
	}
	return th, nil
}

func (s *memStore) GetThoughtsByTaskID(_ context.Context, taskID string) ([]*thought.Thought, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*thought.Thought
	for _, id := range s.order {
		if th := s.thoughts[id]; th.SourceTaskID == taskID {
			out = append(out, th)
		}
	}
	return out, nil
}

func (s *memStore) UpdateThoughtStatus(_ context.Context, id string, status thought.Status, final *action.SelectionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	th, ok := s.thoughts[id]
	if !ok {
		return thought.ErrThoughtNotFound
	}
	th.Status = status
	if final != nil {
		th.FinalAction = final
	}
	return nil
}

func (s *memStore) UpdateThoughtPonderState(_ context.Context, id string, count int, notes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	th, ok := s.thoughts[id]
	if !ok {
		return thought.ErrThoughtNotFound
	}
	th.PonderCount = count
	th.PonderNotes = notes
	return nil
}

// scriptedSelector returns decisions from a script, repeating the last one.
type scriptedSelector struct {
	mu     sync.Mutex
	script []*action.SelectionResult
	idx    int
	err    error
}

func (s *scriptedSelector) Select(_ context.Context, _ *thought.Thought, _ []Evaluation) (*action.SelectionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.script) == 0 {
		return action.NewSelection(action.TypeTaskComplete, nil, "nothing to do"), nil
	}
	result := s.script[s.idx]
	if s.idx < len(s.script)-1 {
		s.idx++
	}
	return result, nil
}

// stubEvaluator returns a fixed opinion or error.
type stubEvaluator struct {
	name string
	err  error
}

func (e *stubEvaluator) Name() string { return e.name }

func (e *stubEvaluator) Evaluate(_ context.Context, _ *thought.Thought) (Evaluation, error) {
	if e.err != nil {
		return Evaluation{}, e.err
	}
	return Evaluation{Evaluator: e.name, Opinion: "proceed"}, nil
}

// stubGuardrail returns a fixed verdict or error.
type stubGuardrail struct {
	verdict GuardrailVerdict
	err     error
}

func (g *stubGuardrail) Check(_ context.Context, _ *thought.Thought, _ *action.SelectionResult) (GuardrailVerdict, error) {
	if g.err != nil {
		return GuardrailVerdict{}, g.err
	}
	return g.verdict, nil
}

// sink records sent messages.
type sink struct {
	mu   sync.Mutex
	sent []string
}

func (c *sink) SendMessage(_ context.Context, channelID, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, channelID+": "+content)
	return nil
}

func (c *sink) FetchMessages(_ context.Context, _ string, _ int) ([]service.Message, error) {
	return nil, nil
}

type testApp struct {
	processor *ThoughtProcessor
	store     *memStore
	registry  *registry.ServiceRegistry
	comm      *sink
}

func newTestApp(t *testing.T, selector ActionSelector, evaluators []Evaluator, guardrail Guardrail) *testApp {
	t.Helper()

	lifecycle, err := statemachine.NewLifecycle()
	if err != nil {
		t.Fatalf("NewLifecycle() error = %v", err)
	}
	store := newMemStore()
	reg := registry.New()
	comm := &sink{}
	reg.RegisterGlobal(service.TypeCommunication, comm, service.PriorityNormal,
		[]string{service.CapSendMessage, service.CapFetchMessages})

	deps := &handlers.Deps{
		Registry:        reg,
		Store:           store,
		Audit:           audit.NewTrail(),
		Lifecycle:       lifecycle,
		Retry:           resilience.NewStoreRetry(),
		ToolGate:        resilience.NewToolGate(resilience.DefaultToolGateConfig()),
		MaxPonderRounds: 5,
	}
	dispatcher, err := NewDispatcher(handlers.All(deps))
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	processor, err := NewThoughtProcessor(ProcessorConfig{
		Store:      store,
		Lifecycle:  lifecycle,
		Retry:      deps.Retry,
		Dispatcher: dispatcher,
		Evaluators: evaluators,
		Selector:   selector,
		Guardrail:  guardrail,
	})
	if err != nil {
		t.Fatalf("NewThoughtProcessor() error = %v", err)
	}
	return &testApp{processor: processor, store: store, registry: reg, comm: comm}
}

func seedTaskAndThought(t *testing.T, store *memStore, description, content string) (*thought.Task, *thought.Thought) {
	t.Helper()
	ctx := context.Background()
	task := thought.NewTask("task-1", description)
	task.Context.InitialContent = content
	task.Context.ChannelID = "chan-1"
	if err := store.AddTask(ctx, task); err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	th := thought.New(task.ID, content)
	th.Context.ChannelID = "chan-1"
	if err := store.AddThought(ctx, th); err != nil {
		t.Fatalf("AddThought() error = %v", err)
	}
	return task, th
}

func speakSelection(content string) *action.SelectionResult {
	return action.NewSelection(action.TypeSpeak, action.SpeakParams{Content: content}, "responding")
}

func TestProcessThoughtSpeakFlow(t *testing.T) {
	selector := &scriptedSelector{script: []*action.SelectionResult{speakSelection("hello")}}
	app := newTestApp(t, selector,
		[]Evaluator{&stubEvaluator{name: "ethical"}, &stubEvaluator{name: "common_sense"}, &stubEvaluator{name: "domain"}},
		&stubGuardrail{verdict: GuardrailVerdict{Passed: true}})
	_, th := seedTaskAndThought(t, app.store, "greet", "say hi")

	outcome, err := app.processor.ProcessThought(context.Background(), th.ID)
	if err != nil {
		t.Fatalf("ProcessThought() error = %v", err)
	}
	if outcome.Action != action.TypeSpeak {
		t.Errorf("Action = %q, want speak", outcome.Action)
	}
	if outcome.Status != thought.StatusCompleted {
		t.Errorf("Status = %q, want completed", outcome.Status)
	}
	if outcome.FollowUpID == "" {
		t.Error("no follow-up created for a non-terminal action")
	}
	if len(app.comm.sent) != 1 || app.comm.sent[0] != "chan-1: hello" {
		t.Errorf("sent = %v", app.comm.sent)
	}
}

func TestProcessThoughtEvaluatorFailureDefers(t *testing.T) {
	selector := &scriptedSelector{script: []*action.SelectionResult{speakSelection("hello")}}
	app := newTestApp(t, selector,
		[]Evaluator{
			&stubEvaluator{name: "ethical"},
			&stubEvaluator{name: "common_sense", err: errors.New("model timeout")},
		},
		nil)
	_, th := seedTaskAndThought(t, app.store, "greet", "say hi")

	outcome, err := app.processor.ProcessThought(context.Background(), th.ID)
	if err != nil {
		t.Fatalf("ProcessThought() error = %v", err)
	}
	if outcome.Action != action.TypeDefer {
		t.Errorf("Action = %q, want defer", outcome.Action)
	}
	if outcome.Status != thought.StatusDeferred {
		t.Errorf("Status = %q, want deferred", outcome.Status)
	}

	stored, _ := app.store.GetThoughtByID(context.Background(), th.ID)
	if stored.FinalAction == nil || stored.FinalAction.Rationale != ReasonUpstreamFailure {
		t.Errorf("FinalAction = %+v, want rationale %q", stored.FinalAction, ReasonUpstreamFailure)
	}
}

func TestProcessThoughtSelectorFailureDefers(t *testing.T) {
	selector := &scriptedSelector{err: errors.New("selection model unreachable")}
	app := newTestApp(t, selector, nil, nil)
	_, th := seedTaskAndThought(t, app.store, "greet", "say hi")

	outcome, err := app.processor.ProcessThought(context.Background(), th.ID)
	if err != nil {
		t.Fatalf("ProcessThought() error = %v", err)
	}
	if outcome.Action != action.TypeDefer {
		t.Errorf("Action = %q, want defer", outcome.Action)
	}
}

func TestProcessThoughtGuardrailRejectionDefers(t *testing.T) {
	selector := &scriptedSelector{script: []*action.SelectionResult{speakSelection("something unsafe")}}
	app := newTestApp(t, selector, nil,
		&stubGuardrail{verdict: GuardrailVerdict{Passed: false, Reason: "content policy"}})
	_, th := seedTaskAndThought(t, app.store, "greet", "say hi")

	outcome, err := app.processor.ProcessThought(context.Background(), th.ID)
	if err != nil {
		t.Fatalf("ProcessThought() error = %v", err)
	}
	if outcome.Action != action.TypeDefer {
		t.Errorf("Action = %q, want defer", outcome.Action)
	}
	stored, _ := app.store.GetThoughtByID(context.Background(), th.ID)
	if stored.FinalAction == nil || stored.FinalAction.Rationale != "content policy" {
		t.Errorf("FinalAction = %+v, want guardrail reason", stored.FinalAction)
	}
	if len(app.comm.sent) != 0 {
		t.Errorf("sent = %v, rejected action must not reach the channel", app.comm.sent)
	}
}

func TestProcessThoughtGuardrailHardFailureDefers(t *testing.T) {
	selector := &scriptedSelector{script: []*action.SelectionResult{speakSelection("hello")}}
	app := newTestApp(t, selector, nil, &stubGuardrail{err: errors.New("guardrail service down")})
	_, th := seedTaskAndThought(t, app.store, "greet", "say hi")

	outcome, err := app.processor.ProcessThought(context.Background(), th.ID)
	if err != nil {
		t.Fatalf("ProcessThought() error = %v", err)
	}
	if outcome.Action != action.TypeDefer {
		t.Errorf("Action = %q, want defer", outcome.Action)
	}
	stored, _ := app.store.GetThoughtByID(context.Background(), th.ID)
	if stored.FinalAction == nil || stored.FinalAction.Rationale != ReasonUpstreamFailure {
		t.Errorf("FinalAction = %+v, want rationale %q", stored.FinalAction, ReasonUpstreamFailure)
	}
}

func TestForcedPonderKeywordOverridesEveryRound(t *testing.T) {
	// The selector insists on speaking; the task content forces ponder.
	selector := &scriptedSelector{script: []*action.SelectionResult{speakSelection("hello")}}
	app := newTestApp(t, selector, nil, nil)
	_, th := seedTaskAndThought(t, app.store, "diagnostic", "  PoNdEr ")

	for round := 1; round <= 2; round++ {
		outcome, err := app.processor.ProcessThought(context.Background(), th.ID)
		if err != nil {
			t.Fatalf("round %d ProcessThought() error = %v", round, err)
		}
		if outcome.Action != action.TypePonder {
			t.Fatalf("round %d Action = %q, want ponder", round, outcome.Action)
		}
		if outcome.Status != thought.StatusPending {
			t.Fatalf("round %d Status = %q, want pending", round, outcome.Status)
		}
		if th.PonderCount != round {
			t.Fatalf("round %d PonderCount = %d", round, th.PonderCount)
		}
	}
	if len(app.comm.sent) != 0 {
		t.Errorf("sent = %v, forced ponder must suppress speak", app.comm.sent)
	}
}

func TestWakeupGuardBlocksCompletionBeforeSpeak(t *testing.T) {
	selector := &scriptedSelector{script: []*action.SelectionResult{
		action.NewSelection(action.TypeTaskComplete, nil, "ritual step done"),
	}}
	app := newTestApp(t, selector, nil, nil)

	ctx := context.Background()
	task := thought.NewTask("wake-1", "verify identity")
	task.ParentTaskID = thought.WakeupRootTaskID
	if err := app.store.AddTask(ctx, task); err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	th := thought.New(task.ID, "am I awake?")
	if err := app.store.AddThought(ctx, th); err != nil {
		t.Fatalf("AddThought() error = %v", err)
	}

	outcome, err := app.processor.ProcessThought(ctx, th.ID)
	if err != nil {
		t.Fatalf("ProcessThought() error = %v", err)
	}
	if outcome.Action != action.TypePonder {
		t.Errorf("Action = %q, want ponder before any successful speak", outcome.Action)
	}

	// Record a successful speak on the task; completion now passes through.
	spoke := thought.New(task.ID, "say it")
	spoke.Status = thought.StatusCompleted
	spoke.FinalAction = speakSelection("I am awake")
	if err := app.store.AddThought(ctx, spoke); err != nil {
		t.Fatalf("AddThought() error = %v", err)
	}

	outcome, err = app.processor.ProcessThought(ctx, th.ID)
	if err != nil {
		t.Fatalf("second ProcessThought() error = %v", err)
	}
	if outcome.Action != action.TypeTaskComplete {
		t.Errorf("Action = %q, want task_complete after a successful speak", outcome.Action)
	}
	current, _ := app.store.GetTaskByID(ctx, task.ID)
	if current.Status != thought.TaskCompleted {
		t.Errorf("task Status = %q, want completed", current.Status)
	}
}

func TestRunnerPonderBoundDefersTask(t *testing.T) {
	selector := &scriptedSelector{script: []*action.SelectionResult{
		action.NewSelection(action.TypePonder, action.PonderParams{Questions: []string{"what now?"}}, "unsure"),
	}}
	app := newTestApp(t, selector, nil, nil)
	runner := NewRunner(app.processor, app.store)

	task := thought.NewTask("task-1", "endless deliberation")
	final, err := runner.RunTask(context.Background(), task, "think about it")
	if err != nil {
		t.Fatalf("RunTask() error = %v", err)
	}
	if final.Status != thought.TaskDeferred {
		t.Errorf("task Status = %q, want deferred at the ponder bound", final.Status)
	}

	thoughts, _ := app.store.GetThoughtsByTaskID(context.Background(), task.ID)
	if len(thoughts) != 1 {
		t.Fatalf("thoughts = %d, ponder re-delivers the same thought", len(thoughts))
	}
	if thoughts[0].PonderCount != 5 {
		t.Errorf("PonderCount = %d, want 5", thoughts[0].PonderCount)
	}
	if thoughts[0].Status != thought.StatusDeferred {
		t.Errorf("thought Status = %q, want deferred", thoughts[0].Status)
	}
}

func TestRunnerSpeakThenComplete(t *testing.T) {
	selector := &scriptedSelector{script: []*action.SelectionResult{
		speakSelection("hello there"),
		action.NewSelection(action.TypeTaskComplete, action.TaskCompleteParams{Outcome: "greeted"}, "done"),
	}}
	app := newTestApp(t, selector, nil, nil)
	runner := NewRunner(app.processor, app.store)

	task := thought.NewTask("task-1", "greet the channel")
	task.Context.ChannelID = "chan-1"
	final, err := runner.RunTask(context.Background(), task, "say hello")
	if err != nil {
		t.Fatalf("RunTask() error = %v", err)
	}
	if final.Status != thought.TaskCompleted {
		t.Errorf("task Status = %q, want completed", final.Status)
	}
	if final.Outcome != "greeted" {
		t.Errorf("task Outcome = %q", final.Outcome)
	}
	if len(app.comm.sent) != 1 {
		t.Errorf("sent = %v, want one utterance", app.comm.sent)
	}
}

func TestDispatcherUnknownActionKind(t *testing.T) {
	app := newTestApp(t, &scriptedSelector{}, nil, nil)
	th := thought.New("task-1", "x")
	_, err := app.processor.dispatcher.Dispatch(context.Background(),
		&action.SelectionResult{SelectedAction: action.Type("teleport")}, th, action.DispatchContext{})
	if !errors.Is(err, ErrUnknownActionKind) {
		t.Fatalf("Dispatch() error = %v, want ErrUnknownActionKind", err)
	}
}

func TestDispatcherShutdownRefusesNewDispatches(t *testing.T) {
	app := newTestApp(t, &scriptedSelector{}, nil, nil)
	d := app.processor.dispatcher

	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	th := thought.New("task-1", "x")
	_, err := d.Dispatch(context.Background(), speakSelection("hello"), th, action.DispatchContext{})
	if !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("Dispatch() error = %v, want ErrShuttingDown", err)
	}
}
