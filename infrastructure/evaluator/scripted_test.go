package evaluator

import (
	"context"
	"testing"

	"github.com/veritaslabs/cogito/application"
	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/thought"
)

func TestStaticEvaluator(t *testing.T) {
	e := NewStaticEvaluator("ethical", "fine")
	eval, err := e.Evaluate(context.Background(), thought.New("t", "x"))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if eval.Evaluator != "ethical" || eval.Opinion != "fine" || eval.Flagged {
		t.Errorf("Evaluation = %+v", eval)
	}
}

func TestScriptedSelectorSequence(t *testing.T) {
	s := NewScriptedSelector(
		action.NewSelection(action.TypeSpeak, action.SpeakParams{Content: "one"}, ""),
		action.NewSelection(action.TypeTaskComplete, nil, ""),
	)
	th := thought.New("t", "x")
	ctx := context.Background()

	first, err := s.Select(ctx, th, nil)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if first.SelectedAction != action.TypeSpeak {
		t.Errorf("first = %q, want speak", first.SelectedAction)
	}

	// The last step repeats once the script runs out.
	for i := 0; i < 3; i++ {
		result, err := s.Select(ctx, th, nil)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if result.SelectedAction != action.TypeTaskComplete {
			t.Errorf("call %d = %q, want task_complete", i, result.SelectedAction)
		}
	}

	s.Reset()
	again, _ := s.Select(ctx, th, nil)
	if again.SelectedAction != action.TypeSpeak {
		t.Errorf("after Reset() = %q, want speak", again.SelectedAction)
	}
}

func TestScriptedSelectorDefersOnFlaggedEvaluation(t *testing.T) {
	s := NewScriptedSelector(action.NewSelection(action.TypeSpeak, action.SpeakParams{Content: "hi"}, ""))
	result, err := s.Select(context.Background(), thought.New("t", "x"), []application.Evaluation{
		{Evaluator: "ethical", Opinion: "harmful", Flagged: true},
	})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if result.SelectedAction != action.TypeDefer {
		t.Errorf("SelectedAction = %q, want defer", result.SelectedAction)
	}
}

func TestEchoSelector(t *testing.T) {
	s := NewEchoSelector()
	ctx := context.Background()

	standard := thought.New("t", "hello world")
	result, err := s.Select(ctx, standard, nil)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if result.SelectedAction != action.TypeSpeak {
		t.Errorf("standard thought = %q, want speak", result.SelectedAction)
	}

	followUp := thought.NewFollowUp(standard, "spoke")
	result, err = s.Select(ctx, followUp, nil)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if result.SelectedAction != action.TypeTaskComplete {
		t.Errorf("follow-up thought = %q, want task_complete", result.SelectedAction)
	}
}

func TestDenylistGuardrail(t *testing.T) {
	g := NewDenylistGuardrail("secret")
	ctx := context.Background()
	th := thought.New("t", "x")

	tests := []struct {
		name   string
		result *action.SelectionResult
		want   bool
	}{
		{
			name:   "clean speak passes",
			result: action.NewSelection(action.TypeSpeak, action.SpeakParams{Content: "hello"}, ""),
			want:   true,
		},
		{
			name:   "denied term fails",
			result: action.NewSelection(action.TypeSpeak, action.SpeakParams{Content: "the SECRET plan"}, ""),
			want:   false,
		},
		{
			name:   "non-speak actions pass",
			result: action.NewSelection(action.TypeMemorize, action.MemorizeParams{Key: "k", Value: "secret"}, ""),
			want:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := g.Check(ctx, th, tt.result)
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if verdict.Passed != tt.want {
				t.Errorf("Passed = %v, want %v", verdict.Passed, tt.want)
			}
		})
	}
}
