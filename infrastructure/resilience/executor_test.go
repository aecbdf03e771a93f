package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/veritaslabs/cogito/domain/service"
)

func TestStoreRetrySucceedsFirstAttempt(t *testing.T) {
	r := NewStoreRetry()

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestStoreRetryRetriesOnce(t *testing.T) {
	r := NewStoreRetry()

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error after recovery: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestStoreRetrySurfacesPersistentFailure(t *testing.T) {
	r := NewStoreRetry()

	sentinel := errors.New("disk gone")
	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return sentinel
	})
	if err == nil {
		t.Fatal("Do() should surface the persistent failure")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want exactly 2 attempts", calls)
	}
}

func TestToolGateExecutes(t *testing.T) {
	gate := NewToolGate(DefaultToolGateConfig())

	result, err := gate.Execute(context.Background(), func(ctx context.Context) (*service.ToolResult, error) {
		return &service.ToolResult{Name: "search"}, nil
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if result.Name != "search" || !result.OK() {
		t.Errorf("result = %+v", result)
	}
}

func TestToolGateAppliesTimeout(t *testing.T) {
	gate := NewToolGate(ToolGateConfig{MaxConcurrent: 1, Timeout: 20 * time.Millisecond})

	_, err := gate.Execute(context.Background(), func(ctx context.Context) (*service.ToolResult, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return &service.ToolResult{Name: "slow"}, nil
		}
	})
	if err == nil {
		t.Fatal("Execute() should fail when the tool outlives the timeout")
	}
}

func TestToolGateBoundsConcurrency(t *testing.T) {
	gate := NewToolGate(ToolGateConfig{MaxConcurrent: 2, Timeout: time.Second})

	var active, peak atomic.Int32
	done := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, _ = gate.Execute(context.Background(), func(ctx context.Context) (*service.ToolResult, error) {
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				active.Add(-1)
				return &service.ToolResult{Name: "probe"}, nil
			})
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}

	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", got)
	}
}

func TestToolGateConfigDefaultsApplied(t *testing.T) {
	gate := NewToolGate(ToolGateConfig{})
	if gate.timeout != DefaultToolGateConfig().Timeout {
		t.Errorf("timeout = %v, want default", gate.timeout)
	}
}

func TestToolResultOK(t *testing.T) {
	if (&service.ToolResult{Error: "boom"}).OK() {
		t.Error("result with error should not be OK")
	}
	var nilResult *service.ToolResult
	if nilResult.OK() {
		t.Error("nil result should not be OK")
	}
}
