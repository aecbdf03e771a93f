// Package resilience provides resilient execution patterns using fortify.
package resilience

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/veritaslabs/cogito/domain/service"
)

// StoreRetry retries transient persistence failures at most once before
// surfacing them to the handler.
type StoreRetry struct {
	retry retry.Retry[struct{}]
}

// NewStoreRetry creates the store-write retrier.
func NewStoreRetry() *StoreRetry {
	return &StoreRetry{
		retry: retry.New[struct{}](retry.Config{
			MaxAttempts:   2,
			InitialDelay:  50 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
		}),
	}
}

// Do runs fn, retrying once on failure.
func (r *StoreRetry) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := r.retry.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// ToolGate bounds concurrent external tool executions and applies a
// per-call timeout.
type ToolGate struct {
	bulkhead bulkhead.Bulkhead[*service.ToolResult]
	timeout  time.Duration
}

// ToolGateConfig configures the tool gate.
type ToolGateConfig struct {
	// MaxConcurrent limits concurrent tool executions.
	MaxConcurrent int

	// Timeout bounds each execution.
	Timeout time.Duration
}

// DefaultToolGateConfig returns a configuration with sensible defaults.
func DefaultToolGateConfig() ToolGateConfig {
	return ToolGateConfig{
		MaxConcurrent: 10,
		Timeout:       30 * time.Second,
	}
}

// NewToolGate creates a tool gate.
func NewToolGate(cfg ToolGateConfig) *ToolGate {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultToolGateConfig().MaxConcurrent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultToolGateConfig().Timeout
	}
	return &ToolGate{
		bulkhead: bulkhead.New[*service.ToolResult](bulkhead.Config{
			MaxConcurrent: cfg.MaxConcurrent,
		}),
		timeout: cfg.Timeout,
	}
}

// Execute runs fn inside the bulkhead with the gate's timeout applied.
func (g *ToolGate) Execute(ctx context.Context, fn func(ctx context.Context) (*service.ToolResult, error)) (*service.ToolResult, error) {
	return g.bulkhead.Execute(ctx, func(ctx context.Context) (*service.ToolResult, error) {
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return fn(ctx)
	})
}
