package registry

import (
	"errors"
	"testing"
	"time"
)

func newTestBreaker(cfg BreakerConfig) (*CircuitBreaker, *time.Time) {
	b := NewCircuitBreaker("test", cfg)
	now := time.Unix(1000, 0)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestCircuitBreaker_OpensAfterFailureThreshold(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Minute})

	b.RecordFailure()
	b.RecordFailure()
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("State() = %v before threshold, want %v", got, BreakerClosed)
	}
	if !b.IsAvailable() {
		t.Fatal("IsAvailable() = false before threshold, want true")
	}

	b.RecordFailure()
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("State() = %v after threshold, want %v", got, BreakerOpen)
	}
	if b.IsAvailable() {
		t.Fatal("IsAvailable() = true while open, want false")
	}
}

func TestCircuitBreaker_SuccessResetsConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Minute})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	if got := b.State(); got != BreakerClosed {
		t.Fatalf("State() = %v, want %v: threshold counts consecutive failures", got, BreakerClosed)
	}
}

func TestCircuitBreaker_RecoveryTimeoutHalfOpens(t *testing.T) {
	b, now := newTestBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute})

	b.RecordFailure()
	if b.IsAvailable() {
		t.Fatal("IsAvailable() = true immediately after opening, want false")
	}

	*now = now.Add(59 * time.Second)
	if b.IsAvailable() {
		t.Fatal("IsAvailable() = true before recovery timeout, want false")
	}

	*now = now.Add(time.Second)
	if !b.IsAvailable() {
		t.Fatal("IsAvailable() = false after recovery timeout, want true")
	}
	if got := b.State(); got != BreakerHalfOpen {
		t.Fatalf("State() = %v after recovery, want %v", got, BreakerHalfOpen)
	}
}

func TestCircuitBreaker_ClosesAfterSuccessThreshold(t *testing.T) {
	b, now := newTestBreaker(BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: 2,
	})

	b.RecordFailure()
	*now = now.Add(time.Minute)
	if !b.IsAvailable() {
		t.Fatal("IsAvailable() = false after recovery timeout, want true")
	}

	b.RecordSuccess()
	if got := b.State(); got != BreakerHalfOpen {
		t.Fatalf("State() = %v after one success, want %v", got, BreakerHalfOpen)
	}

	b.RecordSuccess()
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("State() = %v after success threshold, want %v", got, BreakerClosed)
	}
}

func TestCircuitBreaker_FailureInHalfOpenReopens(t *testing.T) {
	b, now := newTestBreaker(BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: 3,
	})

	b.RecordFailure()
	*now = now.Add(time.Minute)
	if got := b.State(); got != BreakerHalfOpen {
		t.Fatalf("State() = %v, want %v", got, BreakerHalfOpen)
	}

	b.RecordSuccess()
	b.RecordFailure()

	if got := b.State(); got != BreakerOpen {
		t.Fatalf("State() = %v after half-open failure, want %v", got, BreakerOpen)
	}
	if b.IsAvailable() {
		t.Fatal("IsAvailable() = true after half-open failure, want false")
	}
}

func TestCircuitBreaker_CheckAndRaise(t *testing.T) {
	b, now := newTestBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute})

	if err := b.CheckAndRaise(); err != nil {
		t.Fatalf("CheckAndRaise() = %v while closed, want nil", err)
	}

	b.RecordFailure()
	err := b.CheckAndRaise()
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("CheckAndRaise() = %v while open, want ErrCircuitOpen", err)
	}

	*now = now.Add(time.Minute)
	if err := b.CheckAndRaise(); err != nil {
		t.Fatalf("CheckAndRaise() = %v after recovery timeout, want nil", err)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	b.RecordFailure()
	if b.IsAvailable() {
		t.Fatal("IsAvailable() = true while open, want false")
	}

	b.Reset()
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("State() = %v after Reset, want %v", got, BreakerClosed)
	}
	if !b.IsAvailable() {
		t.Fatal("IsAvailable() = false after Reset, want true")
	}
}

func TestBreakerConfig_Defaults(t *testing.T) {
	cfg := BreakerConfig{}.withDefaults()
	def := DefaultBreakerConfig()
	if cfg != def {
		t.Fatalf("withDefaults() = %+v, want %+v", cfg, def)
	}

	custom := BreakerConfig{FailureThreshold: 2}.withDefaults()
	if custom.FailureThreshold != 2 {
		t.Fatalf("FailureThreshold = %d, want 2", custom.FailureThreshold)
	}
	if custom.RecoveryTimeout != def.RecoveryTimeout {
		t.Fatalf("RecoveryTimeout = %v, want default %v", custom.RecoveryTimeout, def.RecoveryTimeout)
	}
}
