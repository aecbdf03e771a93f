package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/veritaslabs/cogito/domain/service"
)

// fakeComm is a minimal provider instance. Distinct pointer values give
// distinct identities in assertions.
type fakeComm struct {
	name      string
	healthErr error
	probes    int
}

func (f *fakeComm) SendMessage(ctx context.Context, channelID, content string) error {
	return nil
}

func (f *fakeComm) FetchMessages(ctx context.Context, channelID string, limit int) ([]service.Message, error) {
	return nil, nil
}

// probedComm additionally exposes a health probe.
type probedComm struct {
	fakeComm
}

func (f *probedComm) Healthy(ctx context.Context) error {
	f.probes++
	return f.healthErr
}

func TestRegistry_GetService_ReturnsNilWhenEmpty(t *testing.T) {
	r := New()
	if got := r.GetService(context.Background(), "speak", service.TypeCommunication, nil); got != nil {
		t.Fatalf("GetService() = %v on empty registry, want nil", got)
	}
}

func TestRegistry_PriorityOrderWithinGroup(t *testing.T) {
	r := New()
	low := &fakeComm{name: "low"}
	critical := &fakeComm{name: "critical"}

	r.Register("speak", service.TypeCommunication, low, service.PriorityLow, []string{service.CapSendMessage})
	r.Register("speak", service.TypeCommunication, critical, service.PriorityCritical, []string{service.CapSendMessage})

	got := r.GetService(context.Background(), "speak", service.TypeCommunication, []string{service.CapSendMessage})
	if got != critical {
		t.Fatalf("GetService() = %v, want critical-priority provider", got)
	}
}

func TestRegistry_PriorityGroupZeroWinsOverGroupOne(t *testing.T) {
	r := New()
	groupZero := &fakeComm{name: "g0"}
	groupOne := &fakeComm{name: "g1"}

	// Group 1 holds the higher individual priority; group order still wins.
	r.Register("speak", service.TypeCommunication, groupOne, service.PriorityCritical,
		[]string{service.CapSendMessage}, WithGroup(1))
	r.Register("speak", service.TypeCommunication, groupZero, service.PriorityLow,
		[]string{service.CapSendMessage}, WithGroup(0))

	got := r.GetService(context.Background(), "speak", service.TypeCommunication, []string{service.CapSendMessage})
	if got != groupZero {
		t.Fatal("GetService() skipped group 0 despite an available provider")
	}
}

func TestRegistry_CapabilityMatchingIsExactSubset(t *testing.T) {
	r := New()
	sender := &fakeComm{name: "sender"}
	r.Register("observe", service.TypeCommunication, sender, service.PriorityNormal, []string{service.CapSendMessage})

	tests := []struct {
		name     string
		required []string
		found    bool
	}{
		{"no requirements", nil, true},
		{"declared capability", []string{service.CapSendMessage}, true},
		{"missing capability", []string{service.CapFetchMessages}, false},
		{"partial match", []string{service.CapSendMessage, service.CapFetchMessages}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.GetService(context.Background(), "observe", service.TypeCommunication, tt.required)
			if (got != nil) != tt.found {
				t.Errorf("GetService(required=%v) found=%v, want %v", tt.required, got != nil, tt.found)
			}
		})
	}
}

func TestRegistry_FallbackToGlobalPool(t *testing.T) {
	r := New()
	global := &fakeComm{name: "global"}
	r.RegisterGlobal(service.TypeCommunication, global, service.PriorityNormal, []string{service.CapSendMessage})

	got := r.GetService(context.Background(), "speak", service.TypeCommunication, []string{service.CapSendMessage})
	if got != global {
		t.Fatal("GetService() did not fall back to the global pool")
	}

	got = r.GetService(context.Background(), "speak", service.TypeCommunication,
		[]string{service.CapSendMessage}, WithoutGlobalFallback())
	if got != nil {
		t.Fatal("GetService(WithoutGlobalFallback) returned a global provider")
	}
}

func TestRegistry_RoundRobinVisitsAllProviders(t *testing.T) {
	r := New()
	providers := []*fakeComm{{name: "a"}, {name: "b"}, {name: "c"}}
	for _, p := range providers {
		r.Register("speak", service.TypeCommunication, p, service.PriorityNormal,
			[]string{service.CapSendMessage}, WithStrategy(service.StrategyRoundRobin))
	}

	counts := make(map[*fakeComm]int)
	var lastGap int
	gaps := make(map[*fakeComm]int)
	for i := 0; i < 10; i++ {
		got := r.GetService(context.Background(), "speak", service.TypeCommunication, []string{service.CapSendMessage})
		fc, ok := got.(*fakeComm)
		if !ok {
			t.Fatalf("call %d: GetService() = %v, want a provider", i, got)
		}
		counts[fc]++
		for _, p := range providers {
			if p == fc {
				gaps[p] = 0
			} else {
				gaps[p]++
				if gaps[p] > lastGap {
					lastGap = gaps[p]
				}
			}
		}
	}

	for _, p := range providers {
		if counts[p] < 3 {
			t.Errorf("provider %s selected %d times in 10 calls, want >= 3", p.name, counts[p])
		}
	}
	if lastGap > len(providers)-1 {
		t.Errorf("a provider was skipped for %d consecutive calls, want <= %d", lastGap, len(providers)-1)
	}
}

func TestRegistry_RoundRobinSkipsUnhealthyWithoutReset(t *testing.T) {
	r := New()
	healthy1 := &probedComm{fakeComm: fakeComm{name: "h1"}}
	broken := &probedComm{fakeComm: fakeComm{name: "broken", healthErr: errors.New("down")}}
	healthy2 := &probedComm{fakeComm: fakeComm{name: "h2"}}

	for _, p := range []*probedComm{healthy1, broken, healthy2} {
		r.Register("speak", service.TypeCommunication, p, service.PriorityNormal,
			[]string{service.CapSendMessage}, WithStrategy(service.StrategyRoundRobin))
	}

	seen := make(map[any]int)
	for i := 0; i < 6; i++ {
		got := r.GetService(context.Background(), "speak", service.TypeCommunication, []string{service.CapSendMessage})
		if got == nil {
			t.Fatalf("call %d: GetService() = nil, want a healthy provider", i)
		}
		seen[got]++
	}

	if seen[broken] != 0 {
		t.Fatalf("unhealthy provider selected %d times, want 0", seen[broken])
	}
	if seen[healthy1] != 3 || seen[healthy2] != 3 {
		t.Fatalf("healthy providers selected %d/%d times, want 3/3", seen[healthy1], seen[healthy2])
	}
}

func TestRegistry_FailedHealthProbeRecordsBreakerFailure(t *testing.T) {
	r := New()
	broken := &probedComm{fakeComm: fakeComm{name: "broken", healthErr: errors.New("down")}}
	id := r.Register("speak", service.TypeCommunication, broken, service.PriorityNormal,
		[]string{service.CapSendMessage}, WithBreakerConfig(BreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Hour}))

	// Two failed probes open the breaker.
	for i := 0; i < 2; i++ {
		if got := r.GetService(context.Background(), "speak", service.TypeCommunication, []string{service.CapSendMessage}); got != nil {
			t.Fatalf("GetService() = %v for unhealthy provider, want nil", got)
		}
	}
	probesSoFar := broken.probes

	// With the breaker open, the provider is skipped without probing.
	if got := r.GetService(context.Background(), "speak", service.TypeCommunication, []string{service.CapSendMessage}); got != nil {
		t.Fatalf("GetService() = %v while breaker open, want nil", got)
	}
	if broken.probes != probesSoFar {
		t.Fatal("provider was probed while its breaker was open")
	}

	if !r.Unregister(id) {
		t.Fatal("Unregister() = false for registered provider")
	}
}

func TestRegistry_CriticalFallbackRecovery(t *testing.T) {
	r := New()
	critical := &probedComm{fakeComm: fakeComm{name: "critical"}}
	fallback := &fakeComm{name: "fallback"}

	r.Register("speak", service.TypeCommunication, critical, service.PriorityCritical,
		[]string{service.CapSendMessage}, WithBreakerConfig(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute}))
	r.Register("speak", service.TypeCommunication, fallback, service.PriorityFallback,
		[]string{service.CapSendMessage})

	// Healthy critical provider is preferred.
	if got := r.GetService(context.Background(), "speak", service.TypeCommunication, []string{service.CapSendMessage}); got != critical {
		t.Fatal("expected critical provider while healthy")
	}

	// Open the critical provider's breaker via a failed probe.
	critical.healthErr = errors.New("down")
	if got := r.GetService(context.Background(), "speak", service.TypeCommunication, []string{service.CapSendMessage}); got != fallback {
		t.Fatal("expected fallback provider while critical breaker open")
	}

	// After the recovery timeout and one passing probe the critical
	// provider is selected again.
	critical.healthErr = nil
	findBreaker(t, r, "critical").now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if got := r.GetService(context.Background(), "speak", service.TypeCommunication, []string{service.CapSendMessage}); got != critical {
		t.Fatal("expected critical provider after breaker recovery")
	}
}

// findBreaker locates a provider's breaker by instance name substring.
func findBreaker(t *testing.T, r *ServiceRegistry, name string) *CircuitBreaker {
	t.Helper()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, kinds := range r.handlers {
		for _, providers := range kinds {
			for _, p := range providers {
				if fc, ok := p.Instance.(*probedComm); ok && fc.name == name {
					return p.Breaker
				}
			}
		}
	}
	t.Fatalf("no provider named %q", name)
	return nil
}

func TestRegistry_GetServicesByTypeDeduplicates(t *testing.T) {
	r := New()
	shared := &fakeComm{name: "shared"}
	open := &fakeComm{name: "open"}

	r.Register("speak", service.TypeCommunication, shared, service.PriorityNormal, []string{service.CapSendMessage})
	r.Register("observe", service.TypeCommunication, shared, service.PriorityNormal, []string{service.CapFetchMessages})
	openID := r.Register("speak", service.TypeCommunication, open, service.PriorityNormal,
		[]string{service.CapSendMessage}, WithBreakerConfig(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour}))

	// Open the second provider's breaker.
	r.mu.RLock()
	for _, kinds := range r.handlers {
		for _, providers := range kinds {
			for _, p := range providers {
				if p.ID == openID {
					p.Breaker.RecordFailure()
				}
			}
		}
	}
	r.mu.RUnlock()

	got := r.GetServicesByType(service.TypeCommunication)
	if len(got) != 1 || got[0] != shared {
		t.Fatalf("GetServicesByType() = %v, want exactly the shared healthy instance", got)
	}
}

func TestRegistry_WaitReady(t *testing.T) {
	r := New()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if r.WaitReady(ctx, service.TypeCommunication) {
		t.Fatal("WaitReady() = true with no providers registered")
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		r.RegisterGlobal(service.TypeCommunication, &fakeComm{name: "late"}, service.PriorityNormal, nil)
	}()

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	if !r.WaitReady(ctx2, service.TypeCommunication) {
		t.Fatal("WaitReady() = false after provider registration")
	}
}

func TestRegistry_ResetAndClear(t *testing.T) {
	r := New()
	id := r.Register("speak", service.TypeCommunication, &fakeComm{name: "a"}, service.PriorityNormal,
		[]string{service.CapSendMessage}, WithBreakerConfig(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour}))

	info := r.Info()
	if len(info) != 1 {
		t.Fatalf("Info() returned %d entries, want 1", len(info))
	}
	if info[0].ID != id {
		t.Fatalf("Info()[0].ID = %s, want %s", info[0].ID, id)
	}

	findAnyBreaker(t, r).RecordFailure()
	if got := r.GetService(context.Background(), "speak", service.TypeCommunication, nil); got != nil {
		t.Fatal("GetService() returned provider with open breaker")
	}

	r.ResetCircuitBreakers()
	if got := r.GetService(context.Background(), "speak", service.TypeCommunication, nil); got == nil {
		t.Fatal("GetService() = nil after breaker reset")
	}

	r.ClearAll()
	if got := r.GetService(context.Background(), "speak", service.TypeCommunication, nil); got != nil {
		t.Fatal("GetService() returned provider after ClearAll")
	}
}

func findAnyBreaker(t *testing.T, r *ServiceRegistry) *CircuitBreaker {
	t.Helper()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, kinds := range r.handlers {
		for _, providers := range kinds {
			for _, p := range providers {
				return p.Breaker
			}
		}
	}
	t.Fatal("registry has no providers")
	return nil
}
