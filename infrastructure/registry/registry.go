package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veritaslabs/cogito/domain/service"
	"github.com/veritaslabs/cogito/infrastructure/logging"
)

// readyPollInterval is how often WaitReady re-checks registrations.
const readyPollInterval = 100 * time.Millisecond

// Provider is one registered service instance with its selection metadata.
// The registry owns it exclusively from registration to unregistration.
type Provider struct {
	ID           string
	Name         string
	Priority     service.Priority
	Group        int
	Strategy     service.Strategy
	Instance     any
	Capabilities map[string]struct{}
	Breaker      *CircuitBreaker
}

// hasCapabilities reports exact subset containment of the required tags.
func (p *Provider) hasCapabilities(required []string) bool {
	for _, cap := range required {
		if _, ok := p.Capabilities[cap]; !ok {
			return false
		}
	}
	return true
}

// ProviderInfo is a read-only snapshot of one registration for operator
// inspection.
type ProviderInfo struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Handler      string           `json:"handler,omitempty"`
	Kind         service.Type     `json:"kind"`
	Priority     service.Priority `json:"priority"`
	Group        int              `json:"group"`
	Strategy     string           `json:"strategy"`
	Capabilities []string         `json:"capabilities"`
	BreakerState BreakerState     `json:"breaker_state"`
}

// cursorKey identifies one round-robin rotation: the priority group plus a
// stable provider-type id, never a concatenated string.
type cursorKey struct {
	group    int
	typeName string
}

// RegisterOption customizes one registration.
type RegisterOption func(*Provider)

// WithGroup places the provider in a priority group. Groups are tried in
// ascending order; group 0 is the default.
func WithGroup(group int) RegisterOption {
	return func(p *Provider) {
		p.Group = group
	}
}

// WithStrategy sets the selection strategy of the provider's group.
func WithStrategy(s service.Strategy) RegisterOption {
	return func(p *Provider) {
		p.Strategy = s
	}
}

// WithBreakerConfig overrides the provider's circuit breaker settings.
func WithBreakerConfig(cfg BreakerConfig) RegisterOption {
	return func(p *Provider) {
		p.Breaker = NewCircuitBreaker(p.Name, cfg)
	}
}

// DiscoverOption customizes one discovery call.
type DiscoverOption func(*discovery)

type discovery struct {
	fallbackToGlobal bool
}

// WithoutGlobalFallback restricts discovery to handler-scoped providers.
func WithoutGlobalFallback() DiscoverOption {
	return func(d *discovery) {
		d.fallbackToGlobal = false
	}
}

// ServiceRegistry holds provider pools keyed by (handler, service kind)
// plus a global pool, and selects the best available provider for a
// discovery request. It is owned by the runtime's composition root and
// passed explicitly to every component that needs discovery.
type ServiceRegistry struct {
	mu       sync.RWMutex
	handlers map[string]map[service.Type][]*Provider
	global   map[service.Type][]*Provider
	cursors  map[cursorKey]int

	// defaults applied to registrations without an explicit breaker config,
	// keyed by service kind.
	breakerDefaults map[service.Type]BreakerConfig
}

// New creates an empty service registry.
func New() *ServiceRegistry {
	return &ServiceRegistry{
		handlers:        make(map[string]map[service.Type][]*Provider),
		global:          make(map[service.Type][]*Provider),
		cursors:         make(map[cursorKey]int),
		breakerDefaults: make(map[service.Type]BreakerConfig),
	}
}

// SetBreakerDefaults sets the per-service-class breaker configuration
// applied to future registrations that do not carry their own.
func (r *ServiceRegistry) SetBreakerDefaults(defaults map[service.Type]BreakerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for kind, cfg := range defaults {
		r.breakerDefaults[kind] = cfg
	}
}

// Register registers a provider for a specific handler and returns its
// provider id for later unregistration.
func (r *ServiceRegistry) Register(handler string, kind service.Type, instance any, priority service.Priority, capabilities []string, opts ...RegisterOption) string {
	p := r.newProvider(handler, kind, instance, priority, capabilities, opts)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handlers[handler] == nil {
		r.handlers[handler] = make(map[service.Type][]*Provider)
	}
	r.handlers[handler][kind] = insertByPriority(r.handlers[handler][kind], p)

	logging.Info().
		Add(logging.Handler(handler)).
		Add(logging.ServiceKind(kind)).
		Add(logging.Provider(p.Name)).
		Add(logging.Str("priority", p.Priority.String())).
		Msg("registered service provider")

	return p.ID
}

// RegisterGlobal registers a provider available to all handlers.
func (r *ServiceRegistry) RegisterGlobal(kind service.Type, instance any, priority service.Priority, capabilities []string, opts ...RegisterOption) string {
	p := r.newProvider("global", kind, instance, priority, capabilities, opts)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.global[kind] = insertByPriority(r.global[kind], p)

	logging.Info().
		Add(logging.ServiceKind(kind)).
		Add(logging.Provider(p.Name)).
		Add(logging.Str("priority", p.Priority.String())).
		Msg("registered global service provider")

	return p.ID
}

func (r *ServiceRegistry) newProvider(scope string, kind service.Type, instance any, priority service.Priority, capabilities []string, opts []RegisterOption) *Provider {
	caps := make(map[string]struct{}, len(capabilities))
	for _, c := range capabilities {
		caps[c] = struct{}{}
	}

	name := fmt.Sprintf("%s_%s_%T", scope, kind, instance)
	p := &Provider{
		ID:           uuid.NewString(),
		Name:         name,
		Priority:     priority,
		Strategy:     service.StrategyFallback,
		Instance:     instance,
		Capabilities: caps,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.Breaker == nil {
		r.mu.RLock()
		cfg, ok := r.breakerDefaults[kind]
		r.mu.RUnlock()
		if !ok {
			cfg = DefaultBreakerConfig()
		}
		p.Breaker = NewCircuitBreaker(name, cfg)
	}
	return p
}

// insertByPriority keeps the provider slice sorted by ascending priority.
func insertByPriority(providers []*Provider, p *Provider) []*Provider {
	providers = append(providers, p)
	sort.SliceStable(providers, func(i, j int) bool {
		return providers[i].Priority < providers[j].Priority
	})
	return providers
}

// GetService returns the best available provider instance for the handler
// and service kind, or nil when no provider qualifies. It never returns an
// error: callers must treat nil as "service unavailable" and handle it
// explicitly.
func (r *ServiceRegistry) GetService(ctx context.Context, handler string, kind service.Type, required []string, opts ...DiscoverOption) any {
	d := discovery{fallbackToGlobal: true}
	for _, opt := range opts {
		opt(&d)
	}

	r.mu.RLock()
	var scoped []*Provider
	if kinds, ok := r.handlers[handler]; ok {
		scoped = append(scoped, kinds[kind]...)
	}
	global := append([]*Provider(nil), r.global[kind]...)
	r.mu.RUnlock()

	if instance := r.selectFrom(ctx, scoped, required); instance != nil {
		return instance
	}
	if d.fallbackToGlobal {
		if instance := r.selectFrom(ctx, global, required); instance != nil {
			return instance
		}
	}

	logging.Warn().
		Add(logging.Handler(handler)).
		Add(logging.ServiceKind(kind)).
		Msg("no available service provider")
	return nil
}

// selectFrom walks priority groups in ascending order and applies each
// group's strategy until a provider qualifies.
func (r *ServiceRegistry) selectFrom(ctx context.Context, providers []*Provider, required []string) any {
	if len(providers) == 0 {
		return nil
	}

	grouped := make(map[int][]*Provider)
	groups := make([]int, 0)
	for _, p := range providers {
		if _, seen := grouped[p.Group]; !seen {
			groups = append(groups, p.Group)
		}
		grouped[p.Group] = append(grouped[p.Group], p)
	}
	sort.Ints(groups)

	for _, g := range groups {
		group := grouped[g]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Priority < group[j].Priority
		})

		if group[0].Strategy == service.StrategyRoundRobin {
			if instance := r.selectRoundRobin(ctx, g, group, required); instance != nil {
				return instance
			}
			continue
		}

		for _, p := range group {
			if instance := r.validate(ctx, p, required); instance != nil {
				return instance
			}
		}
	}
	return nil
}

// selectRoundRobin rotates the group's cursor past unusable providers
// without resetting position, retrying the full group before giving up.
func (r *ServiceRegistry) selectRoundRobin(ctx context.Context, group int, providers []*Provider, required []string) any {
	key := cursorKey{group: group, typeName: fmt.Sprintf("%T", providers[0].Instance)}

	r.mu.Lock()
	// Clamp against removals that happened since the cursor last advanced.
	idx := r.cursors[key] % len(providers)
	r.mu.Unlock()

	for range providers {
		p := providers[idx]
		if instance := r.validate(ctx, p, required); instance != nil {
			r.mu.Lock()
			r.cursors[key] = (idx + 1) % len(providers)
			r.mu.Unlock()
			return instance
		}
		idx = (idx + 1) % len(providers)
	}
	return nil
}

// validate checks capabilities, breaker availability, and the optional
// health probe. A failed or erroring probe records a breaker failure; a
// passing validation records a success.
func (r *ServiceRegistry) validate(ctx context.Context, p *Provider, required []string) any {
	if !p.hasCapabilities(required) {
		return nil
	}
	if !p.Breaker.IsAvailable() {
		logging.Debug().
			Add(logging.Provider(p.Name)).
			Msg("provider circuit breaker open")
		return nil
	}

	if hc, ok := p.Instance.(service.HealthChecker); ok {
		probeCtx, cancel := context.WithTimeout(ctx, p.Breaker.Config().CallTimeout)
		err := hc.Healthy(probeCtx)
		cancel()
		if err != nil {
			logging.Debug().
				Add(logging.Provider(p.Name)).
				Add(logging.ErrorField(err)).
				Msg("provider failed health probe")
			p.Breaker.RecordFailure()
			return nil
		}
	}

	p.Breaker.RecordSuccess()
	return p.Instance
}

// Unregister removes a provider by the id returned from Register and
// reports whether it was found.
func (r *ServiceRegistry) Unregister(providerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	for handler, kinds := range r.handlers {
		for kind, providers := range kinds {
			if pruned, ok := removeProvider(providers, providerID); ok {
				r.handlers[handler][kind] = pruned
				found = true
			}
		}
	}
	for kind, providers := range r.global {
		if pruned, ok := removeProvider(providers, providerID); ok {
			r.global[kind] = pruned
			found = true
		}
	}
	return found
}

func removeProvider(providers []*Provider, id string) ([]*Provider, bool) {
	for i, p := range providers {
		if p.ID == id {
			return append(providers[:i:i], providers[i+1:]...), true
		}
	}
	return providers, false
}

// GetServicesByType returns every circuit-available instance of the given
// kind, deduplicated, for broadcast-style fan-out.
func (r *ServiceRegistry) GetServicesByType(kind service.Type) []any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []any
	appendAvailable := func(providers []*Provider) {
		for _, p := range providers {
			if !p.Breaker.IsAvailable() {
				continue
			}
			dup := false
			for _, existing := range out {
				if existing == p.Instance {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, p.Instance)
			}
		}
	}

	for _, kinds := range r.handlers {
		appendAvailable(kinds[kind])
	}
	appendAvailable(r.global[kind])
	return out
}

// WaitReady polls until every required service kind has at least one
// registered provider (handler-scoped or global) or the context is done.
// It returns true when all kinds are present.
func (r *ServiceRegistry) WaitReady(ctx context.Context, kinds ...service.Type) bool {
	if len(kinds) == 0 {
		return true
	}

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		if r.hasAll(kinds) {
			return true
		}
		select {
		case <-ctx.Done():
			logging.Error().
				Add(logging.Str("missing", missingKinds(r, kinds))).
				Msg("service registry readiness timeout")
			return false
		case <-ticker.C:
		}
	}
}

func (r *ServiceRegistry) hasAll(kinds []service.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, kind := range kinds {
		if !r.hasKindLocked(kind) {
			return false
		}
	}
	return true
}

func (r *ServiceRegistry) hasKindLocked(kind service.Type) bool {
	if len(r.global[kind]) > 0 {
		return true
	}
	for _, kinds := range r.handlers {
		if len(kinds[kind]) > 0 {
			return true
		}
	}
	return false
}

func missingKinds(r *ServiceRegistry, kinds []service.Type) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	missing := ""
	for _, kind := range kinds {
		if !r.hasKindLocked(kind) {
			if missing != "" {
				missing += ", "
			}
			missing += string(kind)
		}
	}
	return missing
}

// ResetCircuitBreakers resets every provider's breaker to closed.
func (r *ServiceRegistry) ResetCircuitBreakers() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, kinds := range r.handlers {
		for _, providers := range kinds {
			for _, p := range providers {
				p.Breaker.Reset()
			}
		}
	}
	for _, providers := range r.global {
		for _, p := range providers {
			p.Breaker.Reset()
		}
	}
}

// ClearAll removes every registration and rotation cursor.
func (r *ServiceRegistry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[string]map[service.Type][]*Provider)
	r.global = make(map[service.Type][]*Provider)
	r.cursors = make(map[cursorKey]int)
}

// Info returns a snapshot of every registration.
func (r *ServiceRegistry) Info() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ProviderInfo
	for handler, kinds := range r.handlers {
		for kind, providers := range kinds {
			for _, p := range providers {
				out = append(out, snapshot(p, handler, kind))
			}
		}
	}
	for kind, providers := range r.global {
		for _, p := range providers {
			out = append(out, snapshot(p, "", kind))
		}
	}
	return out
}

func snapshot(p *Provider, handler string, kind service.Type) ProviderInfo {
	caps := make([]string, 0, len(p.Capabilities))
	for c := range p.Capabilities {
		caps = append(caps, c)
	}
	sort.Strings(caps)
	return ProviderInfo{
		ID:           p.ID,
		Name:         p.Name,
		Handler:      handler,
		Kind:         kind,
		Priority:     p.Priority,
		Group:        p.Group,
		Strategy:     p.Strategy.String(),
		Capabilities: caps,
		BreakerState: p.Breaker.State(),
	}
}
