package upstream

import (
	"sort"
	"sync"
)

// Registry owns one Breaker per upstream name so every client addressing
// the same service shares its failure count.
type Registry struct {
	defaults  Settings
	overrides map[string]Settings
	clock     Clock

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithOverride sets the breaker settings used for one upstream.
func WithOverride(name string, s Settings) RegistryOption {
	return func(r *Registry) { r.overrides[name] = s }
}

// WithRegistryClock makes every breaker in the registry use clock.
func WithRegistryClock(clock Clock) RegistryOption {
	return func(r *Registry) { r.clock = clock }
}

func NewRegistry(defaults Settings, opts ...RegistryOption) *Registry {
	r := &Registry{
		defaults:  defaults,
		overrides: make(map[string]Settings),
		breakers:  make(map[string]*Breaker),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	settings, ok := r.overrides[name]
	if !ok {
		settings = r.defaults
	}
	b := NewBreaker(name, settings, r.clock)
	r.breakers[name] = b
	return b
}

// Snapshot returns stats for every breaker created so far, sorted by name.
func (r *Registry) Snapshot() []Stats {
	r.mu.Lock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	out := make([]Stats, 0, len(breakers))
	for _, b := range breakers {
		out = append(out, b.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
