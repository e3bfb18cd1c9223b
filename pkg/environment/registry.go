package environment

import (
	"fmt"
	"sort"
	"sync"
)

// Spec describes a registered environment id.
type Spec struct {
	ID              string
	EntryPoint      string
	MaxEpisodeSteps int
	Kwargs          map[string]any
}

// Factory builds the unwrapped environment for a spec.
type Factory func(spec Spec) (Env, error)

type entry struct {
	spec    Spec
	factory Factory
}

// Registry maps environment ids to factories.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

var defaultRegistry = NewRegistry()

// Register adds id to the process-wide registry.
func Register(spec Spec, factory Factory) error {
	return defaultRegistry.Register(spec, factory)
}

// Make builds a registered environment from the process-wide registry.
func Make(id string, opts ...MakeOption) (Env, error) {
	return defaultRegistry.Make(id, opts...)
}

// Lookup returns the spec registered for id.
func Lookup(id string) (Spec, error) {
	return defaultRegistry.Lookup(id)
}

// IDs lists every registered id in sorted order.
func IDs() []string {
	return defaultRegistry.IDs()
}

func (r *Registry) Register(spec Spec, factory Factory) error {
	if spec.ID == "" {
		return fmt.Errorf("register: empty environment id")
	}
	if factory == nil {
		return fmt.Errorf("register %s: nil factory", spec.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[spec.ID]; exists {
		return fmt.Errorf("register %s: %w", spec.ID, ErrAlreadyRegistered)
	}
	r.entries[spec.ID] = entry{spec: spec, factory: factory}
	return nil
}

func (r *Registry) Lookup(id string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Spec{}, fmt.Errorf("environment `%s` doesn't exist: %w", id, ErrUnknownID)
	}
	return e.spec, nil
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type makeParams struct {
	kwargs          map[string]any
	maxEpisodeSteps *int
	disableEnforce  bool
}

type MakeOption func(*makeParams)

// WithKwarg overrides a single keyword argument of the spec.
func WithKwarg(key string, value any) MakeOption {
	return func(p *makeParams) {
		if p.kwargs == nil {
			p.kwargs = make(map[string]any)
		}
		p.kwargs[key] = value
	}
}

// WithMaxEpisodeSteps overrides the spec's step limit; zero disables it.
func WithMaxEpisodeSteps(n int) MakeOption {
	return func(p *makeParams) {
		p.maxEpisodeSteps = &n
	}
}

// WithoutOrderEnforcing skips the lifecycle checks Make normally adds.
func WithoutOrderEnforcing() MakeOption {
	return func(p *makeParams) {
		p.disableEnforce = true
	}
}

func (r *Registry) Make(id string, opts ...MakeOption) (Env, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("environment `%s` doesn't exist: %w", id, ErrUnknownID)
	}

	params := &makeParams{}
	for _, opt := range opts {
		opt(params)
	}

	spec := e.spec
	spec.Kwargs = make(map[string]any, len(e.spec.Kwargs)+len(params.kwargs))
	for k, v := range e.spec.Kwargs {
		spec.Kwargs[k] = v
	}
	for k, v := range params.kwargs {
		spec.Kwargs[k] = v
	}
	if params.maxEpisodeSteps != nil {
		spec.MaxEpisodeSteps = *params.maxEpisodeSteps
	}

	env, err := e.factory(spec)
	if err != nil {
		return nil, fmt.Errorf("make %s: %w", id, err)
	}
	if !params.disableEnforce {
		env = Enforce(env)
	}
	if spec.MaxEpisodeSteps > 0 {
		env = TimeLimit(env, spec.MaxEpisodeSteps)
	}
	return env, nil
}
