package environment

import (
	"context"
	"sync"
	"time"

	"github.com/boristopalov/smbgym/pkg/core"
	"github.com/boristopalov/smbgym/pkg/spaces"
)

const (
	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusClosed  = "closed"
)

// Env is a simulated episode with a reset/step/close lifecycle.
type Env interface {
	// Reset starts a new episode and returns its first observation
	Reset(ctx context.Context, opts core.ResetOptions) (core.Observation, core.Info, error)
	// Step advances the episode by one timestep
	Step(ctx context.Context, action int) (core.StepResult, error)
	// ActionSpace describes the valid actions
	ActionSpace() *spaces.Discrete
	// ObservationSpace describes the observations Reset and Step return
	ObservationSpace() *spaces.Box
	// Close releases the environment's resources
	Close() error
}

// Wrapper forwards every call to the wrapped Env. Embed it and override
// the methods a wrapper changes.
type Wrapper struct {
	Env
}

func (w Wrapper) Unwrap() Env {
	return w.Env
}

// Unwrap peels every wrapper off env and returns the innermost Env.
func Unwrap(env Env) Env {
	for {
		u, ok := env.(interface{ Unwrap() Env })
		if !ok {
			return env
		}
		env = u.Unwrap()
	}
}

type State struct {
	Status    string
	Step      uint64 // steps in the current episode
	Episode   uint64
	Timestamp time.Time
}

// BaseEnvironment tracks lifecycle state shared by environment implementations.
type BaseEnvironment struct {
	mu    sync.RWMutex
	state State
}

func NewBaseEnvironment() *BaseEnvironment {
	return &BaseEnvironment{
		state: State{
			Status:    StatusIdle,
			Timestamp: time.Now(),
		},
	}
}

func (e *BaseEnvironment) GetState() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// CheckReset fails once the environment is closed.
func (e *BaseEnvironment) CheckReset() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state.Status == StatusClosed {
		return ErrClosed
	}
	return nil
}

// CheckStep fails when the environment is closed or was never reset.
func (e *BaseEnvironment) CheckStep() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch e.state.Status {
	case StatusClosed:
		return ErrClosed
	case StatusIdle:
		return ErrResetNeeded
	}
	return nil
}

func (e *BaseEnvironment) MarkReset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Status = StatusRunning
	e.state.Step = 0
	e.state.Episode++
	e.state.Timestamp = time.Now()
}

func (e *BaseEnvironment) MarkStep() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Step++
	e.state.Timestamp = time.Now()
}

// MarkClosed records the close and reports whether this call closed it.
func (e *BaseEnvironment) MarkClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Status == StatusClosed {
		return false
	}
	e.state.Status = StatusClosed
	e.state.Timestamp = time.Now()
	return true
}

// orderEnforcing rejects calls made out of lifecycle order.
type orderEnforcing struct {
	Wrapper
	base *BaseEnvironment
}

// Enforce wraps env so that stepping before reset or using it after close
// return errors, and closing twice is a no-op.
func Enforce(env Env) Env {
	return &orderEnforcing{Wrapper: Wrapper{env}, base: NewBaseEnvironment()}
}

func (o *orderEnforcing) Reset(ctx context.Context, opts core.ResetOptions) (core.Observation, core.Info, error) {
	if err := o.base.CheckReset(); err != nil {
		return core.Observation{}, nil, err
	}
	obs, info, err := o.Env.Reset(ctx, opts)
	if err != nil {
		return obs, info, err
	}
	o.base.MarkReset()
	return obs, info, nil
}

func (o *orderEnforcing) Step(ctx context.Context, action int) (core.StepResult, error) {
	if err := o.base.CheckStep(); err != nil {
		return core.StepResult{}, err
	}
	res, err := o.Env.Step(ctx, action)
	if err != nil {
		return res, err
	}
	o.base.MarkStep()
	return res, nil
}

func (o *orderEnforcing) Close() error {
	if !o.base.MarkClosed() {
		return nil
	}
	return o.Env.Close()
}

func (o *orderEnforcing) GetState() State {
	return o.base.GetState()
}
