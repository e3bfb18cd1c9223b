// Package vector runs several environments as one batched environment.
package vector

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/boristopalov/smbgym/pkg/core"
	"github.com/boristopalov/smbgym/pkg/environment"
	"github.com/boristopalov/smbgym/pkg/spaces"
)

var (
	ErrNoPendingCall  = errors.New("no pending call")
	ErrAlreadyPending = errors.New("a call is already pending")
	ErrClosed         = errors.New("vector env is closed")
	ErrNoEnvs         = errors.New("at least one environment factory is required")
	ErrSpaceMismatch  = errors.New("environments disagree on spaces")
)

// EnvFactory builds one member environment.
type EnvFactory func(ctx context.Context) (environment.Env, error)

// Batch is the result of stepping every environment once. Slices are
// indexed by environment.
type Batch struct {
	Observations core.Observation
	Rewards      []float64
	Terminateds  []bool
	Truncateds   []bool
	Infos        []core.Info
}

// AnyDone reports whether some environment terminated or truncated.
func (b Batch) AnyDone() bool {
	for i := range b.Rewards {
		if b.Terminateds[i] || b.Truncateds[i] {
			return true
		}
	}
	return false
}

// VectorEnv is a fixed-size pool of environments stepped in lockstep.
type VectorEnv interface {
	NumEnvs() int
	// Reset resets every environment. A seed in opts seeds env i with seed+i.
	Reset(ctx context.Context, opts core.ResetOptions) (core.Observation, []core.Info, error)
	// Step sends actions[i] to env i. Finished envs are reset on their next step.
	Step(ctx context.Context, actions []int) (Batch, error)
	ActionSpace() *spaces.MultiDiscrete
	ObservationSpace() *spaces.Box
	SingleActionSpace() *spaces.Discrete
	SingleObservationSpace() *spaces.Box
	Close(ctx context.Context) error
}

// PanicError is a recovered panic from inside an environment call.
type PanicError struct {
	Index int
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("env %d panicked: %v\n%s", p.Index, p.Value, p.Stack)
}

// guard runs fn and turns a panic into a *PanicError.
func guard(index int, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Index: index, Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// slot owns one member env and its autoreset flag.
type slot struct {
	index     int
	env       environment.Env
	autoreset bool
}

func (s *slot) reset(ctx context.Context, opts core.ResetOptions) (obs core.Observation, info core.Info, err error) {
	err = guard(s.index, func() error {
		var rerr error
		obs, info, rerr = s.env.Reset(ctx, seedFor(opts, s.index))
		return rerr
	})
	if err != nil {
		return obs, info, fmt.Errorf("reset env %d: %w", s.index, err)
	}
	s.autoreset = false
	return obs, info, nil
}

// step advances the env, or resets it when it finished on the previous step.
// The second return value reports whether this call was an autoreset.
func (s *slot) step(ctx context.Context, action int) (res core.StepResult, reset bool, err error) {
	if s.autoreset {
		var obs core.Observation
		var info core.Info
		err = guard(s.index, func() error {
			var rerr error
			obs, info, rerr = s.env.Reset(ctx, core.ResetOptions{})
			return rerr
		})
		if err != nil {
			return res, true, fmt.Errorf("autoreset env %d: %w", s.index, err)
		}
		s.autoreset = false
		return core.StepResult{Observation: obs, Info: info}, true, nil
	}
	err = guard(s.index, func() error {
		var serr error
		res, serr = s.env.Step(ctx, action)
		return serr
	})
	if err != nil {
		return res, false, fmt.Errorf("step env %d: %w", s.index, err)
	}
	s.autoreset = res.Done()
	return res, false, nil
}

func (s *slot) close() error {
	err := guard(s.index, s.env.Close)
	if err != nil {
		return fmt.Errorf("close env %d: %w", s.index, err)
	}
	return nil
}

func seedFor(opts core.ResetOptions, index int) core.ResetOptions {
	if opts.Seed == nil {
		return opts
	}
	seed := *opts.Seed + int64(index)
	return core.ResetOptions{Seed: &seed, Options: opts.Options}
}

// poolSpaces checks that every env exposes the same spaces as the first.
func poolSpaces(envs []environment.Env) (*spaces.Discrete, *spaces.Box, error) {
	act, obs := envs[0].ActionSpace(), envs[0].ObservationSpace()
	for i, env := range envs[1:] {
		if !act.Equal(env.ActionSpace()) || !obs.Equal(env.ObservationSpace()) {
			return nil, nil, fmt.Errorf("%w: env %d has %s/%s, env 0 has %s/%s",
				ErrSpaceMismatch, i+1, env.ActionSpace(), env.ObservationSpace(), act, obs)
		}
	}
	return act, obs, nil
}

func checkActions(space *spaces.MultiDiscrete, actions []int) error {
	if len(actions) != len(space.Nvec) {
		return fmt.Errorf("%w: got %d actions for %d envs", environment.ErrInvalidAction, len(actions), len(space.Nvec))
	}
	if !space.Contains(actions) {
		return fmt.Errorf("%w: %v not in %s", environment.ErrInvalidAction, actions, space)
	}
	return nil
}

// collect assembles per-env step results into a Batch.
func collect(results []core.StepResult) (Batch, error) {
	n := len(results)
	b := Batch{
		Rewards:     make([]float64, n),
		Terminateds: make([]bool, n),
		Truncateds:  make([]bool, n),
		Infos:       make([]core.Info, n),
	}
	frames := make([]core.Observation, n)
	for i, r := range results {
		frames[i] = r.Observation
		b.Rewards[i] = r.Reward
		b.Terminateds[i] = r.Terminated
		b.Truncateds[i] = r.Truncated
		b.Infos[i] = r.Info
	}
	obs, err := core.Stack(frames)
	if err != nil {
		return Batch{}, fmt.Errorf("stack observations: %w", err)
	}
	b.Observations = obs
	return b, nil
}
