package vector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/boristopalov/smbgym/pkg/core"
	"github.com/boristopalov/smbgym/pkg/environment"
	"github.com/boristopalov/smbgym/pkg/spaces"
)

// Sync steps its environments one after another on the calling goroutine.
type Sync struct {
	id      string
	slots   []*slot
	single  *spaces.Discrete
	obs     *spaces.Box
	action  *spaces.MultiDiscrete
	batch   *spaces.Box
	metrics poolMetrics

	mu     sync.Mutex
	closed bool
}

var _ VectorEnv = (*Sync)(nil)

func NewSync(ctx context.Context, factories []EnvFactory, opts ...Option) (*Sync, error) {
	if len(factories) == 0 {
		return nil, ErrNoEnvs
	}
	params := newPoolParams(opts)

	envs := make([]environment.Env, 0, len(factories))
	closeAll := func() {
		for _, env := range envs {
			env.Close()
		}
	}
	for i, factory := range factories {
		var env environment.Env
		err := guard(i, func() error {
			var ferr error
			env, ferr = factory(ctx)
			return ferr
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("create env %d: %w", i, err)
		}
		envs = append(envs, env)
	}
	single, obs, err := poolSpaces(envs)
	if err != nil {
		closeAll()
		return nil, err
	}

	v := &Sync{
		id:      params.id,
		slots:   make([]*slot, len(envs)),
		single:  single,
		obs:     obs,
		action:  spaces.BatchDiscrete(single, len(envs)),
		batch:   spaces.BatchBox(obs, len(envs)),
		metrics: poolMetrics{m: params.metrics, id: params.id},
	}
	for i, env := range envs {
		v.slots[i] = &slot{index: i, env: env}
	}
	v.metrics.setEnvs(len(envs))
	return v, nil
}

func (v *Sync) ID() string { return v.id }

func (v *Sync) NumEnvs() int { return len(v.slots) }

func (v *Sync) ActionSpace() *spaces.MultiDiscrete { return v.action }

func (v *Sync) ObservationSpace() *spaces.Box { return v.batch }

func (v *Sync) SingleActionSpace() *spaces.Discrete { return v.single }

func (v *Sync) SingleObservationSpace() *spaces.Box { return v.obs }

func (v *Sync) Reset(ctx context.Context, opts core.ResetOptions) (core.Observation, []core.Info, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return core.Observation{}, nil, ErrClosed
	}

	frames := make([]core.Observation, len(v.slots))
	infos := make([]core.Info, len(v.slots))
	for i, s := range v.slots {
		obs, info, err := s.reset(ctx, opts)
		if err != nil {
			return core.Observation{}, nil, err
		}
		frames[i], infos[i] = obs, info
	}
	v.metrics.observeReset(len(v.slots))
	batch, err := core.Stack(frames)
	if err != nil {
		return core.Observation{}, nil, fmt.Errorf("stack observations: %w", err)
	}
	return batch, infos, nil
}

// Step runs the environments in order. ctx is checked once before the first
// env steps. If an env fails, the envs before it have already stepped and the
// pool is not rolled back; the caller should Reset.
func (v *Sync) Step(ctx context.Context, actions []int) (Batch, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return Batch{}, ErrClosed
	}
	if err := checkActions(v.action, actions); err != nil {
		return Batch{}, err
	}
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}

	start := time.Now()
	results := make([]core.StepResult, len(v.slots))
	autoreset := make([]bool, len(v.slots))
	for i, s := range v.slots {
		res, reset, err := s.step(ctx, actions[i])
		if err != nil {
			return Batch{}, err
		}
		results[i], autoreset[i] = res, reset
	}
	b, err := collect(results)
	if err != nil {
		return Batch{}, err
	}
	v.metrics.observeStep(b, autoreset, time.Since(start).Seconds())
	return b, nil
}

// Close closes every environment. Later calls return nil.
func (v *Sync) Close(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true

	var errs []error
	for _, s := range v.slots {
		if err := s.close(); err != nil {
			errs = append(errs, err)
		}
	}
	v.metrics.setEnvs(0)
	return errors.Join(errs...)
}
