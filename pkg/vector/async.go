package vector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/boristopalov/smbgym/pkg/core"
	"github.com/boristopalov/smbgym/pkg/environment"
	"github.com/boristopalov/smbgym/pkg/spaces"
)

type commandKind int

const (
	cmdNone commandKind = iota
	cmdReset
	cmdStep
)

func (k commandKind) String() string {
	switch k {
	case cmdReset:
		return "reset"
	case cmdStep:
		return "step"
	}
	return "none"
}

type command struct {
	kind   commandKind
	ctx    context.Context
	opts   core.ResetOptions
	action int
	reply  chan<- reply
}

type reply struct {
	index int
	res   core.StepResult
	reset bool
	err   error
}

// worker owns one env. Only its goroutine touches the slot. Closing cmds
// makes the worker close its env and exit; closeErr is valid once done is
// closed.
type worker struct {
	slot     *slot
	cmds     chan command
	done     chan struct{}
	closeErr error
}

func (w *worker) run() {
	defer close(w.done)
	for cmd := range w.cmds {
		r := reply{index: w.slot.index}
		switch cmd.kind {
		case cmdReset:
			r.res.Observation, r.res.Info, r.err = w.slot.reset(cmd.ctx, cmd.opts)
		case cmdStep:
			r.res, r.reset, r.err = w.slot.step(cmd.ctx, cmd.action)
		}
		cmd.reply <- r
	}
	w.closeErr = w.slot.close()
}

// pendingCall is an issued Reset or Step whose replies are still arriving.
type pendingCall struct {
	kind    commandKind
	replies chan reply
	got     []reply
	seen    int
	started time.Time
}

// Async runs every environment in its own worker goroutine. Calls are split
// into an Async half that dispatches commands and a Wait half that gathers
// replies, so the caller can overlap work with the environments.
type Async struct {
	id      string
	workers []*worker
	single  *spaces.Discrete
	obs     *spaces.Box
	action  *spaces.MultiDiscrete
	batch   *spaces.Box
	metrics poolMetrics

	mu      sync.Mutex
	pending *pendingCall
	closed  bool
}

var _ VectorEnv = (*Async)(nil)

// NewAsync builds the environments concurrently and starts one worker per
// environment. If any factory fails the ones already built are closed.
func NewAsync(ctx context.Context, factories []EnvFactory, opts ...Option) (*Async, error) {
	if len(factories) == 0 {
		return nil, ErrNoEnvs
	}
	params := newPoolParams(opts)

	envs := make([]environment.Env, len(factories))
	g, gctx := errgroup.WithContext(ctx)
	for i, factory := range factories {
		i, factory := i, factory
		g.Go(func() error {
			return guard(i, func() error {
				env, err := factory(gctx)
				if err != nil {
					return fmt.Errorf("create env %d: %w", i, err)
				}
				envs[i] = env
				return nil
			})
		})
	}
	closeAll := func() {
		for _, env := range envs {
			if env != nil {
				env.Close()
			}
		}
	}
	if err := g.Wait(); err != nil {
		closeAll()
		return nil, err
	}
	single, obs, err := poolSpaces(envs)
	if err != nil {
		closeAll()
		return nil, err
	}

	v := &Async{
		id:      params.id,
		workers: make([]*worker, len(envs)),
		single:  single,
		obs:     obs,
		action:  spaces.BatchDiscrete(single, len(envs)),
		batch:   spaces.BatchBox(obs, len(envs)),
		metrics: poolMetrics{m: params.metrics, id: params.id},
	}
	for i, env := range envs {
		w := &worker{
			slot: &slot{index: i, env: env},
			cmds: make(chan command, 1),
			done: make(chan struct{}),
		}
		v.workers[i] = w
		go w.run()
	}
	v.metrics.setEnvs(len(envs))
	log.Printf("vector pool %s: started %d workers", v.id, len(envs))
	return v, nil
}

func (v *Async) ID() string { return v.id }

func (v *Async) NumEnvs() int { return len(v.workers) }

func (v *Async) ActionSpace() *spaces.MultiDiscrete { return v.action }

func (v *Async) ObservationSpace() *spaces.Box { return v.batch }

func (v *Async) SingleActionSpace() *spaces.Discrete { return v.single }

func (v *Async) SingleObservationSpace() *spaces.Box { return v.obs }

func (v *Async) Reset(ctx context.Context, opts core.ResetOptions) (core.Observation, []core.Info, error) {
	if err := v.ResetAsync(ctx, opts); err != nil {
		return core.Observation{}, nil, err
	}
	return v.ResetWait(ctx)
}

func (v *Async) Step(ctx context.Context, actions []int) (Batch, error) {
	if err := v.StepAsync(ctx, actions); err != nil {
		return Batch{}, err
	}
	return v.StepWait(ctx)
}

// ResetAsync asks every worker to reset its environment.
func (v *Async) ResetAsync(ctx context.Context, opts core.ResetOptions) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dispatch(ctx, cmdReset, func(i int) command {
		return command{kind: cmdReset, ctx: ctx, opts: opts}
	})
}

// ResetWait gathers the replies of the pending ResetAsync.
func (v *Async) ResetWait(ctx context.Context) (core.Observation, []core.Info, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	call, err := v.await(ctx, cmdReset)
	if err != nil {
		return core.Observation{}, nil, err
	}

	frames := make([]core.Observation, len(call.got))
	infos := make([]core.Info, len(call.got))
	for i, r := range call.got {
		frames[i], infos[i] = r.res.Observation, r.res.Info
	}
	v.metrics.observeReset(len(call.got))
	obs, err := core.Stack(frames)
	if err != nil {
		return core.Observation{}, nil, fmt.Errorf("stack observations: %w", err)
	}
	return obs, infos, nil
}

// StepAsync sends actions[i] to worker i.
func (v *Async) StepAsync(ctx context.Context, actions []int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if err := checkActions(v.action, actions); err != nil {
		return err
	}
	return v.dispatch(ctx, cmdStep, func(i int) command {
		return command{kind: cmdStep, ctx: ctx, action: actions[i]}
	})
}

// StepWait gathers the replies of the pending StepAsync.
func (v *Async) StepWait(ctx context.Context) (Batch, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	call, err := v.await(ctx, cmdStep)
	if err != nil {
		return Batch{}, err
	}

	results := make([]core.StepResult, len(call.got))
	autoreset := make([]bool, len(call.got))
	for i, r := range call.got {
		results[i], autoreset[i] = r.res, r.reset
	}
	b, err := collect(results)
	if err != nil {
		return Batch{}, err
	}
	v.metrics.observeStep(b, autoreset, time.Since(call.started).Seconds())
	return b, nil
}

// dispatch must be called with v.mu held.
func (v *Async) dispatch(ctx context.Context, kind commandKind, build func(i int) command) error {
	if v.closed {
		return ErrClosed
	}
	if v.pending != nil {
		return fmt.Errorf("%w: %s is waiting for its results", ErrAlreadyPending, v.pending.kind)
	}
	call := &pendingCall{
		kind:    kind,
		replies: make(chan reply, len(v.workers)),
		got:     make([]reply, len(v.workers)),
		started: time.Now(),
	}
	for i, w := range v.workers {
		cmd := build(i)
		cmd.reply = call.replies
		// The buffer holds one command and no call is pending, so this never blocks.
		w.cmds <- cmd
	}
	v.pending = call
	return nil
}

// await collects every reply for the pending call of the given kind. If ctx
// ends first the call stays pending and a later wait picks up where this
// one stopped. Must be called with v.mu held.
func (v *Async) await(ctx context.Context, kind commandKind) (*pendingCall, error) {
	if v.closed {
		return nil, ErrClosed
	}
	call := v.pending
	if call == nil || call.kind != kind {
		return nil, fmt.Errorf("%w: call %s before waiting on it", ErrNoPendingCall, kind)
	}
	if err := v.drain(ctx, call); err != nil {
		return nil, fmt.Errorf("wait for %s: %w", kind, err)
	}
	v.pending = nil

	for _, r := range call.got {
		if r.err != nil {
			return nil, r.err
		}
	}
	return call, nil
}

func (v *Async) drain(ctx context.Context, call *pendingCall) error {
	for call.seen < len(v.workers) {
		select {
		case r := <-call.replies:
			call.got[r.index] = r
			call.seen++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close waits for any pending call, then closes every environment and stops
// the workers. Every worker is told to close even when ctx is already done;
// ctx only bounds how long Close waits for them. It returns the joined close
// errors. Later calls return nil.
func (v *Async) Close(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true

	var errs []error
	if call := v.pending; call != nil {
		v.pending = nil
		if err := v.drain(ctx, call); err != nil {
			errs = append(errs, fmt.Errorf("drain pending %s: %w", call.kind, err))
		}
	}

	for _, w := range v.workers {
		close(w.cmds)
	}
	for i, w := range v.workers {
		select {
		case <-w.done:
			errs = append(errs, w.closeErr)
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("close env %d: %w", i, ctx.Err()))
		}
	}

	v.metrics.setEnvs(0)
	log.Printf("vector pool %s: closed", v.id)
	return errors.Join(errs...)
}
