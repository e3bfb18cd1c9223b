package experiment

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"github.com/boristopalov/smbgym/pkg/agent"
	"github.com/boristopalov/smbgym/pkg/core"
	"github.com/boristopalov/smbgym/pkg/environment"
	"github.com/boristopalov/smbgym/pkg/messaging"
	"github.com/boristopalov/smbgym/pkg/smb"
	"github.com/boristopalov/smbgym/pkg/vector"
	"github.com/boristopalov/smbgym/pkg/wrappers"
)

// RolloutConfig describes a random-action run over a vector pool.
type RolloutConfig struct {
	EnvID     string
	NumEnvs   int
	Steps     int
	LogEvery  int
	Seed      int64
	ActionSet string
	// Sync steps the pool on the calling goroutine instead of one worker per env.
	Sync bool
	// StatsPath is the CSV file step statistics go to. Empty disables it.
	StatsPath string
}

func DefaultRolloutConfig() RolloutConfig {
	return RolloutConfig{
		EnvID:     "SuperMarioBros-v0",
		NumEnvs:   4,
		Steps:     100,
		LogEvery:  20,
		ActionSet: "simple",
	}
}

func (c RolloutConfig) validate() error {
	switch {
	case c.NumEnvs < 1:
		return fmt.Errorf("num envs must be positive, got %d", c.NumEnvs)
	case c.Steps < 0:
		return fmt.Errorf("steps must not be negative, got %d", c.Steps)
	case c.LogEvery < 1:
		return fmt.Errorf("log interval must be positive, got %d", c.LogEvery)
	}
	return nil
}

// VectorRollout builds a pool of wrapped game environments, steps it with
// random actions and reports rewards as it goes.
type VectorRollout struct {
	cfg      RolloutConfig
	runID    string
	actions  [][]string
	broker   *messaging.SimpleBroker
	agent    *agent.RandomAgent
	poolOpts []vector.Option

	mu      sync.RWMutex
	status  core.ExperimentStatus
	summary []envSummary
}

var _ core.Experiment = (*VectorRollout)(nil)

type RolloutOption func(*VectorRollout)

// WithBroker publishes run events on b instead of a private broker.
func WithBroker(b *messaging.SimpleBroker) RolloutOption {
	return func(r *VectorRollout) {
		r.broker = b
	}
}

// WithPoolOptions forwards options to the vector pool constructor.
func WithPoolOptions(opts ...vector.Option) RolloutOption {
	return func(r *VectorRollout) {
		r.poolOpts = append(r.poolOpts, opts...)
	}
}

func NewVectorRollout(cfg RolloutConfig, opts ...RolloutOption) (*VectorRollout, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	actions, err := smb.ActionSet(cfg.ActionSet)
	if err != nil {
		return nil, err
	}
	if _, err := environment.Lookup(cfg.EnvID); err != nil {
		return nil, err
	}

	r := &VectorRollout{
		cfg:     cfg,
		runID:   "run-" + uuid.New().String(),
		actions: actions,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.broker == nil {
		r.broker = messaging.NewBroker()
	}
	r.agent = agent.NewRandomAgent(
		agent.WithAgentID(r.runID+"-agent"),
		agent.WithSeed(cfg.Seed),
	)
	return r, nil
}

func (r *VectorRollout) RunID() string {
	return r.runID
}

// Factories returns one factory per env. Env rank is made, wrapped in a
// JoypadSpace and reset with seed+rank.
func (r *VectorRollout) Factories() []vector.EnvFactory {
	out := make([]vector.EnvFactory, r.cfg.NumEnvs)
	for rank := range out {
		out[rank] = NewEnvFactory(r.cfg.EnvID, r.actions, r.cfg.Seed+int64(rank))
	}
	return out
}

// NewEnvFactory makes id, wraps it in a JoypadSpace over actions and resets
// it with seed.
func NewEnvFactory(id string, actions [][]string, seed int64) vector.EnvFactory {
	return func(ctx context.Context) (environment.Env, error) {
		env, err := environment.Make(id)
		if err != nil {
			return nil, err
		}
		wrapped, err := wrappers.NewJoypadSpace(env, actions)
		if err != nil {
			env.Close()
			return nil, err
		}
		if _, _, err := wrapped.Reset(ctx, core.WithSeed(seed)); err != nil {
			wrapped.Close()
			return nil, err
		}
		return wrapped, nil
	}
}

func (r *VectorRollout) newPool(ctx context.Context) (vector.VectorEnv, error) {
	if r.cfg.Sync {
		return vector.NewSync(ctx, r.Factories(), r.poolOpts...)
	}
	return vector.NewAsync(ctx, r.Factories(), r.poolOpts...)
}

// Run executes the rollout, writing progress to w. Errors from the pool end
// the run.
func (r *VectorRollout) Run(ctx context.Context, w io.Writer) (err error) {
	r.mu.Lock()
	r.status.Running = true
	r.status.StartTime = time.Now()
	r.status.Errors = nil
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.status.Running = false
		r.status.EndTime = time.Now()
		if err != nil {
			r.status.Errors = append(r.status.Errors, err)
		}
		r.mu.Unlock()
	}()

	if r.cfg.StatsPath != "" {
		f, ferr := os.Create(r.cfg.StatsPath)
		if ferr != nil {
			return fmt.Errorf("create stats file: %w", ferr)
		}
		defer f.Close()
		recorder := NewStatsRecorder(r.runID+"-stats", f)
		if serr := recorder.Start(r.broker); serr != nil {
			return serr
		}
		defer func() {
			if serr := recorder.Stop(r.broker); serr != nil && err == nil {
				err = fmt.Errorf("stats: %w", serr)
			}
		}()
	}

	return r.runLoop(ctx, w)
}

func (r *VectorRollout) runLoop(ctx context.Context, w io.Writer) error {
	n := r.cfg.NumEnvs
	fmt.Fprintf(w, "Creating %d parallel environments...\n", n)
	pool, err := r.newPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close(context.Background())

	fmt.Fprintln(w, "Environments created successfully!")
	fmt.Fprintf(w, "Observation space: %s\n", pool.ObservationSpace())
	fmt.Fprintf(w, "Action space: %s\n", pool.ActionSpace())
	r.publish(messaging.Event{Type: messaging.EventRunStarted, EnvIndex: -1, Value: float64(n)})

	obs, _, err := pool.Reset(ctx, core.ResetOptions{})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nReset complete. Observations shape: %s\n", core.FormatShape(obs.Shape()))

	fmt.Fprintf(w, "\nRunning %d steps across %d environments...\n", r.cfg.Steps, n)
	summary := make([]envSummary, n)
	for step := 0; step < r.cfg.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		actions := r.agent.Act(pool.ActionSpace())
		b, err := pool.Step(ctx, actions)
		if err != nil {
			return err
		}
		r.agent.Observe(b)

		finished := 0
		for i := range summary {
			summary[i].observe(b, i)
			if b.Terminateds[i] || b.Truncateds[i] {
				finished++
				r.publish(messaging.Event{
					Type:     messaging.EventEpisodeEnded,
					Step:     step,
					EnvIndex: i,
					Value:    summary[i].lastReturn,
				})
			}
		}
		r.publish(messaging.Event{
			Type:     messaging.EventStep,
			Step:     step,
			EnvIndex: -1,
			Value:    float64(finished),
			Values:   b.Rewards,
		})

		if step%r.cfg.LogEvery == 0 {
			fmt.Fprintf(w, "Step %d: Rewards = %s\n", step, formatRewards(b.Rewards))
		}
		if b.AnyDone() {
			fmt.Fprintf(w, "Step %d: Some environments finished\n", step)
		}
	}

	r.mu.Lock()
	r.summary = summary
	r.mu.Unlock()
	r.publish(messaging.Event{Type: messaging.EventRunFinished, Step: r.cfg.Steps, EnvIndex: -1})

	fmt.Fprintln(w)
	if err := renderSummary(w, summary, r.cfg.Steps, pool.SingleObservationSpace().Shape()); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nClosing environments...")
	if err := pool.Close(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "Done!")
	return nil
}

func (r *VectorRollout) publish(ev messaging.Event) {
	ev.RunID = r.runID
	if err := r.broker.Publish(ev); err != nil {
		log.Printf("Warning: dropped %s event: %v", ev.Type, err)
	}
}

func (r *VectorRollout) GetStatus() core.ExperimentStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status := r.status
	status.Errors = append([]error(nil), r.status.Errors...)
	return status
}

// RecentReturns lists returns of the most recently finished episodes.
func (r *VectorRollout) RecentReturns() []float64 {
	return r.agent.RecentReturns()
}

// envSummary accumulates one env's progress over a run.
type envSummary struct {
	total      float64
	episodeRet float64
	lastReturn float64
	episodes   int
	xPos       any
	world      any
	stage      any
}

func (s *envSummary) observe(b vector.Batch, i int) {
	s.total += b.Rewards[i]
	s.episodeRet += b.Rewards[i]
	if b.Terminateds[i] || b.Truncateds[i] {
		s.episodes++
		s.lastReturn = s.episodeRet
		s.episodeRet = 0
	}
	if info := b.Infos[i]; info != nil {
		if v, ok := info["x_pos"]; ok {
			s.xPos = v
		}
		if v, ok := info["world"]; ok {
			s.world = v
		}
		if v, ok := info["stage"]; ok {
			s.stage = v
		}
	}
}

func renderSummary(w io.Writer, summary []envSummary, steps int, frame []int) error {
	table := tablewriter.NewWriter(w)
	table.Header("Env", "Total Reward", "Episodes", "Stage", "X Pos")
	for i, s := range summary {
		stage := "-"
		if s.world != nil {
			stage = fmt.Sprintf("%v-%v", s.world, s.stage)
		}
		xPos := "-"
		if s.xPos != nil {
			xPos = fmt.Sprint(s.xPos)
		}
		if err := table.Append(
			fmt.Sprint(i),
			fmt.Sprintf("%.1f", s.total),
			fmt.Sprint(s.episodes),
			stage,
			xPos,
		); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	frameBytes := uint64(1)
	for _, d := range frame {
		frameBytes *= uint64(d)
	}
	frames := int64(steps) * int64(len(summary))
	fmt.Fprintf(w, "Frames: %s (%s of observations)\n",
		humanize.Comma(frames), humanize.Bytes(frameBytes*uint64(frames)))
	return nil
}

func formatRewards(rewards []float64) string {
	parts := make([]string, len(rewards))
	for i, r := range rewards {
		parts[i] = strconv.FormatFloat(r, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
