// Package smb provides Super Mario Bros style environments: a compact
// deterministic platformer with the controller, reward and info
// conventions of the NES game environments.
package smb

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/boristopalov/smbgym/pkg/core"
	"github.com/boristopalov/smbgym/pkg/environment"
	"github.com/boristopalov/smbgym/pkg/spaces"
)

const (
	RewardMin    = -15.0
	RewardMax    = 15.0
	DeathPenalty = -25.0
	// Larger x jumps come from respawns and stage changes, not movement.
	maxXDelta = 5
)

// Config selects the game variant an Env plays.
type Config struct {
	LostLevels bool
	Mode       RenderMode
	// Target restricts the episode to one stage.
	Target *Stage
	// RandomStages picks a stage from Stages (or every stage) on each reset.
	RandomStages bool
	Stages       []Stage
}

// Env is a single Super Mario Bros episode. Actions are raw controller
// bytes; wrap it with a JoypadSpace to use a small discrete action set.
type Env struct {
	cfg         Config
	rng         *rand.Rand
	g           *game
	lastX       int
	lastClock   int
	done        bool
	closed      bool
	actionSpace *spaces.Discrete
	obsSpace    *spaces.Box
}

var _ environment.Env = (*Env)(nil)

func NewEnv(cfg Config) (*Env, error) {
	if cfg.Target != nil && cfg.RandomStages {
		return nil, fmt.Errorf("a target stage and random stages are mutually exclusive")
	}
	if cfg.Target != nil && !cfg.Target.valid() {
		return nil, fmt.Errorf("invalid target stage %s", cfg.Target)
	}
	for _, s := range cfg.Stages {
		if !s.valid() {
			return nil, fmt.Errorf("invalid stage %s", s)
		}
	}
	if cfg.Mode < RenderStandard || cfg.Mode > RenderRectangle {
		return nil, fmt.Errorf("invalid render mode %d", cfg.Mode)
	}
	return &Env{
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		actionSpace: spaces.NewDiscrete(256),
		obsSpace:    spaces.NewBox(0, 255, ScreenHeight, ScreenWidth, Channels),
	}, nil
}

func (e *Env) ActionSpace() *spaces.Discrete { return e.actionSpace }

func (e *Env) ObservationSpace() *spaces.Box { return e.obsSpace }

// singleStage reports whether an episode ends with its first stage.
func (e *Env) singleStage() bool {
	return e.cfg.Target != nil || e.cfg.RandomStages
}

func (e *Env) Reset(ctx context.Context, opts core.ResetOptions) (core.Observation, core.Info, error) {
	if err := ctx.Err(); err != nil {
		return core.Observation{}, nil, err
	}
	if e.closed {
		return core.Observation{}, nil, environment.ErrClosed
	}
	if opts.Seed != nil {
		e.rng = rand.New(rand.NewSource(*opts.Seed))
	}

	stage := e.startStage()
	e.g = newGame(stage, e.cfg.LostLevels)
	e.lastX = e.xPos()
	e.lastClock = e.g.clock
	e.done = false
	return e.g.render(e.cfg.Mode), e.info(false), nil
}

func (e *Env) startStage() Stage {
	switch {
	case e.cfg.Target != nil:
		return *e.cfg.Target
	case e.cfg.RandomStages && len(e.cfg.Stages) > 0:
		return e.cfg.Stages[e.rng.Intn(len(e.cfg.Stages))]
	case e.cfg.RandomStages:
		n := e.rng.Intn(Worlds * StagesPerWorld)
		return Stage{World: n/StagesPerWorld + 1, Stage: n%StagesPerWorld + 1}
	default:
		return Stage{World: 1, Stage: 1}
	}
}

func (e *Env) Step(ctx context.Context, action int) (core.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return core.StepResult{}, err
	}
	if e.closed {
		return core.StepResult{}, environment.ErrClosed
	}
	if e.g == nil {
		return core.StepResult{}, environment.ErrResetNeeded
	}
	if !e.actionSpace.Contains(action) {
		return core.StepResult{}, fmt.Errorf("%w: %d not in %s", environment.ErrInvalidAction, action, e.actionSpace)
	}
	if e.done {
		return core.StepResult{
			Observation: e.g.render(e.cfg.Mode),
			Terminated:  true,
			Info:        e.info(e.g.flagGet),
		}, nil
	}

	ev := e.g.tick(uint8(action))
	terminated := false
	switch ev {
	case eventDied:
		if e.singleStage() {
			terminated = true
			break
		}
		e.g.lives--
		if e.g.lives < 0 {
			terminated = true
			break
		}
		e.g.respawn()
	case eventFlag:
		if e.singleStage() {
			terminated = true
			break
		}
		next, ok := e.g.stage.next()
		if !ok {
			terminated = true
			break
		}
		e.g.loadStage(next)
	}

	reward := e.xReward() + e.clockReward()
	if ev == eventDied {
		reward += DeathPenalty
	}
	reward = min(max(reward, RewardMin), RewardMax)

	e.done = terminated
	return core.StepResult{
		Observation: e.g.render(e.cfg.Mode),
		Reward:      reward,
		Terminated:  terminated,
		Info:        e.info(ev == eventFlag),
	}, nil
}

func (e *Env) xReward() float64 {
	x := e.xPos()
	delta := x - e.lastX
	e.lastX = x
	if delta < -maxXDelta || delta > maxXDelta {
		return 0
	}
	return float64(delta)
}

// clockReward penalises elapsed game time; clock resets give nothing.
func (e *Env) clockReward() float64 {
	delta := e.g.clock - e.lastClock
	e.lastClock = e.g.clock
	if delta > 0 {
		return 0
	}
	return float64(delta)
}

func (e *Env) xPos() int {
	return int(e.g.mario.x)
}

func (e *Env) info(flagGet bool) core.Info {
	y := ScreenHeight - int(e.g.mario.y)
	if y < 0 {
		y = 0
	}
	return core.Info{
		"coins":    e.g.coins,
		"flag_get": flagGet || e.g.flagGet,
		"life":     max(e.g.lives, 0),
		"score":    e.g.score,
		"stage":    e.g.stage.Stage,
		"status":   "small",
		"time":     e.g.clock,
		"world":    e.g.stage.World,
		"x_pos":    e.xPos(),
		"y_pos":    y,
	}
}

// Close is idempotent.
func (e *Env) Close() error {
	e.closed = true
	return nil
}
