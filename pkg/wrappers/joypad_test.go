package wrappers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/smbgym/pkg/core"
	"github.com/boristopalov/smbgym/pkg/environment"
	"github.com/boristopalov/smbgym/pkg/smb"
	"github.com/boristopalov/smbgym/pkg/spaces"
)

// recordingEnv remembers the last raw action it was stepped with.
type recordingEnv struct {
	last int
}

func (r *recordingEnv) Reset(context.Context, core.ResetOptions) (core.Observation, core.Info, error) {
	return core.NewObservation(1, 1, 3), core.Info{}, nil
}

func (r *recordingEnv) Step(_ context.Context, action int) (core.StepResult, error) {
	r.last = action
	return core.StepResult{Observation: core.NewObservation(1, 1, 3), Info: core.Info{}}, nil
}

func (r *recordingEnv) ActionSpace() *spaces.Discrete { return spaces.NewDiscrete(256) }
func (r *recordingEnv) ObservationSpace() *spaces.Box { return spaces.NewBox(0, 255, 1, 1, 3) }
func (r *recordingEnv) Close() error                  { return nil }

func TestJoypadSpaceMapsActions(t *testing.T) {
	ctx := context.Background()
	inner := &recordingEnv{}
	env, err := NewJoypadSpace(inner, smb.SimpleMovement)
	require.NoError(t, err)

	assert.Equal(t, "Discrete(7)", env.ActionSpace().String())
	assert.Equal(t, []string{"NOOP", "right", "right A", "right B", "right A B", "A", "left"}, env.ActionMeanings())

	want := map[int]uint8{
		0: 0,
		1: smb.ButtonRight,
		2: smb.ButtonRight | smb.ButtonA,
		4: smb.ButtonRight | smb.ButtonA | smb.ButtonB,
		6: smb.ButtonLeft,
	}
	for action, raw := range want {
		_, err := env.Step(ctx, action)
		require.NoError(t, err)
		assert.Equal(t, int(raw), inner.last, "action %d", action)
	}

	_, err = env.Step(ctx, 7)
	assert.True(t, errors.Is(err, environment.ErrInvalidAction))
}

func TestJoypadSpaceKeysToAction(t *testing.T) {
	env, err := NewJoypadSpace(&recordingEnv{}, smb.ComplexMovement)
	require.NoError(t, err)
	keys := env.KeysToAction()
	assert.Equal(t, 4, keys["A+B+right"])
	assert.Equal(t, 11, keys["up"])

	b, err := env.ControllerByte(7)
	require.NoError(t, err)
	assert.Equal(t, smb.ButtonLeft|smb.ButtonA, b)
}

func TestJoypadSpaceRejectsUnknownButtons(t *testing.T) {
	_, err := NewJoypadSpace(&recordingEnv{}, [][]string{{"right", "turbo"}})
	assert.Error(t, err)
	_, err = NewJoypadSpace(&recordingEnv{}, nil)
	assert.Error(t, err)
}

func TestJoypadSpaceOverGameEnv(t *testing.T) {
	ctx := context.Background()
	base, err := environment.Make("SuperMarioBros-v0")
	require.NoError(t, err)
	env, err := NewJoypadSpace(base, smb.SimpleMovement)
	require.NoError(t, err)
	defer env.Close()

	obs, _, err := env.Reset(ctx, core.WithSeed(0))
	require.NoError(t, err)
	assert.Equal(t, []int{240, 256, 3}, obs.Shape())
	assert.Equal(t, "Box(0, 255, (240, 256, 3), uint8)", env.ObservationSpace().String())

	var res core.StepResult
	for i := 0; i < 10; i++ {
		res, err = env.Step(ctx, env.ActionSpace().Sample())
		require.NoError(t, err)
	}
	assert.Contains(t, res.Info, "x_pos")
	assert.Same(t, environment.Unwrap(base), environment.Unwrap(env))
}
