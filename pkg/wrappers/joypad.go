// Package wrappers adapts environment interfaces.
package wrappers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/boristopalov/smbgym/pkg/core"
	"github.com/boristopalov/smbgym/pkg/environment"
	"github.com/boristopalov/smbgym/pkg/smb"
	"github.com/boristopalov/smbgym/pkg/spaces"
)

// JoypadSpace restricts a controller-byte environment to a small list of
// button combinations. Action i presses every button in actions[i].
type JoypadSpace struct {
	environment.Wrapper

	actions     []uint8
	meanings    []string
	actionSpace *spaces.Discrete
}

var _ environment.Env = (*JoypadSpace)(nil)

func NewJoypadSpace(env environment.Env, actions [][]string) (*JoypadSpace, error) {
	if len(actions) == 0 {
		return nil, fmt.Errorf("joypad space needs at least one action")
	}
	j := &JoypadSpace{
		Wrapper:     environment.Wrapper{Env: env},
		actions:     make([]uint8, len(actions)),
		meanings:    make([]string, len(actions)),
		actionSpace: spaces.NewDiscrete(len(actions)),
	}
	for i, buttons := range actions {
		var mask uint8
		for _, name := range buttons {
			bit, ok := smb.ButtonMap[name]
			if !ok {
				return nil, fmt.Errorf("action %d: unknown button %q", i, name)
			}
			mask |= bit
		}
		if !env.ActionSpace().Contains(int(mask)) {
			return nil, fmt.Errorf("action %d: %s outside wrapped %s", i, strings.Join(buttons, "+"), env.ActionSpace())
		}
		j.actions[i] = mask
		j.meanings[i] = strings.Join(buttons, " ")
	}
	return j, nil
}

func (j *JoypadSpace) ActionSpace() *spaces.Discrete {
	return j.actionSpace
}

func (j *JoypadSpace) Step(ctx context.Context, action int) (core.StepResult, error) {
	if !j.actionSpace.Contains(action) {
		return core.StepResult{}, fmt.Errorf("%w: %d not in %s", environment.ErrInvalidAction, action, j.actionSpace)
	}
	return j.Env.Step(ctx, int(j.actions[action]))
}

// ActionMeanings describes each discrete action, e.g. "right A".
func (j *JoypadSpace) ActionMeanings() []string {
	return append([]string(nil), j.meanings...)
}

// KeysToAction maps sorted button-name tuples (joined with "+") to actions.
func (j *JoypadSpace) KeysToAction() map[string]int {
	out := make(map[string]int, len(j.actions))
	for i, m := range j.meanings {
		keys := strings.Fields(m)
		sort.Strings(keys)
		out[strings.Join(keys, "+")] = i
	}
	return out
}

// ControllerByte returns the raw buttons pressed for action.
func (j *JoypadSpace) ControllerByte(action int) (uint8, error) {
	if !j.actionSpace.Contains(action) {
		return 0, fmt.Errorf("%w: %d not in %s", environment.ErrInvalidAction, action, j.actionSpace)
	}
	return j.actions[action], nil
}
