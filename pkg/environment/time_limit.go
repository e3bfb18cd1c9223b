package environment

import (
	"context"

	"github.com/boristopalov/smbgym/pkg/core"
)

// TruncatedInfoKey marks steps cut short by a TimeLimit.
const TruncatedInfoKey = "TimeLimit.truncated"

type timeLimit struct {
	Wrapper
	maxSteps int
	elapsed  int
}

// TimeLimit truncates episodes after maxSteps steps.
func TimeLimit(env Env, maxSteps int) Env {
	return &timeLimit{Wrapper: Wrapper{env}, maxSteps: maxSteps}
}

func (t *timeLimit) Reset(ctx context.Context, opts core.ResetOptions) (core.Observation, core.Info, error) {
	t.elapsed = 0
	return t.Env.Reset(ctx, opts)
}

func (t *timeLimit) Step(ctx context.Context, action int) (core.StepResult, error) {
	res, err := t.Env.Step(ctx, action)
	if err != nil {
		return res, err
	}
	t.elapsed++
	if t.elapsed >= t.maxSteps && !res.Terminated {
		res.Truncated = true
		if res.Info == nil {
			res.Info = core.Info{}
		}
		res.Info[TruncatedInfoKey] = true
	}
	return res, nil
}
