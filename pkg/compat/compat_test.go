package compat

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/smbgym/pkg/core"
	"github.com/boristopalov/smbgym/pkg/environment"
	"github.com/boristopalov/smbgym/pkg/spaces"
	"github.com/boristopalov/smbgym/pkg/vector"
)

const seededPanicID = "SeededResetPanics-v0"

// seededPanicEnv works until it is reset with a seed, which only the vector
// factories do.
type seededPanicEnv struct{}

func (seededPanicEnv) Reset(_ context.Context, opts core.ResetOptions) (core.Observation, core.Info, error) {
	if opts.Seed != nil {
		panic("seeded reset")
	}
	return core.NewObservation(8, 8, 3), core.Info{"x_pos": 0}, nil
}

func (seededPanicEnv) Step(context.Context, int) (core.StepResult, error) {
	return core.StepResult{Observation: core.NewObservation(8, 8, 3), Info: core.Info{"x_pos": 1}}, nil
}

func (seededPanicEnv) ActionSpace() *spaces.Discrete { return spaces.NewDiscrete(256) }
func (seededPanicEnv) ObservationSpace() *spaces.Box { return spaces.NewBox(0, 255, 8, 8, 3) }
func (seededPanicEnv) Close() error                  { return nil }

func init() {
	err := environment.Register(environment.Spec{ID: seededPanicID},
		func(environment.Spec) (environment.Env, error) { return seededPanicEnv{}, nil })
	if err != nil {
		panic(err)
	}
}

func newTestRunner(t *testing.T, cfg Config) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	m, err := vector.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	var out, errOut bytes.Buffer
	r, err := NewRunner(cfg, &out, &errOut, WithPoolOptions(vector.WithMetrics(m)))
	require.NoError(t, err)
	return r, &out, &errOut
}

func assertInOrder(t *testing.T, text string, lines ...string) {
	t.Helper()
	last := -1
	for _, line := range lines {
		idx := strings.Index(text, line)
		if !assert.GreaterOrEqual(t, idx, 0, "missing %q in:\n%s", line, text) {
			return
		}
		assert.Greater(t, idx, last, "%q out of order", line)
		last = idx
	}
}

func TestRunnerPasses(t *testing.T) {
	r, out, errOut := newTestRunner(t, DefaultConfig())
	report, err := r.Run(context.Background())
	require.NoError(t, err)

	assertInOrder(t, out.String(),
		"Go version: go",
		"✓ smb environments registered: 138 ids",
		"✓ Imports successful",
		"\n=== Testing Environment Creation ===\n",
		"✓ Environment created\n",
		"✓ JoypadSpace wrapper applied\n",
		"\n=== Testing Environment API ===\n",
		"✓ Reset successful - Observation shape: (240, 256, 3)\n",
		"✓ Step successful after 10 steps\n",
		"  Final reward: ",
		"  Terminated: false, Truncated: false\n",
		"  Info keys: [coins flag_get life score stage status time world x_pos y_pos]\n",
		"✓ Environment closed\n",
		"\n=== Testing Vector Env Support ===\n",
		"✓ Created 2 parallel environments with Async\n",
		"✓ Vectorized reset successful - Observations shape: (2, 240, 256, 3)\n",
		"✓ Vectorized step successful\n",
		"  Rewards: [",
		"✓ Vectorized environments closed\n",
		"\n=== Testing Different Environment IDs ===\n",
		"✓ SuperMarioBros-v0\n",
		"✓ SuperMarioBros-1-1-v0\n",
		"✓ SuperMarioBros2-v0\n",
		"\n"+strings.Repeat("=", 50)+"\nALL TESTS PASSED!\n"+strings.Repeat("=", 50)+"\n",
	)
	assert.True(t, report.OK(), "%v", report.Failures)
	assert.Equal(t, 9, report.Passed)
	assert.Empty(t, errOut.String())
}

func TestRunnerReportsUnknownIDs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IDs = []string{"SuperMarioBros-v0", "SuperMarioBros-9-1-v0"}
	r, out, _ := newTestRunner(t, cfg)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "✓ SuperMarioBros-v0\n")
	assert.Contains(t, out.String(), "✗ SuperMarioBros-9-1-v0: environment `SuperMarioBros-9-1-v0` doesn't exist")
	assert.Contains(t, out.String(), "ALL TESTS PASSED!")
	assert.False(t, report.OK())
	assert.Len(t, report.Failures, 1)
}

func TestRunnerSurvivesVectorPanics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnvID = seededPanicID
	cfg.IDs = []string{seededPanicID}
	r, out, errOut := newTestRunner(t, cfg)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assertInOrder(t, out.String(),
		"✓ Reset successful - Observation shape: (8, 8, 3)\n",
		"\n=== Testing Vector Env Support ===\n",
		"✗ Async vector env test failed: ",
		"\n=== Testing Different Environment IDs ===\n",
		"✓ "+seededPanicID+"\n",
		"ALL TESTS PASSED!",
	)
	assert.Contains(t, out.String(), "seeded reset")
	assert.NotContains(t, out.String(), "goroutine ")
	assert.Contains(t, errOut.String(), "goroutine ")
	require.Len(t, report.Failures, 1)
	assert.True(t, strings.HasPrefix(report.Failures[0], "vector env: "))
}

func TestRunnerAbortsWhenCreationFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnvID = "SuperMarioBros-0-0-v0"
	r, out, _ := newTestRunner(t, cfg)

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, environment.ErrUnknownID)
	assert.NotContains(t, out.String(), "ALL TESTS PASSED!")
	assert.NotContains(t, out.String(), "Testing Environment API")
}

func TestNewRunnerValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ActionSet = "turbo"
	_, err := NewRunner(cfg, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.NumEnvs = 0
	_, err = NewRunner(cfg, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Error(t, err)
}
