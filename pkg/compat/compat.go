// Package compat is a smoke test of the environment API: a single wrapped
// environment, a small vector pool and a list of registered ids.
package compat

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/boristopalov/smbgym/internal/hostinfo"
	"github.com/boristopalov/smbgym/pkg/core"
	"github.com/boristopalov/smbgym/pkg/environment"
	"github.com/boristopalov/smbgym/pkg/experiment"
	"github.com/boristopalov/smbgym/pkg/smb"
	"github.com/boristopalov/smbgym/pkg/vector"
	"github.com/boristopalov/smbgym/pkg/wrappers"
)

const (
	pass = "✓"
	fail = "✗"
)

type Config struct {
	EnvID     string
	ActionSet string
	Steps     int
	NumEnvs   int
	IDs       []string
}

func DefaultConfig() Config {
	return Config{
		EnvID:     "SuperMarioBros-v0",
		ActionSet: "simple",
		Steps:     10,
		NumEnvs:   2,
		IDs:       []string{"SuperMarioBros-v0", "SuperMarioBros-1-1-v0", "SuperMarioBros2-v0"},
	}
}

// Report counts the checks a run made.
type Report struct {
	Passed   int
	Failures []string
}

func (r Report) OK() bool {
	return len(r.Failures) == 0
}

func (r *Report) pass() {
	r.Passed++
}

func (r *Report) fail(format string, args ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

// Runner prints check results to out and stack traces to errOut.
type Runner struct {
	cfg      Config
	actions  [][]string
	out      io.Writer
	errOut   io.Writer
	poolOpts []vector.Option
	report   Report
}

type RunnerOption func(*Runner)

// WithPoolOptions forwards options to the vector pool under test.
func WithPoolOptions(opts ...vector.Option) RunnerOption {
	return func(r *Runner) {
		r.poolOpts = append(r.poolOpts, opts...)
	}
}

func NewRunner(cfg Config, out, errOut io.Writer, opts ...RunnerOption) (*Runner, error) {
	actions, err := smb.ActionSet(cfg.ActionSet)
	if err != nil {
		return nil, err
	}
	if cfg.NumEnvs < 1 {
		return nil, fmt.Errorf("num envs must be positive, got %d", cfg.NumEnvs)
	}
	r := &Runner{cfg: cfg, actions: actions, out: out, errOut: errOut}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes every section. Failures in the environment creation and API
// sections end the run with an error; the vector and id sections record
// failures in the report and carry on.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	r.report = Report{}
	r.header(ctx)

	if err := r.singleEnv(ctx); err != nil {
		r.report.fail("single environment: %v", err)
		return r.report, err
	}
	r.vectorEnv(ctx)
	r.envIDs()

	bar := strings.Repeat("=", 50)
	fmt.Fprintf(r.out, "\n%s\nALL TESTS PASSED!\n%s\n", bar, bar)
	return r.report, nil
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *Runner) header(ctx context.Context) {
	host, err := hostinfo.Collect(ctx)
	r.printf("Go version: %s", host)
	if err != nil {
		r.printf("  (host facts incomplete: %v)", err)
	}
	r.printf("%s smbgym version: %s", pass, moduleVersion())
	r.printf("%s smb environments registered: %d ids", pass, countSMB(environment.IDs()))
	r.printf("%s Imports successful", pass)
}

func (r *Runner) singleEnv(ctx context.Context) error {
	r.printf("\n=== Testing Environment Creation ===")
	base, err := environment.Make(r.cfg.EnvID)
	if err != nil {
		return err
	}
	r.printf("%s Environment created", pass)
	r.report.pass()

	env, err := wrappers.NewJoypadSpace(base, r.actions)
	if err != nil {
		base.Close()
		return err
	}
	r.printf("%s JoypadSpace wrapper applied", pass)
	r.report.pass()
	defer env.Close()

	r.printf("\n=== Testing Environment API ===")
	obs, _, err := env.Reset(ctx, core.ResetOptions{})
	if err != nil {
		return err
	}
	if len(obs.Shape()) != 3 {
		return fmt.Errorf("reset observation has shape %s, want a 3-d frame", core.FormatShape(obs.Shape()))
	}
	r.printf("%s Reset successful - Observation shape: %s", pass, core.FormatShape(obs.Shape()))
	r.report.pass()

	var res core.StepResult
	for i := 0; i < r.cfg.Steps; i++ {
		res, err = env.Step(ctx, env.ActionSpace().Sample())
		if err != nil {
			return err
		}
	}
	r.printf("%s Step successful after %d steps", pass, r.cfg.Steps)
	r.printf("  Final reward: %g", res.Reward)
	r.printf("  Terminated: %t, Truncated: %t", res.Terminated, res.Truncated)
	r.printf("  Info keys: %v", res.Info.Keys())
	r.report.pass()

	if err := env.Close(); err != nil {
		return err
	}
	r.printf("%s Environment closed", pass)
	r.report.pass()
	return nil
}

func (r *Runner) vectorEnv(ctx context.Context) {
	r.printf("\n=== Testing Vector Env Support ===")
	if err := protect(func() error { return r.vectorChecks(ctx) }); err != nil {
		r.printf("%s Async vector env test failed: %v", fail, firstLine(err))
		r.trace(err)
		r.report.fail("vector env: %v", firstLine(err))
		return
	}
	r.report.pass()
}

func (r *Runner) vectorChecks(ctx context.Context) error {
	n := r.cfg.NumEnvs
	factories := make([]vector.EnvFactory, n)
	for rank := range factories {
		factories[rank] = experiment.NewEnvFactory(r.cfg.EnvID, r.actions, int64(rank))
	}
	pool, err := vector.NewAsync(ctx, factories, r.poolOpts...)
	if err != nil {
		return err
	}
	defer pool.Close(context.Background())
	r.printf("%s Created %d parallel environments with Async", pass, n)

	obs, _, err := pool.Reset(ctx, core.ResetOptions{})
	if err != nil {
		return err
	}
	if shape := obs.Shape(); len(shape) == 0 || shape[0] != n {
		return fmt.Errorf("vectorized reset gave shape %s, want leading dimension %d", core.FormatShape(shape), n)
	}
	r.printf("%s Vectorized reset successful - Observations shape: %s", pass, core.FormatShape(obs.Shape()))

	b, err := pool.Step(ctx, pool.ActionSpace().Sample())
	if err != nil {
		return err
	}
	if len(b.Rewards) != n || len(b.Terminateds) != n || len(b.Truncateds) != n {
		return fmt.Errorf("vectorized step gave %d rewards, %d terminateds and %d truncateds for %d envs",
			len(b.Rewards), len(b.Terminateds), len(b.Truncateds), n)
	}
	r.printf("%s Vectorized step successful", pass)
	r.printf("  Rewards: %v", b.Rewards)

	if err := pool.Close(ctx); err != nil {
		return err
	}
	r.printf("%s Vectorized environments closed", pass)
	return nil
}

// protect runs fn, converting a panic into an error that carries the stack.
func protect(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
	}()
	return fn()
}

// trace writes err to errOut with a stack, using the one err carries if any.
func (r *Runner) trace(err error) {
	msg := err.Error()
	if !strings.Contains(msg, "\n") {
		msg += "\n" + string(debug.Stack())
	}
	fmt.Fprintln(r.errOut, msg)
}

func (r *Runner) envIDs() {
	r.printf("\n=== Testing Different Environment IDs ===")
	for _, id := range r.cfg.IDs {
		err := protect(func() error {
			env, err := environment.Make(id)
			if err != nil {
				return err
			}
			return env.Close()
		})
		if err != nil {
			r.printf("%s %s: %v", fail, id, firstLine(err))
			r.report.fail("%s: %v", id, firstLine(err))
			continue
		}
		r.printf("%s %s", pass, id)
		r.report.pass()
	}
}

func moduleVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi.Main.Version == "" {
		return "(devel)"
	}
	return bi.Main.Version
}

func countSMB(ids []string) int {
	n := 0
	for _, id := range ids {
		if strings.HasPrefix(id, "SuperMarioBros") {
			n++
		}
	}
	return n
}

// firstLine drops the stack a recovered panic error carries.
func firstLine(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}
