package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/boristopalov/smbgym/internal/hostinfo"
	"github.com/boristopalov/smbgym/pkg/experiment"
)

func newVectorizedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vectorized",
		Short: "Step parallel environments with random actions and print rewards",
		RunE:  runVectorized,
	}

	flags := cmd.Flags()
	flags.String("env-id", "SuperMarioBros-v0", "environment id")
	flags.Int("num-envs", 4, numEnvsUsage())
	flags.Int("steps", 100, "steps to run")
	flags.Int("log-every", 20, "print rewards every n steps")
	flags.Int64("seed", 0, "base seed, env i is seeded with seed+i")
	flags.String("action-set", "simple", "joypad actions: right_only, simple or complex")
	flags.Bool("sync", false, "step environments on one goroutine")
	flags.String("stats", "", "write per-step statistics to this CSV file")

	for key, flag := range map[string]string{
		"rollout.env_id":     "env-id",
		"rollout.num_envs":   "num-envs",
		"rollout.steps":      "steps",
		"rollout.log_every":  "log-every",
		"rollout.seed":       "seed",
		"rollout.action_set": "action-set",
		"rollout.sync":       "sync",
		"rollout.stats_path": "stats",
	} {
		viper.BindPFlag(key, flags.Lookup(flag))
	}
	return cmd
}

// numEnvsUsage points at the host's CPU count. Facts gopsutil cannot read
// fall back to runtime values, so the error is ignored.
func numEnvsUsage() string {
	info, _ := hostinfo.Collect(context.Background())
	return fmt.Sprintf("number of parallel environments (this host suggests %d)", info.SuggestedEnvs())
}

func runVectorized(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	r, err := experiment.NewVectorRollout(experiment.RolloutConfig{
		EnvID:     cfg.Rollout.EnvID,
		NumEnvs:   cfg.Rollout.NumEnvs,
		Steps:     cfg.Rollout.Steps,
		LogEvery:  cfg.Rollout.LogEvery,
		Seed:      cfg.Rollout.Seed,
		ActionSet: cfg.Rollout.ActionSet,
		Sync:      cfg.Rollout.Sync,
		StatsPath: cfg.Rollout.StatsPath,
	})
	if err != nil {
		return err
	}
	return withMetrics(func() error {
		return r.Run(ctx, cmd.OutOrStdout())
	})
}
