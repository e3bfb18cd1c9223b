package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/boristopalov/smbgym/pkg/compat"
)

func newSmokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Check that environments, the joypad wrapper and vector pools work",
		RunE:  runSmoke,
	}

	flags := cmd.Flags()
	flags.String("env-id", "SuperMarioBros-v0", "environment id for the single and vector checks")
	flags.String("action-set", "simple", "joypad actions: right_only, simple or complex")
	flags.Int("steps", 10, "steps for the single environment check")
	flags.Int("num-envs", 2, "environments in the vector check")
	flags.StringSlice("ids", nil, "environment ids to make and close (default from config)")
	flags.Bool("strict", false, "exit non-zero if any check failed")

	for key, flag := range map[string]string{
		"smoke.env_id":     "env-id",
		"smoke.action_set": "action-set",
		"smoke.steps":      "steps",
		"smoke.num_envs":   "num-envs",
		"smoke.ids":        "ids",
		"smoke.strict":     "strict",
	} {
		viper.BindPFlag(key, flags.Lookup(flag))
	}
	return cmd
}

func runSmoke(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	runner, err := compat.NewRunner(compat.Config{
		EnvID:     cfg.Smoke.EnvID,
		ActionSet: cfg.Smoke.ActionSet,
		Steps:     cfg.Smoke.Steps,
		NumEnvs:   cfg.Smoke.NumEnvs,
		IDs:       cfg.Smoke.IDs,
	}, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	return withMetrics(func() error {
		report, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		log.Printf("smoke test: %d passed, %d failed", report.Passed, len(report.Failures))
		if cfg.Smoke.Strict && !report.OK() {
			return fmt.Errorf("smoke test: %d checks failed", len(report.Failures))
		}
		return nil
	})
}
