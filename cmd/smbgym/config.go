package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boristopalov/smbgym/pkg/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if cfg.Source != "" {
				fmt.Fprintf(out, "# loaded from %s\n", cfg.Source)
			}
			return config.Dump(out, cfg)
		},
	}
}
