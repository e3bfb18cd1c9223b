package main

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/boristopalov/smbgym/pkg/environment"
	"github.com/boristopalov/smbgym/pkg/smb"
)

func newEnvsCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "envs",
		Short: "List registered environment ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listEnvs(cmd, filter)
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "only list ids containing this text")
	return cmd
}

func listEnvs(cmd *cobra.Command, filter string) error {
	out := cmd.OutOrStdout()
	table := tablewriter.NewWriter(out)
	table.Header("ID", "Entry Point", "Max Steps", "Render Mode", "Stage")

	count := 0
	for _, id := range environment.IDs() {
		if filter != "" && !strings.Contains(id, filter) {
			continue
		}
		spec, err := environment.Lookup(id)
		if err != nil {
			return err
		}
		mode, stage := "-", "-"
		if m, ok := spec.Kwargs[smb.KwargRenderMode].(smb.RenderMode); ok {
			mode = m.String()
		}
		if s, ok := spec.Kwargs[smb.KwargTarget].(smb.Stage); ok {
			stage = s.String()
		} else if random, _ := spec.Kwargs[smb.KwargRandomStages].(bool); random {
			stage = "random"
		}
		if err := table.Append(id, spec.EntryPoint, fmt.Sprint(spec.MaxEpisodeSteps), mode, stage); err != nil {
			return err
		}
		count++
	}
	if count == 0 {
		fmt.Fprintln(out, "No environments match")
		return nil
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTotal environments: %d\n", count)
	return nil
}
