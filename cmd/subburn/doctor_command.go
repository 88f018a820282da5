package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subburn/internal/deps"
	"subburn/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, model weights, and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			depTable := newTextTable("Name", "Command", "Status", "Detail")
			for _, s := range statuses {
				state := "ok"
				if !s.Available {
					state = "missing"
					if s.Optional {
						state = "missing (optional)"
					}
				}
				detail := s.Description
				if s.Detail != "" {
					detail = s.Detail
				}
				depTable.row(s.Name, s.Command, state, detail)
			}
			fmt.Fprintln(out, "Dependencies")
			fmt.Fprintln(out, depTable.render(out))

			checks := preflight.RunAll(cfg)
			dirTable := newTextTable("Check", "OK", "Detail")
			for _, c := range checks {
				dirTable.row(c.Name, yesNo(c.Passed), c.Detail)
			}
			fmt.Fprintln(out, "Directories")
			fmt.Fprintln(out, dirTable.render(out))

			var problems []string
			problems = append(problems, deps.MissingRequired(statuses)...)
			for _, c := range preflight.Failed(checks) {
				problems = append(problems, c.Name)
			}
			if len(problems) > 0 {
				return fmt.Errorf("doctor found problems: %s", strings.Join(problems, ", "))
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}
