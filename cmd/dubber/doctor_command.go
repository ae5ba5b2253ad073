package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"dubber/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries, backends, and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)

			blocking := 0
			for _, r := range results {
				if r.Blocking() {
					blocking++
				}
			}

			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					kind := statusOK
					switch {
					case r.Blocking():
						kind = statusFail
					case !r.Passed:
						kind = statusWarn
					}
					rows = append(rows, []string{statusLabel(kind, colorize), r.Name, r.Detail})
				}
				fmt.Fprintln(out, renderTable(checkColumns, rows))
			}

			if blocking > 0 {
				return errors.New(pluralChecks(blocking) + " failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

func pluralChecks(n int) string {
	if n == 1 {
		return "1 required check"
	}
	return fmt.Sprintf("%d required checks", n)
}
