package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"danmaku/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the converter, directories, and mpv socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{result.Name, renderStatus(checkStatus(result), colorize), result.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d required check(s) failed", len(failed))
			}
			return nil
		},
	}
}

func checkStatus(result preflight.Result) statusKind {
	switch {
	case result.Passed:
		return statusOK
	case result.Optional:
		return statusWarn
	default:
		return statusError
	}
}
