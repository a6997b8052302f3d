package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"danmaku/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Attach to mpv and add danmaku subtitles to every bilibili video it loads",
		Long: "Attach to the mpv JSON IPC socket and serve until mpv shuts down or the\n" +
			"process receives SIGINT/SIGTERM. Start mpv with --input-ipc-server=<socket>.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:      logLevel,
				SkipPreflight: skipPreflight,
			})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Attach without checking binaries and directories first")
	return cmd
}
