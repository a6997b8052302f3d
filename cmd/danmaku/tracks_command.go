package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"danmaku/internal/mpv"
	"danmaku/internal/tracks"
)

type trackOutput struct {
	Index     int    `json:"index"`
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Lang      string `json:"lang,omitempty"`
	Title     string `json:"title,omitempty"`
	Generated bool   `json:"generated"`
	Stale     bool   `json:"stale"`
}

func newTracksCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "List mpv's current tracks and mark the danmaku track the next run would remove",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			timeout := time.Duration(cfg.MPV.ConnectTimeoutSeconds) * time.Second
			if timeout <= 0 {
				timeout = 5 * time.Second
			}
			callCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client, err := mpv.Dial(callCtx, cfg.MPV.Socket)
			if err != nil {
				return wrapDialError(err, cfg.MPV.Socket)
			}
			defer client.Close()

			list, err := tracks.Snapshot(callCtx, client)
			if err != nil {
				return fmt.Errorf("read track list: %w", err)
			}
			stale, hasStale := tracks.FindStale(list)

			results := make([]trackOutput, 0, len(list))
			for _, t := range list {
				results = append(results, trackOutput{
					Index:     t.Index,
					ID:        t.ID,
					Type:      t.Kind,
					Lang:      t.Lang,
					Title:     t.Title,
					Generated: t.IsGenerated(),
					Stale:     hasStale && t.Index == stale.Index,
				})
			}
			if asJSON {
				return writeJSON(cmd, results)
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No tracks loaded")
				return nil
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{
					strconv.Itoa(r.Index),
					strconv.FormatInt(r.ID, 10),
					r.Type,
					r.Lang,
					r.Title,
					yesNo(r.Generated),
					yesNo(r.Stale),
				})
			}
			view := tableView{
				headers:   []string{"#", "ID", "Type", "Lang", "Title", "Danmaku", "Stale"},
				rows:      rows,
				aligns:    []columnAlignment{alignRight, alignRight},
				highlight: func(i int) bool { return results[i].Stale },
				colorize:  shouldColorize(out),
			}
			fmt.Fprintln(out, view.render())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
