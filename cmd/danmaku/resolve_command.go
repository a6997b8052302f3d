package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"danmaku/internal/videoref"
)

type resolveOutput struct {
	Input       string `json:"input"`
	Action      string `json:"action"`
	Shape       string `json:"shape"`
	Reason      string `json:"reason,omitempty"`
	Kind        string `json:"kind,omitempty"`
	VideoID     string `json:"video_id,omitempty"`
	Canonical   string `json:"canonical,omitempty"`
	Token       string `json:"token,omitempty"`
	ResolvedURL string `json:"resolved_url,omitempty"`
}

func newResolveCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "resolve URL...",
		Short:       "Show how URLs would be classified and which URL the converter receives",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]resolveOutput, 0, len(args))
			for _, raw := range args {
				results = append(results, describeDecision(raw, videoref.Classify(raw)))
			}
			if asJSON {
				return writeJSON(cmd, results)
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				detail := r.ResolvedURL
				if r.Action != videoref.ActionResolve.String() {
					detail = r.Reason
				}
				rows = append(rows, []string{r.Input, humanize(r.Action), humanize(r.Shape), humanize(r.Kind), r.Token, detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Input", "Action", "Shape", "Kind", "Token", "Resolved / Reason"},
				rows, nil,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func describeDecision(raw string, d videoref.Decision) resolveOutput {
	out := resolveOutput{
		Input:  strings.TrimSpace(raw),
		Action: d.Action.String(),
		Shape:  d.Shape.String(),
		Reason: d.Reason,
	}
	if d.Resolved() {
		out.Kind = d.Ref.Kind.String()
		out.VideoID = d.Ref.VideoID
		out.Canonical = d.Ref.Canonical
		out.Token = d.Ref.Token
		out.ResolvedURL = d.Ref.ResolvedURL
	}
	return out
}
