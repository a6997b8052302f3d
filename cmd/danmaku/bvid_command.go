package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"danmaku/internal/bvid"
)

func newBVIDCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "bvid",
		Short:       "Convert between av numbers and BV identifiers",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	cmd.AddCommand(newBVIDEncodeCommand(), newBVIDDecodeCommand())
	return cmd
}

func newBVIDEncodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encode AID...",
		Short: "Print the BV identifier for av numbers (\"av170001\" or \"170001\")",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				aid, err := parseAID(arg)
				if err != nil {
					return err
				}
				id, err := bvid.Encode(aid)
				if err != nil {
					return fmt.Errorf("encode %s: %w", arg, err)
				}
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
}

func newBVIDDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode BVID...",
		Short: "Print the av number for BV identifiers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				aid, err := bvid.Decode(strings.TrimSpace(arg))
				if err != nil {
					return fmt.Errorf("decode %s: %w", arg, err)
				}
				fmt.Fprintf(out, "av%d\n", aid)
			}
			return nil
		},
	}
}

func parseAID(raw string) (uint64, error) {
	value := strings.TrimSpace(raw)
	if len(value) > 2 && strings.EqualFold(value[:2], "av") {
		value = value[2:]
	}
	aid, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid av number %q", raw)
	}
	return aid, nil
}
