package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scrollsafe/internal/media"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and tracked videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("ScrollSafe Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			runningKind := statusWarn
			if status.Running {
				runningKind = statusOK
			}
			fmt.Fprintln(out, renderStatusLine("Running", runningKind, yesNo(status.Running), colorize))
			if status.APIAddress != "" {
				fmt.Fprintln(out, renderStatusLine("API", statusInfo, status.APIAddress, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("History DB", statusInfo, status.HistoryDBPath, colorize))
			fmt.Fprintln(out)

			if len(status.Mounts) == 0 {
				fmt.Fprintln(out, "No tracked videos")
				return nil
			}
			rows := make([][]string, 0, len(status.Mounts))
			for _, mount := range status.Mounts {
				rows = append(rows, []string{
					mount.MountPoint,
					mount.Platform,
					mount.VideoID,
					formatVerdict(mount.Verdict),
					formatConfidence(mount.Verdict),
					yesNo(mount.DeepScan),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Mount", "Platform", "Video", "Verdict", "Confidence", "Deep Scan"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func formatVerdict(verdict *media.Verdict) string {
	if verdict == nil {
		return "checking"
	}
	return string(verdict.Label)
}

func formatConfidence(verdict *media.Verdict) string {
	if verdict == nil {
		return ""
	}
	value, ok := verdict.ConfidenceValue()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%.0f%%", value*100)
}
