package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the recent verdict trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			entries, err := client.History(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, map[string]any{"entries": entries})
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No history yet")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				confidence := ""
				if entry.Confidence != nil {
					confidence = fmt.Sprintf("%.0f%%", *entry.Confidence*100)
				}
				rows = append(rows, []string{
					entry.ObservedAt.Local().Format("2006-01-02 15:04:05"),
					entry.Platform,
					entry.VideoID,
					entry.Title,
					string(entry.Label),
					confidence,
					entry.Source,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Observed", "Platform", "Video", "Title", "Label", "Confidence", "Source"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}
