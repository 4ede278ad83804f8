package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <mount-point>",
		Short: "Start a deep scan for the video tracked at a mount point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			mountPoint := args[0]
			if err := client.Scan(cmd.Context(), mountPoint); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deep scan started for %s\n", mountPoint)
			fmt.Fprintln(cmd.OutOrStdout(), "Watch progress with `scrollsafe status` or the daemon log.")
			return nil
		},
	}
}
