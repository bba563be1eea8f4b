package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the agent status",
	Long:  "Starts the agent, prints its status and with --watch keeps printing changes and auth requests until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := startSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		if !statusWatch {
			fmt.Fprintln(out, s.client.Status())
			return nil
		}

		updates, stopWatch := s.client.WatchStatus()
		defer stopWatch()

		for {
			select {
			case status, ok := <-updates:
				if !ok {
					return nil
				}
				fmt.Fprintf(out, "status: %s\n", status)
			case <-s.client.AuthRequired():
				fmt.Fprintln(out, "authentication required, run `tabby auth`")
			case <-s.client.Done():
				return fmt.Errorf("agent exited")
			case <-ctx.Done():
				return nil
			}
		}
	},
}

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "keep printing status changes")
}
