package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var authWait time.Duration

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate the agent with the Tabby server",
	Long:  "Prints the URL to open in a browser and waits until the flow completes.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := startSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		resp, err := s.client.RequestAuthURL(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if resp == nil {
			fmt.Fprintln(out, "The server does not require authentication.")
			return nil
		}

		fmt.Fprintf(out, "Open this URL to sign in:\n\n  %s\n\nWaiting for authorization...\n", resp.AuthURL)

		waitCtx, cancel := context.WithTimeout(ctx, authWait)
		defer cancel()
		if err := s.client.WaitForAuthToken(waitCtx, resp.Code); err != nil {
			return fmt.Errorf("authentication did not complete: %w", err)
		}
		fmt.Fprintln(out, "Authenticated.")
		return nil
	},
}

func init() {
	authCmd.Flags().DurationVar(&authWait, "wait", 10*time.Minute, "how long to wait for the browser flow")
}
