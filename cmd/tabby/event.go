package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/zhubert/tabby-agent/agent"
)

var eventCmd = &cobra.Command{
	Use:   "event <view|select> <completion-id> <choice-index>",
	Short: "Report a completion view or select event",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		eventType := agent.EventType(args[0])
		if eventType != agent.EventView && eventType != agent.EventSelect {
			return fmt.Errorf("unknown event type %q, want view or select", args[0])
		}
		index, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid choice index %q: %w", args[2], err)
		}

		ctx := cmd.Context()
		s, err := startSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		ok, err := s.client.PostEvent(ctx, agent.LogEventRequest{
			Type:         eventType,
			CompletionID: args[1],
			ChoiceIndex:  index,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("agent rejected the event")
		}
		return nil
	},
}
