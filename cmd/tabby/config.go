package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the client configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %s\n", cfg.FilePath())
		_, err = out.Write(data)
		return err
	},
}

var configSetEndpointCmd = &cobra.Command{
	Use:   "set-endpoint <url>",
	Short: "Set the Tabby server endpoint sent to the agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := url.Parse(args[0])
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid endpoint %q", args[0])
		}
		cfg.SetServerEndpoint(args[0])
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Server endpoint set to %s\n", args[0])
		return nil
	},
}

var configPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Send the agent section to a running agent with updateConfig",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := startSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		ok, err := s.client.UpdateConfig(ctx, cfg.AgentConfig())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("agent rejected the config")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Agent config updated, status: %s\n", s.client.Status())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetEndpointCmd)
	configCmd.AddCommand(configPushCmd)
}
