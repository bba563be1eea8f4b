package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zhubert/tabby-agent/cli"
	"github.com/zhubert/tabby-agent/logger"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that node and the agent script can be found",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		prereqs := cli.DefaultPrerequisites(cfg.NodePath)
		fmt.Fprint(out, cli.FormatCheckResults(cli.CheckAll(prereqs)))

		script, scriptErr := cli.FindAgentScript(cfg.ScriptPath)
		if scriptErr != nil {
			fmt.Fprintf(out, "  ✗ tabby-agent.js: %v\n", scriptErr)
		} else {
			fmt.Fprintf(out, "  ✓ tabby-agent.js %s\n", script)
		}
		fmt.Fprintf(out, "Config: %s\nLog: %s\n", cfg.FilePath(), logger.Path())

		if err := cli.ValidateRequired(prereqs); err != nil {
			return err
		}
		return scriptErr
	},
}
