package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zhubert/tabby-agent/agent"
)

var (
	completePosition int
	completeLanguage string
	completeJSON     bool
)

var completeCmd = &cobra.Command{
	Use:   "complete <file>",
	Short: "Request completions for a file at a cursor position",
	Long:  "Reads the file and asks the agent for completions at --position (a byte offset, default end of file).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		text, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		position := completePosition
		if position < 0 {
			position = len(text)
		}
		if position > len(text) {
			return fmt.Errorf("position %d is past the end of %s (%d bytes)", position, path, len(text))
		}

		language := completeLanguage
		if language == "" {
			language = languageForPath(path)
		}

		ctx := cmd.Context()
		s, err := startSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		resp, err := s.client.GetCompletions(ctx, agent.CompletionRequest{
			Filepath: abs,
			Language: language,
			Text:     string(text),
			Position: position,
		})
		if err != nil {
			return err
		}
		if resp == nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "no completions")
			return nil
		}

		if len(resp.Choices) > 0 {
			if _, err := s.client.PostEvent(ctx, agent.LogEventRequest{
				Type:         agent.EventView,
				CompletionID: resp.ID,
				ChoiceIndex:  resp.Choices[0].Index,
			}); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed to post view event: %v\n", err)
			}
		}

		out := cmd.OutOrStdout()
		if completeJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		fmt.Fprintf(out, "completion %s\n", resp.ID)
		for _, choice := range resp.Choices {
			fmt.Fprintf(out, "--- choice %d ---\n%s\n", choice.Index, choice.Text)
		}
		return nil
	},
}

// languageIDs maps file extensions to editor language identifiers.
var languageIDs = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascriptreact",
	".ts":   "typescript",
	".tsx":  "typescriptreact",
	".java": "java",
	".kt":   "kotlin",
	".rs":   "rust",
	".rb":   "ruby",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cs":   "csharp",
	".php":  "php",
	".sh":   "shellscript",
	".md":   "markdown",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
}

func languageForPath(path string) string {
	if id, ok := languageIDs[strings.ToLower(filepath.Ext(path))]; ok {
		return id
	}
	return "plaintext"
}

func init() {
	completeCmd.Flags().IntVarP(&completePosition, "position", "p", -1, "cursor byte offset (default: end of file)")
	completeCmd.Flags().StringVarP(&completeLanguage, "language", "l", "", "language identifier (default: from file extension)")
	completeCmd.Flags().BoolVar(&completeJSON, "json", false, "print the raw response as JSON")
}
