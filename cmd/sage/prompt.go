package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evergreen-ci/sage-sub002/internal/releasenotes"
)

var promptSystem bool

var promptCmd = &cobra.Command{
	Use:   "prompt [file]",
	Short: "Render the generation prompt for a request",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := loadInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if promptSystem {
			fmt.Fprintf(out, "%s\n\n---\n\n", releasenotes.SystemPrompt)
		}
		plan := releasenotes.BuildPlan(input, releasenotes.DefaultClassification)
		_, err = fmt.Fprintln(out, releasenotes.FormatPrompt(input, plan))
		return err
	},
}

func init() {
	promptCmd.Flags().BoolVar(&promptSystem, "system", false, "Print the system prompt first")
	rootCmd.AddCommand(promptCmd)
}
