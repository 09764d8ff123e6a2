package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/evergreen-ci/sage-sub002/common/logger"
)

var (
	verbose     bool
	inputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "sage",
	Short: "Release notes planning and generation",
	Long: `sage plans release notes sections from Jira issues, renders the generation
prompt, and can run the full generation against the configured model.

Input is the same JSON body the HTTP API accepts, or its YAML equivalent.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetupCLI(cmd.ErrOrStderr(), verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringVarP(&inputFormat, "format", "f", formatAuto, "Input format: auto, json or yaml")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		red := color.New(color.FgRed, color.Bold).SprintFunc()
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
		os.Exit(1)
	}
}
