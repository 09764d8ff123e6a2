package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/evergreen-ci/sage-sub002/internal/releasenotes"
)

var planSummary bool

var planCmd = &cobra.Command{
	Use:   "plan [file]",
	Short: "Group issues into release notes sections",
	Long: `Build the section plan for a release notes request without calling a model.
Reads the request from file, or from stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := loadInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		plan := releasenotes.BuildPlan(input, releasenotes.DefaultClassification)
		if planSummary {
			printPlanSummary(cmd.OutOrStdout(), input, plan)
			return nil
		}
		return writeJSON(cmd.OutOrStdout(), plan)
	},
}

func init() {
	planCmd.Flags().BoolVarP(&planSummary, "summary", "s", false, "Print a readable summary instead of JSON")
	rootCmd.AddCommand(planCmd)
}

func printPlanSummary(w io.Writer, input releasenotes.Input, plan releasenotes.PlanResult) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", cyan("=== Release Notes Plan ==="))
	fmt.Fprintf(w, "Issues: %d\n\n", len(input.JiraIssues))

	planned := make(map[string]bool)
	if len(plan.Sections) == 0 {
		fmt.Fprintf(w, "%s no issues matched a configured section\n", yellow("⚠"))
	}
	for _, section := range plan.Sections {
		fmt.Fprintf(w, "%s %s (%d)\n", green("✓"), section.Title, len(section.IssueKeys))
		fmt.Fprintf(w, "    %s\n", section.Focus)
		fmt.Fprintf(w, "    %s\n", strings.Join(section.IssueKeys, ", "))
		for _, key := range section.IssueKeys {
			planned[key] = true
		}
	}

	var unplanned []string
	for _, issue := range input.JiraIssues {
		if !planned[issue.Key] {
			unplanned = append(unplanned, fmt.Sprintf("%s (%s)", issue.Key, issue.IssueType))
		}
	}
	if len(unplanned) > 0 {
		fmt.Fprintf(w, "\n%s\n", yellow("Not in any section:"))
		for _, u := range unplanned {
			fmt.Fprintf(w, "    %s\n", u)
		}
	}

	if plan.HasSecurityIssues {
		fmt.Fprintf(w, "\n%s security issues present; they stay out of customer-facing sections\n", yellow("⚠"))
	}
	fmt.Fprintln(w)
}
