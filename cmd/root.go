// Package cmd provides the command-line interface for the reviewmaker tool.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reviewmaker",
	Short: "Reviewmaker automates the QB checklist code-review workflow",
	Long: `Reviewmaker automates the quality-bar checklist workflow for code reviews:
given a JIRA ticket it locates the pull request under review, provisions a QB
checklist spreadsheet from the template, records the review outcome back into
the ticket and the pull request, and appends rejected reviews to the shared
history sheet.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Settings file (default ~/.config/reviewmaker/config.yaml)")

	rootCmd.AddCommand(reviewCmd)
}
