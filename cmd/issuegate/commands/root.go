package commands

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd is the base command for the Issuegate CLI.
var rootCmd = &cobra.Command{
	Use:   "issuegate",
	Short: "Linked-issue gate for pull requests",
	Long: `Issuegate enforces a repository rule: every pull request must be linked
to at least one tracked issue before it can be merged.

It scans the PR text for issue references, queries GitHub for declared
closing issues, and falls back to the issue timeline when the query fails.
On a violation it fails the check and posts an explanatory comment.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}
