package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "issue-summarizer",
	Short: "Summarize recently updated GitHub issues into a chat channel",
	Long: `issue-summarizer watches a chat channel for trigger messages such as
"flows summarize owner/repo 7", finds the open issues of that repository updated
in the last N days, and posts an AI-written summary of each issue and its
comments. Long discussions are summarized chunk by chunk and then combined.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		// Default behavior - show help
		cmd.Help()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose progress output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress all progress output")
}
