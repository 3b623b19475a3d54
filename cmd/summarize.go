package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Attamusc/issue-summarizer/internal/config"
	"github.com/Attamusc/issue-summarizer/internal/logging"
	"github.com/Attamusc/issue-summarizer/internal/trigger"
	"github.com/spf13/cobra"
)

var summarizeDays int

var summarizeCmd = &cobra.Command{
	Use:   "summarize <owner/repo>",
	Short: "Summarize recently updated open issues and print them",
	Long: `Summarize runs one digest for a repository and prints the messages that
would be posted to the channel, one per issue, followed by the limit notice
when the issue quota is used up.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().IntVar(&summarizeDays, "days", 0, "Number of days to look back for updates (default from config)")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.Flags{ConfigPath: configPath, Verbose: verbose, Quiet: quiet})
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	ctx := logging.WithLogger(context.Background(), logger)

	req, err := repositoryRequest(args[0], summarizeDays, cfg.Trigger.DefaultDays)
	if err != nil {
		return err
	}

	runner, err := buildRunner(cfg, writerSender{w: os.Stdout}, logger)
	if err != nil {
		return err
	}

	stats := runner.Run(ctx, "stdout", args[0], req)
	logger.Info("Done", "emitted", stats.Emitted, "limitReached", stats.LimitReached)
	return nil
}

// repositoryRequest builds the request for an explicit "owner/repo" argument
func repositoryRequest(arg string, days, defaultDays int) (trigger.Request, error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(arg), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return trigger.Request{}, fmt.Errorf("expected owner/repo, got %q", arg)
	}
	if days < 0 {
		return trigger.Request{}, fmt.Errorf("days must be positive, got %d", days)
	}

	req := trigger.Request{Owner: owner, Repo: repo, Days: days}
	if days == 0 {
		req.Days = defaultDays
	}
	return req, nil
}
