package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Attamusc/issue-summarizer/internal/config"
	"github.com/Attamusc/issue-summarizer/internal/logging"
	"github.com/Attamusc/issue-summarizer/internal/server"
	"github.com/Attamusc/issue-summarizer/internal/slackbot"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

var (
	serveAddr    string
	serveChannel string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Listen for trigger messages from Slack",
	Long: `Serve exposes POST /slack/events for the Slack Events API and GET /healthz.
Every message in the configured channel that starts with the trigger word starts
a digest whose summaries are posted back to that channel.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().StringVar(&serveChannel, "channel", "", "Slack channel ID to watch (default from SLACK_CHANNEL)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.Flags{
		ConfigPath: configPath,
		Verbose:    verbose,
		Quiet:      quiet,
		Addr:       serveAddr,
		Channel:    serveChannel,
	})
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	sender := slackbot.NewSender(cfg.Slack.BotToken, cfg.Slack.APIURL)
	runner, err := buildRunner(cfg, sender, logger)
	if err != nil {
		return err
	}

	events := slackbot.NewEventHandler(ctx, cfg.Slack.SigningSecret, cfg.Slack.Channel, newParser(cfg), runner, cfg.Serve.Concurrency)
	srv := server.New(cfg.Serve.Addr, events, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		return errors.Join(err, events.Wait())
	})

	logger.Info("Watching channel", "channel", cfg.Slack.Channel, "trigger", cfg.Trigger.Word, "addr", cfg.Serve.Addr)
	return g.Wait()
}
