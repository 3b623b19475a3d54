package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Attamusc/issue-summarizer/internal/ai"
	"github.com/Attamusc/issue-summarizer/internal/config"
	"github.com/Attamusc/issue-summarizer/internal/digest"
	"github.com/Attamusc/issue-summarizer/internal/github"
	"github.com/Attamusc/issue-summarizer/internal/logging"
	"github.com/Attamusc/issue-summarizer/internal/summary"
	"github.com/Attamusc/issue-summarizer/internal/tokenizer"
	"github.com/Attamusc/issue-summarizer/internal/trigger"
)

// setupLogger creates a logger on stderr so stdout stays clean for output
func setupLogger(cfg *config.Config) *slog.Logger {
	return logging.New(os.Stderr, logging.Options{
		Format:  logging.ParseFormat(cfg.LogFormat),
		Verbose: cfg.Verbose,
		Quiet:   cfg.Quiet,
	})
}

// initCompleter creates the appropriate completion client based on configuration
func initCompleter(cfg *config.Config, logger *slog.Logger) ai.Completer {
	if cfg.Models.Enabled {
		logger.Debug("AI summarization enabled", "model", cfg.Models.Model, "baseURL", cfg.Models.BaseURL)
		return ai.NewOpenAIClient(ai.OpenAIConfig{
			APIKey:     cfg.ModelsAPIKey(),
			BaseURL:    cfg.Models.BaseURL,
			Timeout:    cfg.Models.Timeout,
			MaxRetries: cfg.Models.MaxRetries,
		})
	}
	logger.Debug("AI summarization disabled")
	return ai.NewNoopCompleter()
}

// initTokenizer loads the BPE tokenizer, falling back to word tokens when the
// encoding cannot be loaded (offline without a TIKTOKEN_CACHE_DIR)
func initTokenizer(cfg *config.Config, logger *slog.Logger) tokenizer.Tokenizer {
	tok, err := tokenizer.NewTiktoken(cfg.Models.Encoding)
	if err != nil {
		logger.Warn("Falling back to word tokenizer", "encoding", cfg.Models.Encoding, "error", err)
		return tokenizer.NewWords()
	}
	return tok
}

func newParser(cfg *config.Config) trigger.Parser {
	return trigger.NewParser(cfg.Trigger.Word, cfg.Trigger.DefaultOwner, cfg.Trigger.DefaultRepo, cfg.Trigger.DefaultDays)
}

// buildRunner wires GitHub, the tokenizer and the completion client into a digest runner
func buildRunner(cfg *config.Config, sender digest.Sender, logger *slog.Logger) (*digest.Runner, error) {
	logger.Debug("Initializing GitHub client")
	client, err := github.New(cfg.GitHubToken, github.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	pipeline := summary.NewPipeline(initTokenizer(cfg, logger), initCompleter(cfg, logger), summary.Config{
		TokenBudget: cfg.Policy.TokenBudget,
		Model:       cfg.Models.Model,
		Restart:     cfg.Models.Restart,
	})

	return digest.NewRunner(newParser(cfg), github.NewSource(client), pipeline, sender, cfg.Policy.IssueQuota), nil
}

// writerSender prints each message to w, separated by a blank line
type writerSender struct {
	w io.Writer
}

func (s writerSender) Send(_ context.Context, _ string, text string) error {
	_, err := fmt.Fprintf(s.w, "%s\n\n", text)
	return err
}
