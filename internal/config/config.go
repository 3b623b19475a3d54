package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Attamusc/issue-summarizer/internal/digest"
	"github.com/Attamusc/issue-summarizer/internal/summary"
	"github.com/Attamusc/issue-summarizer/internal/trigger"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	GitHubToken string `yaml:"github_token"`
	LogFormat   string `yaml:"log_format"`
	Verbose     bool   `yaml:"-"`
	Quiet       bool   `yaml:"-"`

	Models  ModelsConfig  `yaml:"models"`
	Slack   SlackConfig   `yaml:"slack"`
	Trigger TriggerConfig `yaml:"trigger"`
	Policy  PolicyConfig  `yaml:"policy"`
	Serve   ServeConfig   `yaml:"serve"`
}

// ModelsConfig configures the chat-completion endpoint
type ModelsConfig struct {
	Enabled    bool          `yaml:"enabled"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	Restart    bool          `yaml:"restart"`
	Encoding   string        `yaml:"encoding"`
}

// SlackConfig configures the workspace connection
type SlackConfig struct {
	BotToken      string `yaml:"bot_token"`
	SigningSecret string `yaml:"signing_secret"`
	Channel       string `yaml:"channel"`
	APIURL        string `yaml:"api_url"`
}

// TriggerConfig configures trigger recognition and its fallbacks
type TriggerConfig struct {
	Word         string `yaml:"word"`
	DefaultOwner string `yaml:"default_owner"`
	DefaultRepo  string `yaml:"default_repo"`
	DefaultDays  int    `yaml:"default_days"`
}

// PolicyConfig holds the summarization limits
type PolicyConfig struct {
	TokenBudget int `yaml:"token_budget"`
	IssueQuota  int `yaml:"issue_quota"`
}

// ServeConfig configures the HTTP listener
type ServeConfig struct {
	Addr        string `yaml:"addr"`
	Concurrency int    `yaml:"concurrency"`
}

// Flags carries command-line overrides; zero values leave the loaded value alone
type Flags struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
	Addr       string
	Channel    string
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		LogFormat: "text",
		Models: ModelsConfig{
			Enabled:    true,
			BaseURL:    "https://models.github.ai/inference",
			Model:      "openai/gpt-4o-mini",
			Timeout:    60 * time.Second,
			MaxRetries: 3,
			Restart:    true,
			Encoding:   "cl100k_base",
		},
		Slack: SlackConfig{
			APIURL: "https://slack.com/api/",
		},
		Trigger: TriggerConfig{
			Word:         trigger.DefaultWord,
			DefaultOwner: trigger.DefaultOwner,
			DefaultRepo:  trigger.DefaultRepo,
			DefaultDays:  trigger.DefaultDays,
		},
		Policy: PolicyConfig{
			TokenBudget: summary.DefaultTokenBudget,
			IssueQuota:  digest.DefaultIssueQuota,
		},
		Serve: ServeConfig{
			Addr:        ":8080",
			Concurrency: 4,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file,
// the environment (including a .env file) and finally the flags
func Load(flags Flags) (*Config, error) {
	cfg := Default()

	if flags.ConfigPath != "" {
		if err := loadFile(flags.ConfigPath, &cfg); err != nil {
			return nil, err
		}
	}

	// Silently ignore if .env file doesn't exist
	_ = godotenv.Load()

	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	env.apply(&cfg)

	applyFlags(flags, &cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyFlags(flags Flags, cfg *Config) {
	cfg.Quiet = flags.Quiet
	// verbose is disabled if quiet is set
	cfg.Verbose = flags.Verbose && !flags.Quiet
	if flags.Addr != "" {
		cfg.Serve.Addr = flags.Addr
	}
	if flags.Channel != "" {
		cfg.Slack.Channel = flags.Channel
	}
}

// Validate checks the settings every command needs
func (c *Config) Validate() error {
	if c.GitHubToken == "" {
		return errors.New("GITHUB_TOKEN environment variable is required")
	}
	if c.Policy.TokenBudget <= 0 {
		return fmt.Errorf("token budget must be positive, got %d", c.Policy.TokenBudget)
	}
	if c.Policy.IssueQuota <= 0 {
		return fmt.Errorf("issue quota must be positive, got %d", c.Policy.IssueQuota)
	}
	if c.Trigger.DefaultDays <= 0 {
		return fmt.Errorf("default days must be positive, got %d", c.Trigger.DefaultDays)
	}
	if c.Models.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive, got %d", c.Models.MaxRetries)
	}
	return nil
}

// ValidateServe checks the extra settings the serve command needs
func (c *Config) ValidateServe() error {
	if c.Slack.BotToken == "" {
		return errors.New("SLACK_BOT_TOKEN environment variable is required")
	}
	if c.Slack.SigningSecret == "" {
		return errors.New("SLACK_SIGNING_SECRET environment variable is required")
	}
	if c.Slack.Channel == "" {
		return errors.New("SLACK_CHANNEL environment variable is required")
	}
	if c.Serve.Concurrency <= 0 {
		return fmt.Errorf("serve concurrency must be positive, got %d", c.Serve.Concurrency)
	}
	return nil
}

// ModelsAPIKey returns the key for the completion endpoint, falling back to the GitHub token
func (c *Config) ModelsAPIKey() string {
	if c.Models.APIKey != "" {
		return c.Models.APIKey
	}
	return c.GitHubToken
}
