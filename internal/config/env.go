// Package config loads application configuration.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds environment overrides. Unset variables stay nil or empty
// so they leave the file and default values untouched.
type EnvConfig struct {
	GitHubToken string `envconfig:"GITHUB_TOKEN"`

	// DisableSummary turns off the completion endpoint when set to any value.
	// Env: DISABLE_SUMMARY
	DisableSummary string `envconfig:"DISABLE_SUMMARY"`

	// LogFormat is text or json.
	// Env: LOG_FORMAT (default: text)
	LogFormat string `envconfig:"LOG_FORMAT"`

	ModelsBaseURL    string         `envconfig:"GITHUB_MODELS_BASE_URL"`
	ModelsModel      string         `envconfig:"GITHUB_MODELS_MODEL"`
	ModelsAPIKey     string         `envconfig:"GITHUB_MODELS_API_KEY"`
	ModelsTimeout    *time.Duration `envconfig:"GITHUB_MODELS_TIMEOUT"`
	ModelsMaxRetries *int           `envconfig:"GITHUB_MODELS_MAX_RETRIES"`
	ModelsRestart    *bool          `envconfig:"GITHUB_MODELS_RESTART"`

	SlackBotToken      string `envconfig:"SLACK_BOT_TOKEN"`
	SlackSigningSecret string `envconfig:"SLACK_SIGNING_SECRET"`
	SlackChannel       string `envconfig:"SLACK_CHANNEL"`
	SlackAddr          string `envconfig:"SLACK_ADDR"`
	SlackAPIURL        string `envconfig:"SLACK_API_URL"`

	TriggerWord         string `envconfig:"TRIGGER_WORD"`
	TriggerDefaultOwner string `envconfig:"TRIGGER_DEFAULT_OWNER"`
	TriggerDefaultRepo  string `envconfig:"TRIGGER_DEFAULT_REPO"`
	TriggerDefaultDays  *int   `envconfig:"TRIGGER_DEFAULT_DAYS"`

	PolicyTokenBudget *int `envconfig:"POLICY_TOKEN_BUDGET"`
	PolicyIssueQuota  *int `envconfig:"POLICY_ISSUE_QUOTA"`

	ServeConcurrency *int `envconfig:"SERVE_CONCURRENCY"`
}

// LoadEnv reads EnvConfig from the process environment
func LoadEnv() (EnvConfig, error) {
	var env EnvConfig
	if err := envconfig.Process("", &env); err != nil {
		return EnvConfig{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return env, nil
}

func (e EnvConfig) apply(cfg *Config) {
	setString(&cfg.GitHubToken, e.GitHubToken)
	setString(&cfg.LogFormat, e.LogFormat)
	if e.DisableSummary != "" {
		cfg.Models.Enabled = false
	}

	setString(&cfg.Models.BaseURL, e.ModelsBaseURL)
	setString(&cfg.Models.Model, e.ModelsModel)
	setString(&cfg.Models.APIKey, e.ModelsAPIKey)
	setValue(&cfg.Models.Timeout, e.ModelsTimeout)
	setValue(&cfg.Models.MaxRetries, e.ModelsMaxRetries)
	setValue(&cfg.Models.Restart, e.ModelsRestart)

	setString(&cfg.Slack.BotToken, e.SlackBotToken)
	setString(&cfg.Slack.SigningSecret, e.SlackSigningSecret)
	setString(&cfg.Slack.Channel, e.SlackChannel)
	setString(&cfg.Slack.APIURL, e.SlackAPIURL)
	setString(&cfg.Serve.Addr, e.SlackAddr)

	setString(&cfg.Trigger.Word, e.TriggerWord)
	setString(&cfg.Trigger.DefaultOwner, e.TriggerDefaultOwner)
	setString(&cfg.Trigger.DefaultRepo, e.TriggerDefaultRepo)
	setValue(&cfg.Trigger.DefaultDays, e.TriggerDefaultDays)

	setValue(&cfg.Policy.TokenBudget, e.PolicyTokenBudget)
	setValue(&cfg.Policy.IssueQuota, e.PolicyIssueQuota)
	setValue(&cfg.Serve.Concurrency, e.ServeConcurrency)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setValue[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
