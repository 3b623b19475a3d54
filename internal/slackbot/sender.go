// Package slackbot connects the digest runner to a Slack workspace.
package slackbot

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Sender posts plain-text messages through the Slack Web API
type Sender struct {
	client *slack.Client
}

// NewSender creates a Sender for the given bot token. An empty apiURL uses Slack's default.
func NewSender(token, apiURL string) *Sender {
	var opts []slack.Option
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	return &Sender{client: slack.New(token, opts...)}
}

// Send posts text to channel
func (s *Sender) Send(ctx context.Context, channel, text string) error {
	if _, _, err := s.client.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("failed to post message to %s: %w", channel, err)
	}
	return nil
}
