package slackbot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Attamusc/issue-summarizer/internal/digest"
	"github.com/Attamusc/issue-summarizer/internal/logging"
	"github.com/Attamusc/issue-summarizer/internal/trigger"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"golang.org/x/sync/errgroup"
)

// maxBodyBytes bounds an Events API payload
const maxBodyBytes = 1 << 20

// Runner executes one trigger invocation
type Runner interface {
	Run(ctx context.Context, channel, original string, req trigger.Request) digest.Stats
}

// EventHandler receives Events API callbacks and starts a digest for every trigger message.
// Slack expects an answer within three seconds, so runs continue in the background.
type EventHandler struct {
	ctx           context.Context
	signingSecret string
	channel       string
	parser        trigger.Parser
	runner        Runner
	group         *errgroup.Group
}

// NewEventHandler creates an EventHandler. Background runs use ctx and at most
// concurrency of them run at once; an empty channel accepts messages from any channel.
func NewEventHandler(ctx context.Context, signingSecret, channel string, parser trigger.Parser, runner Runner, concurrency int) *EventHandler {
	group := &errgroup.Group{}
	if concurrency > 0 {
		group.SetLimit(concurrency)
	}
	return &EventHandler{
		ctx:           ctx,
		signingSecret: signingSecret,
		channel:       channel,
		parser:        parser,
		runner:        runner,
		group:         group,
	}
}

// Wait blocks until every background run has finished
func (h *EventHandler) Wait() error {
	return h.group.Wait()
}

func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(h.ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	verifier, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		logger.Warn("Rejected Slack request", "error", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}
	if _, err := verifier.Write(body); err != nil {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}
	if err := verifier.Ensure(); err != nil {
		logger.Warn("Rejected Slack request", "error", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		http.Error(w, "malformed event", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "malformed challenge", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge.Challenge))
		return
	case slackevents.CallbackEvent:
		// Slack redelivers when the first ack was slow; the original delivery is already running
		if r.Header.Get("X-Slack-Retry-Num") != "" {
			logger.Debug("Ignoring Slack redelivery", "retry", r.Header.Get("X-Slack-Retry-Num"))
			w.WriteHeader(http.StatusOK)
			return
		}
		if msg, ok := event.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			h.dispatch(msg)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// dispatch starts a digest run for msg if it is a trigger message from a person in the watched channel
func (h *EventHandler) dispatch(msg *slackevents.MessageEvent) {
	logger := logging.FromContext(h.ctx)

	if msg.BotID != "" || msg.SubType != "" {
		return
	}
	if h.channel != "" && msg.Channel != h.channel {
		return
	}

	req, ok := h.parser.Parse(msg.Text)
	if !ok {
		return
	}

	channel, text := msg.Channel, msg.Text
	started := h.group.TryGo(func() error {
		h.runner.Run(h.ctx, channel, text, req)
		return nil
	})
	if !started {
		logger.Warn("Too many digests in progress, dropping trigger", "channel", channel, "repo", req.Repository())
	}
}
