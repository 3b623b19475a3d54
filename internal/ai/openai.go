package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/Attamusc/issue-summarizer/internal/logging"
	"github.com/patrickmn/go-cache"
	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultMaxRetries     = 3
	defaultBaseDelay      = 1 * time.Second
	defaultTimeout        = 60 * time.Second
	conversationTTL       = 30 * time.Minute
	conversationSweepTick = 10 * time.Minute
)

// ErrEmptyResponse is returned when the API answers without any choices
var ErrEmptyResponse = errors.New("chat completion returned empty response")

// OpenAIClient implements Completer against any OpenAI-compatible chat completion API
// (GitHub Models, OpenAI, Azure-style proxies).
type OpenAIClient struct {
	client     *openai.Client
	maxRetries int
	baseDelay  time.Duration

	mu            sync.Mutex
	conversations *cache.Cache
}

// OpenAIConfig holds configuration for the OpenAI-compatible client
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// NewOpenAIClient creates a new client from configuration
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}

	return &OpenAIClient{
		client:        openai.NewClientWithConfig(config),
		maxRetries:    maxRetries,
		baseDelay:     baseDelay,
		conversations: cache.New(conversationTTL, conversationSweepTick),
	}
}

// Complete sends prompt as the next user turn of the conversation.
// Without opts.Restart the previous turns of the same conversation are replayed first.
func (c *OpenAIClient) Complete(ctx context.Context, conversationID, prompt string, opts Options) (string, error) {
	logger := logging.FromContext(ctx)

	if opts.Restart {
		c.conversations.Delete(conversationID)
	}

	history := c.history(conversationID)
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: opts.SystemPrompt})
	}
	messages = append(messages, history...)
	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt}
	messages = append(messages, user)

	request := openai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    messages,
		Temperature: opts.Temperature,
	}

	logger.Debug("Starting AI API request", "model", opts.Model, "conversation", conversationID, "history", len(history), "promptLength", len(prompt))

	reply, err := c.callAPI(ctx, request)
	if err != nil {
		return "", err
	}

	c.record(conversationID, user, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply})
	return reply, nil
}

// callAPI performs the request with jittered exponential backoff on retryable errors
func (c *OpenAIClient) callAPI(ctx context.Context, request openai.ChatCompletionRequest) (string, error) {
	logger := logging.FromContext(ctx)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(c.baseDelay) * math.Pow(2, float64(attempt-1)))
			jitter := time.Duration(rand.Float64() * float64(delay) * 0.1) // 10% jitter
			logger.Debug("AI API retry backoff", "attempt", attempt, "delay", delay+jitter)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay + jitter):
			}
		}

		resp, err := c.client.CreateChatCompletion(ctx, request)
		if err != nil {
			lastErr = err
			if isRetryable(err) {
				logger.Debug("AI API retryable failure", "attempt", attempt+1, "error", err)
				continue
			}
			logger.Debug("AI API request failed", "attempt", attempt+1, "error", err)
			return "", fmt.Errorf("chat completion request failed: %w", err)
		}

		if len(resp.Choices) == 0 {
			return "", ErrEmptyResponse
		}

		reply := resp.Choices[0].Message.Content
		logger.Debug("AI API request succeeded", "attempt", attempt+1, "replyLength", len(reply))
		return reply, nil
	}

	return "", fmt.Errorf("chat completion failed after %d attempts: %w", c.maxRetries, lastErr)
}

// isRetryable reports whether err is a rate limit or server-side failure
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}

func (c *OpenAIClient) history(conversationID string) []openai.ChatCompletionMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.conversations.Get(conversationID); ok {
		stored := v.([]openai.ChatCompletionMessage)
		return append([]openai.ChatCompletionMessage(nil), stored...)
	}
	return nil
}

func (c *OpenAIClient) record(conversationID string, turns ...openai.ChatCompletionMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stored []openai.ChatCompletionMessage
	if v, ok := c.conversations.Get(conversationID); ok {
		stored = v.([]openai.ChatCompletionMessage)
	}
	stored = append(append([]openai.ChatCompletionMessage(nil), stored...), turns...)
	c.conversations.Set(conversationID, stored, cache.DefaultExpiration)
}
