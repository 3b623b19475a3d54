package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
}

// fakeChatServer answers every request with reply and records decoded requests
func fakeChatServer(t *testing.T, reply string, requests *[]chatRequest) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		*requests = append(*requests, req)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(reply))
	}))
}

func TestOpenAIClient_Complete(t *testing.T) {
	var requests []chatRequest
	server := fakeChatServer(t, "A concise summary.", &requests)
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-token", BaseURL: server.URL})

	reply, err := client.Complete(context.Background(), "acme/alpha#7", "Summarize this", Options{
		Model:        "gpt-4o-mini",
		SystemPrompt: DefaultSystemPrompt,
		Restart:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "A concise summary.", reply)

	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "Summarize this", req.Messages[1].Content)
}

func TestOpenAIClient_ConversationHistory(t *testing.T) {
	var requests []chatRequest
	server := fakeChatServer(t, "ok", &requests)
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-token", BaseURL: server.URL})
	ctx := context.Background()
	opts := Options{Model: "m", SystemPrompt: "sys"}

	_, err := client.Complete(ctx, "acme/alpha#1", "first", opts)
	require.NoError(t, err)
	_, err = client.Complete(ctx, "acme/alpha#1", "second", opts)
	require.NoError(t, err)
	_, err = client.Complete(ctx, "acme/alpha#2", "other", opts)
	require.NoError(t, err)

	require.Len(t, requests, 3)

	// second turn replays the first exchange
	second := requests[1].Messages
	require.Len(t, second, 4)
	assert.Equal(t, "first", second[1].Content)
	assert.Equal(t, "assistant", second[2].Role)
	assert.Equal(t, "ok", second[2].Content)
	assert.Equal(t, "second", second[3].Content)

	// conversations are isolated
	assert.Len(t, requests[2].Messages, 2)

	// restart drops the history
	opts.Restart = true
	_, err = client.Complete(ctx, "acme/alpha#1", "third", opts)
	require.NoError(t, err)
	assert.Len(t, requests[3].Messages, 2)
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-token", BaseURL: server.URL})
	_, err := client.Complete(context.Background(), "acme/alpha#1", "prompt", Options{Model: "m"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(chatResponse("after retry"))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{
		APIKey:    "test-token",
		BaseURL:   server.URL,
		BaseDelay: time.Millisecond,
	})

	reply, err := client.Complete(context.Background(), "acme/alpha#1", "prompt", Options{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "after retry", reply)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIClient_NonRetryableError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad model", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-token", BaseURL: server.URL, BaseDelay: time.Millisecond})

	_, err := client.Complete(context.Background(), "acme/alpha#1", "prompt", Options{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion request failed")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-token", BaseURL: server.URL, MaxRetries: 2, BaseDelay: time.Millisecond})

	_, err := client.Complete(context.Background(), "acme/alpha#1", "prompt", Options{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, int32(2), calls.Load())
}

func TestNoopCompleter(t *testing.T) {
	reply, err := NewNoopCompleter().Complete(context.Background(), "acme/alpha#1", "  raw text  ", Options{})
	require.NoError(t, err)
	assert.Equal(t, "raw text", reply)
}
