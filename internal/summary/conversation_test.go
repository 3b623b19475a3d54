package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Attamusc/issue-summarizer/internal/ai"
	"github.com/Attamusc/issue-summarizer/internal/issue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRecorder is a chat-completion endpoint that keeps the messages of every request
type chatRecorder struct {
	mu       sync.Mutex
	requests [][]recordedMessage
}

func (c *chatRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []recordedMessage `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.mu.Lock()
	c.requests = append(c.requests, req.Messages)
	c.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"choices": []map[string]any{
			{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": "summary"}},
		},
	})
}

func joinContents(messages []recordedMessage) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func TestPipeline_SameNumberAcrossRepositoriesKeepsHistoriesApart(t *testing.T) {
	recorder := &chatRecorder{}
	server := httptest.NewServer(recorder)
	defer server.Close()

	llm := ai.NewOpenAIClient(ai.OpenAIConfig{APIKey: "test-token", BaseURL: server.URL})
	p := NewPipeline(byteTokenizer{}, llm, Config{Model: "m", Restart: false})

	alpha := issue.Issue{Owner: "acme", Repo: "alpha", Number: 7, Title: "Alpha bug", Body: "SECRET-FROM-ALPHA", HTMLURL: "https://github.com/acme/alpha/issues/7"}
	beta := issue.Issue{Owner: "other", Repo: "beta", Number: 7, Title: "Beta bug", Body: "beta body", HTMLURL: "https://github.com/other/beta/issues/7"}

	ctx := context.Background()
	p.Summarize(ctx, alpha, nil)
	p.Summarize(ctx, beta, nil)
	p.Summarize(ctx, alpha, nil)

	require.Len(t, recorder.requests, 3)

	betaRequest := recorder.requests[1]
	assert.Len(t, betaRequest, 2, "system prompt and the new user turn only")
	assert.NotContains(t, joinContents(betaRequest), "SECRET-FROM-ALPHA")

	alphaAgain := recorder.requests[2]
	assert.Len(t, alphaAgain, 4, "the same issue replays its own earlier turn")
	assert.NotContains(t, joinContents(alphaAgain), "beta body")
}
