package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/Attamusc/issue-summarizer/internal/ai"
	"github.com/Attamusc/issue-summarizer/internal/issue"
	"github.com/Attamusc/issue-summarizer/internal/logging"
	"github.com/Attamusc/issue-summarizer/internal/tokenizer"
)

// MessagePrefix starts every issue summary posted to the channel
const MessagePrefix = "Issue Summary:"

// Outcome is the result of one summarization request: either text, or no text and the reason
type Outcome struct {
	Text   string
	Reason error
}

// OK reports whether the request produced text
func (o Outcome) OK() bool {
	return o.Reason == nil
}

// Result is the final summary of one issue
type Result struct {
	IssueURL string
	Text     string
	Chunks   int
	Split    bool
	// MapOutcomes holds one entry per chunk, in chunk order; empty on the unsplit path
	MapOutcomes []Outcome
	Reduce      Outcome
}

// Message renders the channel message for the result
func (r Result) Message() string {
	return fmt.Sprintf("%s\n%s\n%s", MessagePrefix, r.Text, r.IssueURL)
}

// SkippedChunks returns how many map requests produced no text
func (r Result) SkippedChunks() int {
	skipped := 0
	for _, o := range r.MapOutcomes {
		if !o.OK() {
			skipped++
		}
	}
	return skipped
}

// Config holds the pipeline policy and model settings
type Config struct {
	TokenBudget  int
	Model        string
	SystemPrompt string
	Restart      bool
	Temperature  float32
}

// Pipeline summarizes issues with a map-reduce over token-budgeted chunks
type Pipeline struct {
	tok tokenizer.Tokenizer
	llm ai.Completer
	cfg Config
}

// NewPipeline creates a pipeline; zero-valued budget and system prompt take their defaults
func NewPipeline(tok tokenizer.Tokenizer, llm ai.Completer, cfg Config) *Pipeline {
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = DefaultTokenBudget
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = ai.DefaultSystemPrompt
	}
	return &Pipeline{tok: tok, llm: llm, cfg: cfg}
}

// Summarize produces the summary for one issue. It never fails: collaborator
// errors are recorded in the returned Outcomes and degrade the text instead.
func (p *Pipeline) Summarize(ctx context.Context, iss issue.Issue, comments []issue.Comment) Result {
	logger := logging.FromContext(ctx).With("issue", iss.Ref().String())

	tok := tokenizer.Fresh(p.tok)
	stream := Assemble(tok, iss, comments)
	chunks, err := Plan(stream, p.cfg.TokenBudget)
	if err != nil {
		// unreachable with a positive budget, NewPipeline guarantees one
		return Result{IssueURL: iss.HTMLURL, Reduce: Outcome{Reason: err}}
	}

	result := Result{
		IssueURL: iss.HTMLURL,
		Chunks:   len(chunks),
		Split:    Split(chunks),
	}
	logger.Debug("Corpus assembled", "tokens", stream.Len(), "comments", len(comments), "chunks", len(chunks))

	if result.Split {
		result.MapOutcomes = p.mapChunks(ctx, tok, iss, chunks)
		var interim strings.Builder
		for _, o := range result.MapOutcomes {
			interim.WriteString(o.Text)
		}
		result.Reduce = p.complete(ctx, iss, ReducePrompt(iss, interim.String()))
	} else {
		result.Reduce = p.complete(ctx, iss, DirectPrompt(tok.Decode(chunks[0].Tokens)))
	}

	if !result.Reduce.OK() {
		logger.Warn("Reduce request failed, emitting empty summary", "error", result.Reduce.Reason)
	}
	result.Text = result.Reduce.Text

	logger.Debug("Issue summarized", "split", result.Split, "skippedChunks", result.SkippedChunks(), "summaryLength", len(result.Text))
	return result
}

// mapChunks issues one interim-summary request per chunk, strictly in order
func (p *Pipeline) mapChunks(ctx context.Context, tok tokenizer.Tokenizer, iss issue.Issue, chunks []Chunk) []Outcome {
	logger := logging.FromContext(ctx)

	outcomes := make([]Outcome, 0, len(chunks))
	for _, chunk := range chunks {
		text := tok.Decode(chunk.Tokens)
		outcome := p.complete(ctx, iss, MapPrompt(iss.Title, text))
		if !outcome.OK() {
			logger.Warn("Map request failed, skipping chunk", "issue", iss.Ref().String(), "chunk", chunk.Index, "tokens", chunk.Len(), "error", outcome.Reason)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (p *Pipeline) complete(ctx context.Context, iss issue.Issue, prompt string) Outcome {
	text, err := p.llm.Complete(ctx, iss.ConversationID(), prompt, ai.Options{
		Model:        p.cfg.Model,
		SystemPrompt: p.cfg.SystemPrompt,
		Restart:      p.cfg.Restart,
		Temperature:  p.cfg.Temperature,
	})
	if err != nil {
		return Outcome{Reason: err}
	}
	return Outcome{Text: text}
}
