package digest

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/Attamusc/issue-summarizer/internal/ai"
	"github.com/Attamusc/issue-summarizer/internal/format"
	"github.com/Attamusc/issue-summarizer/internal/issue"
	"github.com/Attamusc/issue-summarizer/internal/summary"
	"github.com/Attamusc/issue-summarizer/internal/tokenizer"
	"github.com/Attamusc/issue-summarizer/internal/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	issues      []issue.Issue
	searchErr   error
	comments    map[int][]issue.Comment
	commentErrs map[int]error

	searchedOwner string
	searchedRepo  string
	searchedSince time.Time
}

func (f *fakeSource) SearchOpenIssues(_ context.Context, owner, repo string, since time.Time) iter.Seq2[issue.Issue, error] {
	f.searchedOwner, f.searchedRepo, f.searchedSince = owner, repo, since
	if f.searchErr != nil {
		return failingSequence(nil, f.searchErr)
	}
	var pulled int
	return sequence(f.issues, &pulled)
}

func (f *fakeSource) FetchComments(_ context.Context, ref issue.Ref) ([]issue.Comment, error) {
	if err := f.commentErrs[ref.Number]; err != nil {
		return nil, err
	}
	return f.comments[ref.Number], nil
}

// promptRecorder is a Completer that remembers every prompt
type promptRecorder struct {
	prompts []string
}

func (p *promptRecorder) Complete(_ context.Context, _, prompt string, _ ai.Options) (string, error) {
	p.prompts = append(p.prompts, prompt)
	return "summarized", nil
}

func newTestRunner(source IssueSource, llm ai.Completer, sender Sender, quota int) *Runner {
	pipeline := summary.NewPipeline(tokenizer.NewWords(), llm, summary.Config{TokenBudget: 2800})
	r := NewRunner(trigger.NewParser("", "", "", 0), source, pipeline, sender, quota)
	r.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestRunner_HandleIgnoresOtherMessages(t *testing.T) {
	source := &fakeSource{issues: makeIssues(1)}
	sender := &recordingSender{}
	r := newTestRunner(source, &promptRecorder{}, sender, 10)

	_, ok := r.Handle(context.Background(), "C1", "good morning")
	assert.False(t, ok)
	assert.Empty(t, sender.messages)
	assert.Empty(t, source.searchedOwner)
}

func TestRunner_HandleSummarizesMatches(t *testing.T) {
	source := &fakeSource{issues: makeIssues(2)}
	sender := &recordingSender{}
	llm := &promptRecorder{}
	r := newTestRunner(source, llm, sender, 10)

	stats, ok := r.Handle(context.Background(), "C1", "flows summarize golang/go 3")
	require.True(t, ok)

	assert.Equal(t, "golang", source.searchedOwner)
	assert.Equal(t, "go", source.searchedRepo)
	assert.Equal(t, time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC), source.searchedSince)
	assert.Equal(t, 2, stats.Emitted)
	assert.Equal(t, []string{
		"Issue Summary:\nsummarized\nhttps://github.com/owner/repo/issues/1",
		"Issue Summary:\nsummarized\nhttps://github.com/owner/repo/issues/2",
	}, sender.texts())
}

func TestRunner_NoMatchesEmitsNothing(t *testing.T) {
	source := &fakeSource{}
	sender := &recordingSender{}
	r := newTestRunner(source, &promptRecorder{}, sender, 10)

	stats, ok := r.Handle(context.Background(), "C1", "flows summarize golang/go 3")
	require.True(t, ok)
	assert.Zero(t, stats.Emitted)
	assert.Empty(t, sender.messages, "no summaries, no limit notice, no error message")
}

func TestRunner_SearchFailureSendsCorrection(t *testing.T) {
	source := &fakeSource{searchErr: errors.New("422 Validation Failed")}
	sender := &recordingSender{}
	r := newTestRunner(source, &promptRecorder{}, sender, 10)

	text := "flows summarize golnag/og 3"
	_, ok := r.Handle(context.Background(), "C1", text)
	require.True(t, ok)
	assert.Equal(t, []string{format.CorrectionMessage(text)}, sender.texts())
}

func TestRunner_SurfacesDefaults(t *testing.T) {
	source := &fakeSource{issues: makeIssues(1)}
	sender := &recordingSender{}
	r := newTestRunner(source, &promptRecorder{}, sender, 10)

	_, ok := r.Handle(context.Background(), "C1", "flows summarize")
	require.True(t, ok)

	assert.Equal(t, "flows-network", source.searchedOwner)
	assert.Equal(t, "haiku-platform", source.searchedRepo)
	texts := sender.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "defaults were applied")
	assert.Contains(t, texts[1], "Issue Summary:")
}

func TestRunner_CommentFailureStillSummarizes(t *testing.T) {
	issues := makeIssues(2)
	issues[0].Body = "The scheduler deadlocks under load."
	source := &fakeSource{
		issues:      issues,
		comments:    map[int][]issue.Comment{2: {{Author: "bob", Body: "Confirmed."}}},
		commentErrs: map[int]error{1: errors.New("comments API down")},
	}
	sender := &recordingSender{}
	llm := &promptRecorder{}
	r := newTestRunner(source, llm, sender, 10)

	stats, ok := r.Handle(context.Background(), "C1", "flows summarize owner/repo 7")
	require.True(t, ok)
	assert.Equal(t, 2, stats.Emitted)

	require.Len(t, llm.prompts, 2)
	assert.Equal(t, summary.DirectPrompt(summary.IssueSentence(issues[0])), llm.prompts[0])
	assert.Equal(t, summary.DirectPrompt(summary.IssueSentence(issues[1])+summary.CommentSentence(issue.Comment{Author: "bob", Body: "Confirmed."})), llm.prompts[1])
}

func TestRunner_QuotaAcrossTrigger(t *testing.T) {
	source := &fakeSource{issues: makeIssues(11)}
	sender := &recordingSender{}
	llm := &promptRecorder{}
	r := newTestRunner(source, llm, sender, 10)

	stats, ok := r.Handle(context.Background(), "C1", "flows summarize owner/repo 7")
	require.True(t, ok)

	assert.Equal(t, 10, stats.Emitted)
	assert.True(t, stats.LimitReached)
	assert.Len(t, llm.prompts, 10)
	texts := sender.texts()
	require.Len(t, texts, 11)
	assert.Equal(t, format.LimitNotice(10), texts[10])
}
