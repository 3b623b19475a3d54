package digest

import (
	"context"
	"iter"
	"time"

	"github.com/Attamusc/issue-summarizer/internal/format"
	"github.com/Attamusc/issue-summarizer/internal/issue"
	"github.com/Attamusc/issue-summarizer/internal/logging"
	"github.com/Attamusc/issue-summarizer/internal/summary"
	"github.com/Attamusc/issue-summarizer/internal/trigger"
	"github.com/google/uuid"
)

// IssueSource finds recently updated issues and their comments
type IssueSource interface {
	SearchOpenIssues(ctx context.Context, owner, repo string, since time.Time) iter.Seq2[issue.Issue, error]
	FetchComments(ctx context.Context, ref issue.Ref) ([]issue.Comment, error)
}

// Summarizer condenses one issue and its comments
type Summarizer interface {
	Summarize(ctx context.Context, iss issue.Issue, comments []issue.Comment) summary.Result
}

// Runner handles trigger messages end to end
type Runner struct {
	parser     trigger.Parser
	source     IssueSource
	summarizer Summarizer
	sender     Sender
	quota      int
	now        func() time.Time
}

// NewRunner creates a Runner
func NewRunner(parser trigger.Parser, source IssueSource, summarizer Summarizer, sender Sender, quota int) *Runner {
	return &Runner{
		parser:     parser,
		source:     source,
		summarizer: summarizer,
		sender:     sender,
		quota:      quota,
		now:        time.Now,
	}
}

// Handle processes one chat message. It returns false when the message is not a trigger.
func (r *Runner) Handle(ctx context.Context, channel, text string) (Stats, bool) {
	req, ok := r.parser.Parse(text)
	if !ok {
		return Stats{}, false
	}
	return r.Run(ctx, channel, text, req), true
}

// Run summarizes the issues matching req and posts them to channel.
// original is the user's message, echoed back if the search fails.
func (r *Runner) Run(ctx context.Context, channel, original string, req trigger.Request) Stats {
	logger := logging.FromContext(ctx).With("invocation", uuid.NewString(), "repo", req.Repository())
	ctx = logging.WithLogger(ctx, logger)

	since := req.Since(r.now())
	logger.Info("Trigger received", "days", req.Days, "since", since.Format("2006-01-02"), "defaults", req.UsedDefaults())

	emitter := NewEmitter(r.sender, channel, r.quota)
	if notice := format.DefaultsNotice(req); notice != "" {
		emitter.send(ctx, &Stats{}, notice)
	}

	issues := r.source.SearchOpenIssues(ctx, req.Owner, req.Repo, since)
	stats, err := emitter.EmitAll(ctx, issues, r.summarize)
	if err != nil {
		logger.Warn("Issue search failed", "error", err)
		emitter.send(ctx, &stats, format.CorrectionMessage(original))
		return stats
	}

	logger.Info("Trigger completed", "emitted", stats.Emitted, "limitReached", stats.LimitReached, "sendFailures", stats.SendFailures)
	return stats
}

// summarize fetches comments and runs the pipeline; a failed comment listing
// degrades to summarizing the issue alone
func (r *Runner) summarize(ctx context.Context, iss issue.Issue) summary.Result {
	logger := logging.FromContext(ctx)

	comments, err := r.source.FetchComments(ctx, iss.Ref())
	if err != nil {
		logger.Warn("Comment listing failed, summarizing issue body only", "issue", iss.Ref().String(), "error", err)
		comments = nil
	}

	return r.summarizer.Summarize(ctx, iss, comments)
}
