// Package digest turns one trigger message into a sequence of issue summaries posted to a channel.
package digest

import (
	"context"
	"iter"

	"github.com/Attamusc/issue-summarizer/internal/format"
	"github.com/Attamusc/issue-summarizer/internal/issue"
	"github.com/Attamusc/issue-summarizer/internal/logging"
	"github.com/Attamusc/issue-summarizer/internal/summary"
)

// DefaultIssueQuota is the number of issues summarized per trigger invocation
const DefaultIssueQuota = 10

// Sender delivers one message to a channel
type Sender interface {
	Send(ctx context.Context, channel, text string) error
}

// SummarizeFunc produces the summary of one issue; it must not fail
type SummarizeFunc func(ctx context.Context, iss issue.Issue) summary.Result

// Stats describes one EmitAll run
type Stats struct {
	Emitted      int
	LimitReached bool
	SendFailures int
}

// Emitter posts issue summaries in order until the quota is used up
type Emitter struct {
	sender  Sender
	channel string
	quota   int
}

// NewEmitter creates an Emitter; a non-positive quota means DefaultIssueQuota
func NewEmitter(sender Sender, channel string, quota int) *Emitter {
	if quota <= 0 {
		quota = DefaultIssueQuota
	}
	return &Emitter{sender: sender, channel: channel, quota: quota}
}

// EmitAll summarizes and posts issues strictly in sequence order.
// After each posted summary the remaining quota drops by one; when it reaches zero
// the limit notice is posted and iteration stops, even if more issues remain.
// An error yielded before the first issue is returned so the caller can report it;
// a later one only ends the run.
func (e *Emitter) EmitAll(ctx context.Context, issues iter.Seq2[issue.Issue, error], summarize SummarizeFunc) (Stats, error) {
	logger := logging.FromContext(ctx)

	var stats Stats
	remaining := e.quota
	for iss, err := range issues {
		if err != nil {
			if stats.Emitted == 0 {
				return stats, err
			}
			logger.Warn("Issue listing ended early", "emitted", stats.Emitted, "error", err)
			return stats, nil
		}

		result := summarize(ctx, iss)
		e.send(ctx, &stats, result.Message())
		stats.Emitted++
		remaining--

		if remaining <= 0 {
			logger.Info("Issue quota reached", "quota", e.quota)
			e.send(ctx, &stats, format.LimitNotice(e.quota))
			stats.LimitReached = true
			break
		}
	}
	return stats, nil
}

// send delivers text; a failure is counted and logged but never stops the run
func (e *Emitter) send(ctx context.Context, stats *Stats, text string) {
	if err := e.sender.Send(ctx, e.channel, text); err != nil {
		stats.SendFailures++
		logging.FromContext(ctx).Warn("Failed to deliver message", "channel", e.channel, "error", err)
	}
}
