package github

import (
	"context"
	"iter"
	"time"

	"github.com/Attamusc/issue-summarizer/internal/issue"
	"github.com/google/go-github/v66/github"
)

// Source exposes issue search and comment listing bound to one client
type Source struct {
	Client *github.Client
}

// NewSource creates a Source for client
func NewSource(client *github.Client) *Source {
	return &Source{Client: client}
}

// SearchOpenIssues implements digest.IssueSource
func (s *Source) SearchOpenIssues(ctx context.Context, owner, repo string, since time.Time) iter.Seq2[issue.Issue, error] {
	return SearchOpenIssues(ctx, s.Client, owner, repo, since)
}

// FetchComments implements digest.IssueSource
func (s *Source) FetchComments(ctx context.Context, ref issue.Ref) ([]issue.Comment, error) {
	return FetchComments(ctx, s.Client, ref)
}
