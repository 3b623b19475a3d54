package github

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/Attamusc/issue-summarizer/internal/issue"
	"github.com/Attamusc/issue-summarizer/internal/logging"
	"github.com/google/go-github/v66/github"
)

const (
	searchPageSize  = 30
	commentPageSize = 100 // Maximum allowed per page
)

// SearchQuery builds the search for open issues in owner/repo updated on or after since
func SearchQuery(owner, repo string, since time.Time) string {
	return fmt.Sprintf("repo:%s/%s is:issue state:open updated:>=%s", owner, repo, since.Format("2006-01-02"))
}

// SearchOpenIssues returns a lazy sequence of open issues in owner/repo updated since the given date.
// Pages are fetched only as the caller keeps iterating, and the sequence cannot be restarted.
// A failed page yields a single error and ends the sequence.
func SearchOpenIssues(ctx context.Context, client *github.Client, owner, repo string, since time.Time) iter.Seq2[issue.Issue, error] {
	return func(yield func(issue.Issue, error) bool) {
		logger := logging.FromContext(ctx)
		query := SearchQuery(owner, repo, since)
		target := owner + "/" + repo

		opts := &github.SearchOptions{
			ListOptions: github.ListOptions{Page: 1, PerPage: searchPageSize},
		}

		for {
			logger.Debug("Searching issues", "query", query, "page", opts.Page)

			result, resp, err := client.Search.Issues(ctx, query, opts)
			if err != nil {
				logger.Debug("GitHub API issue search failed", "repo", target, "page", opts.Page, "error", err)
				if enhancedErr := enhanceGitHubError(err, target); enhancedErr != nil {
					err = enhancedErr
				} else {
					err = fmt.Errorf("failed to search issues in %s: %w", target, err)
				}
				yield(issue.Issue{}, err)
				return
			}

			logger.Debug("Search page fetched", "repo", target, "page", opts.Page, "count", len(result.Issues), "total", result.GetTotal())

			for _, gi := range result.Issues {
				if !yield(toIssue(owner, repo, gi), nil) {
					return
				}
			}

			if resp.NextPage == 0 {
				return
			}
			opts.Page = resp.NextPage
		}
	}
}

func toIssue(owner, repo string, gi *github.Issue) issue.Issue {
	labels := make([]string, 0, len(gi.Labels))
	for _, l := range gi.Labels {
		labels = append(labels, l.GetName())
	}

	return issue.Issue{
		Owner:        owner,
		Repo:         repo,
		Number:       gi.GetNumber(),
		Title:        gi.GetTitle(),
		CreatorLogin: gi.GetUser().GetLogin(),
		CreatorRole:  gi.GetAuthorAssociation(),
		Labels:       labels,
		Body:         gi.GetBody(),
		HTMLURL:      gi.GetHTMLURL(),
	}
}

// FetchComments retrieves every comment of an issue in API order, following pagination
func FetchComments(ctx context.Context, client *github.Client, ref issue.Ref) ([]issue.Comment, error) {
	logger := logging.FromContext(ctx)

	var all []issue.Comment
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{Page: 1, PerPage: commentPageSize},
	}

	for {
		logger.Debug("Fetching comments page", "issue", ref.String(), "page", opts.Page)

		comments, resp, err := client.Issues.ListComments(ctx, ref.Owner, ref.Repo, ref.Number, opts)
		if err != nil {
			logger.Debug("GitHub API comments fetch failed", "issue", ref.String(), "page", opts.Page, "error", err)
			if enhancedErr := enhanceGitHubError(err, ref.String()); enhancedErr != nil {
				return nil, enhancedErr
			}
			return nil, fmt.Errorf("failed to fetch comments for issue %s: %w", ref.String(), err)
		}

		for _, c := range comments {
			all = append(all, issue.Comment{
				Author: c.GetUser().GetLogin(),
				Body:   c.GetBody(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	logger.Debug("Comments fetch completed", "issue", ref.String(), "total", len(all))
	return all, nil
}

// enhanceGitHubError turns common GitHub API failures into actionable messages.
// It returns nil when no enhancement applies.
func enhanceGitHubError(err error, target string) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("GitHub API authentication failed for %s. Please check your GITHUB_TOKEN is valid and has the required permissions: %w", target, err)

		case http.StatusForbidden:
			msg := strings.ToLower(ghErr.Message)
			if strings.Contains(msg, "sso") || strings.Contains(msg, "organization") {
				return fmt.Errorf("GitHub API access denied for %s. Your token may require SSO authorization for this organization: %w", target, err)
			}
			return fmt.Errorf("GitHub API access denied for %s. Your token may not have sufficient permissions to access this repository: %w", target, err)

		case http.StatusNotFound:
			return fmt.Errorf("GitHub repository %s not found. It may be private or misspelled: %w", target, err)

		case http.StatusUnprocessableEntity:
			return fmt.Errorf("GitHub rejected the search for %s. The owner or repository name is probably wrong: %w", target, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "timeout") {
		return fmt.Errorf("GitHub API request timed out for %s. Please check your network connection and try again: %w", target, err)
	}

	return nil
}
