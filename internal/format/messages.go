// Package format renders the fixed chat messages sent alongside issue summaries.
package format

import (
	"fmt"
	"strings"

	"github.com/Attamusc/issue-summarizer/internal/trigger"
)

// LimitNotice is sent once a trigger invocation has used its whole issue quota
func LimitNotice(quota int) string {
	return fmt.Sprintf("You've reached your limit of %d issues. Please wait 10 minutes before running the command again.", quota)
}

// CorrectionMessage asks the user to fix the owner/repo after the issue search failed
func CorrectionMessage(text string) string {
	return fmt.Sprintf("Please double check if there are errors in the owner and repo names provided in your message:\n%s\nif yes, please correct the spelling and resend your instruction.", text)
}

// DefaultsNotice tells the user which fallback values were applied to their request.
// It returns "" when the request used no defaults.
func DefaultsNotice(req trigger.Request) string {
	if !req.UsedDefaults() {
		return ""
	}

	var applied []string
	switch {
	case req.OwnerDefaulted:
		applied = append(applied, fmt.Sprintf("repository %s", req.Repository()))
	case req.RepoDefaulted:
		applied = append(applied, fmt.Sprintf("repository name %s", req.Repo))
	}
	if req.DaysDefaulted {
		applied = append(applied, fmt.Sprintf("a lookback of %s", pluralizeDays(req.Days)))
	}

	return fmt.Sprintf("Part of your request was missing or unreadable, so defaults were applied (%s). Summarizing open issues in %s updated in the last %s.",
		strings.Join(applied, " and "), req.Repository(), pluralizeDays(req.Days))
}

// pluralizeDays returns "N day" or "N days" with proper pluralization
func pluralizeDays(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
