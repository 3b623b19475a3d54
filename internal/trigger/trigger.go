// Package trigger recognises chat messages asking for issue summaries.
package trigger

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Defaults used when a message omits or garbles part of the request
const (
	DefaultWord  = "flows summarize"
	DefaultOwner = "flows-network"
	DefaultRepo  = "haiku-platform"
	DefaultDays  = 7
)

// Request is a parsed trigger message
type Request struct {
	Owner string
	Repo  string
	Days  int

	// Set when the matching part of the message was missing or unparseable
	OwnerDefaulted bool
	RepoDefaulted  bool
	DaysDefaulted  bool
}

// Repository returns "owner/repo"
func (r Request) Repository() string {
	return r.Owner + "/" + r.Repo
}

// UsedDefaults reports whether any fallback value was applied
func (r Request) UsedDefaults() bool {
	return r.OwnerDefaulted || r.RepoDefaulted || r.DaysDefaulted
}

// Since returns the start of the lookback window relative to now
func (r Request) Since(now time.Time) time.Time {
	return now.AddDate(0, 0, -r.Days)
}

// Parser matches the trigger word and extracts the repository and day count
type Parser struct {
	Word         string
	DefaultOwner string
	DefaultRepo  string
	DefaultDays  int
}

// NewParser returns a parser using the built-in defaults for any empty field
func NewParser(word, owner, repo string, days int) Parser {
	p := Parser{Word: word, DefaultOwner: owner, DefaultRepo: repo, DefaultDays: days}
	if strings.TrimSpace(p.Word) == "" {
		p.Word = DefaultWord
	}
	if p.DefaultOwner == "" {
		p.DefaultOwner = DefaultOwner
	}
	if p.DefaultRepo == "" {
		p.DefaultRepo = DefaultRepo
	}
	if p.DefaultDays <= 0 {
		p.DefaultDays = DefaultDays
	}
	return p
}

// namePattern matches a GitHub owner or repository name
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Parse reports whether text is a trigger message and, if so, what it asks for.
// Accepted forms: "<word> owner/repo 7", "<word> https://github.com/owner/repo 7",
// "<word> owner 3", "<word> owner/repo" and "<word>".
func (p Parser) Parse(text string) (Request, bool) {
	fields := strings.Fields(text)
	wordFields := strings.Fields(strings.ToLower(p.Word))
	if len(wordFields) == 0 || len(fields) < len(wordFields) {
		return Request{}, false
	}
	for i, w := range wordFields {
		if strings.ToLower(fields[i]) != w {
			return Request{}, false
		}
	}
	rest := fields[len(wordFields):]

	req := Request{Days: p.DefaultDays, DaysDefaulted: true}

	if len(rest) > 0 {
		if days, err := strconv.Atoi(rest[len(rest)-1]); err == nil {
			if days > 0 {
				req.Days = days
				req.DaysDefaulted = false
			}
			rest = rest[:len(rest)-1]
		}
	}

	var owner, repo string
	if len(rest) > 0 {
		owner, repo = splitRepository(rest[0])
	}
	if owner == "" {
		// a bad owner invalidates the repository too
		owner, repo = "", ""
	}

	req.Owner, req.Repo = owner, repo
	if req.Owner == "" {
		req.Owner = p.DefaultOwner
		req.OwnerDefaulted = true
	}
	if req.Repo == "" {
		req.Repo = p.DefaultRepo
		req.RepoDefaulted = true
	}

	return req, true
}

// splitRepository extracts owner and repo from "owner/repo", "owner", a GitHub URL,
// or a Slack-formatted link "<https://github.com/owner/repo|label>".
// Invalid parts come back empty.
func splitRepository(token string) (string, string) {
	token = strings.TrimSuffix(strings.TrimPrefix(token, "<"), ">")
	if i := strings.Index(token, "|"); i >= 0 {
		token = token[:i]
	}

	if strings.Contains(token, "://") {
		parsed, err := url.Parse(token)
		if err != nil {
			return "", ""
		}
		token = strings.Trim(parsed.Path, "/")
	} else {
		token = strings.TrimPrefix(token, "github.com/")
	}

	parts := strings.Split(strings.Trim(token, "/"), "/")
	owner := parts[0]
	if !namePattern.MatchString(owner) {
		return "", ""
	}

	repo := ""
	if len(parts) > 1 {
		repo = strings.TrimSuffix(parts[1], ".git")
		if !namePattern.MatchString(repo) {
			repo = ""
		}
	}
	return owner, repo
}
