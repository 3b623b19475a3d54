// Package issue holds the GitHub issue and comment values passed between the search, the summarizer and the emitter.
package issue

import (
	"fmt"
	"strings"
)

// Ref identifies a GitHub issue
type Ref struct {
	Owner  string
	Repo   string
	Number int
}

// String returns a string representation of the Ref
func (ref Ref) String() string {
	return fmt.Sprintf("%s/%s#%d", ref.Owner, ref.Repo, ref.Number)
}

// Issue is the read-only view of one open issue returned by the search.
// It is built once per fetched issue and discarded after its summary is emitted.
type Issue struct {
	Owner        string
	Repo         string
	Number       int
	Title        string
	CreatorLogin string
	CreatorRole  string   // GitHub author association, e.g. "MEMBER" or "NONE"
	Labels       []string // label names in API order
	Body         string
	HTMLURL      string
}

// Ref returns the issue reference used for follow-up API calls
func (i Issue) Ref() Ref {
	return Ref{Owner: i.Owner, Repo: i.Repo, Number: i.Number}
}

// LabelList returns the labels joined by ", "
func (i Issue) LabelList() string {
	return strings.Join(i.Labels, ", ")
}

// ConversationID returns the identifier shared by every completion request made for this issue.
// It carries owner and repo because issue numbers repeat across repositories.
func (i Issue) ConversationID() string {
	return i.Ref().String()
}

// Comment represents a single issue comment in fetch order
type Comment struct {
	Author string
	Body   string
}
