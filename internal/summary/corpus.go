// Package summary implements the token-budgeted map-reduce summarization of one issue.
package summary

import (
	"fmt"

	"github.com/Attamusc/issue-summarizer/internal/issue"
	"github.com/Attamusc/issue-summarizer/internal/tokenizer"
)

// TokenStream is the flat, ordered token sequence of an issue's corpus.
// It is owned by a single pipeline run and never shared.
type TokenStream struct {
	tokens []int
}

// Append adds tokens to the end of the stream
func (s *TokenStream) Append(tokens ...int) {
	s.tokens = append(s.tokens, tokens...)
}

// Len returns the total token count
func (s TokenStream) Len() int {
	return len(s.tokens)
}

// Tokens returns the underlying token ids
func (s TokenStream) Tokens() []int {
	return s.tokens
}

// IssueSentence renders the issue metadata and body as one sentence
func IssueSentence(iss issue.Issue) string {
	return fmt.Sprintf("User '%s', who holds the role of '%s', has submitted an issue titled '%s', labeled as '%s', with the following post: '%s'.",
		iss.CreatorLogin, iss.CreatorRole, iss.Title, iss.LabelList(), iss.Body)
}

// CommentSentence renders one comment as "{author} commented: {body}"
func CommentSentence(c issue.Comment) string {
	return fmt.Sprintf("%s commented: %s", c.Author, c.Body)
}

// Assemble builds the token stream for an issue and its comments.
// Every sentence is encoded on its own and appended in encounter order.
func Assemble(tok tokenizer.Tokenizer, iss issue.Issue, comments []issue.Comment) TokenStream {
	var stream TokenStream
	stream.Append(tok.Encode(IssueSentence(iss))...)
	for _, c := range comments {
		stream.Append(tok.Encode(CommentSentence(c))...)
	}
	return stream
}
