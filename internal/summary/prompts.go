package summary

import (
	"fmt"

	"github.com/Attamusc/issue-summarizer/internal/issue"
)

const closingInstruction = "concentrate on the principal arguments, suggested solutions, and areas of consensus or disagreement among the participants. From these elements, generate a concise summary of the entire issue to inform the next course of action."

// MapPrompt asks for an interim summary of one chunk of the discussion
func MapPrompt(title, chunkText string) string {
	return fmt.Sprintf("Given the issue titled '%s' and a particular segment of body or comment text '%s', focus on extracting the central arguments, proposed solutions, and instances of agreement or conflict among the participants. Generate an interim summary capturing the essential information in this section. This will be used later to form a comprehensive summary of the entire discussion.",
		title, chunkText)
}

// ReducePrompt folds the concatenated interim summaries into one final request
func ReducePrompt(iss issue.Issue, interim string) string {
	return fmt.Sprintf("User '%s', in the role of '%s', has filed an issue titled '%s', labeled as '%s'. The key information you've extracted from the issue's body text and comments in segmented form are: %s. Concentrate on the principal arguments, suggested solutions, and areas of consensus or disagreement among the participants. From these elements, generate a concise summary of the entire issue to inform the next course of action.",
		iss.CreatorLogin, iss.CreatorRole, iss.Title, iss.LabelList(), interim)
}

// DirectPrompt asks for a summary of a corpus small enough to send whole
func DirectPrompt(corpus string) string {
	return fmt.Sprintf("%s, %s", corpus, closingInstruction)
}
