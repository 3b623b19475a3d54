package summary

import "fmt"

// DefaultTokenBudget is the largest chunk sent in one summarization request
const DefaultTokenBudget = 2800

// Chunk is a contiguous token range [Start, End) of a TokenStream
type Chunk struct {
	Index  int
	Start  int
	End    int
	Tokens []int
}

// Len returns the number of tokens in the chunk
func (c Chunk) Len() int {
	return len(c.Tokens)
}

// Plan splits stream into budget-sized chunks.
// A stream that fits the budget, including an empty one, yields exactly one chunk.
// Otherwise chunks are taken front to back, each min(remaining, budget) tokens long.
func Plan(stream TokenStream, budget int) ([]Chunk, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("token budget must be > 0, got %d", budget)
	}

	tokens := stream.Tokens()
	if len(tokens) <= budget {
		return []Chunk{{Index: 0, Start: 0, End: len(tokens), Tokens: tokens}}, nil
	}

	chunks := make([]Chunk, 0, (len(tokens)+budget-1)/budget)
	for start := 0; start < len(tokens); start += budget {
		end := min(start+budget, len(tokens))
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Start:  start,
			End:    end,
			Tokens: tokens[start:end:end],
		})
	}
	return chunks, nil
}

// Split reports whether the plan needs the map phase
func Split(chunks []Chunk) bool {
	return len(chunks) > 1
}
