package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWords_Encode(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{name: "empty text", text: "", expected: 0},
		{name: "single word", text: "hello", expected: 1},
		{name: "words with trailing space", text: "hello world ", expected: 2},
		{name: "leading whitespace is its own token", text: "  hello world", expected: 3},
		{name: "newlines count as whitespace", text: "line one\nline two", expected: 4},
		{name: "whitespace only", text: " \t\n", expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWords()
			assert.Len(t, w.Encode(tt.text), tt.expected)
		})
	}
}

func TestWords_RoundTrip(t *testing.T) {
	texts := []string{
		"",
		"User 'octocat', who holds the role of 'MEMBER', has submitted an issue titled 'Crash on start', labeled as 'bug, p1', with the following post: ''.",
		"hubot commented: I can reproduce this on  macOS\n\nwith two blank lines",
		"   leading and trailing   ",
		"unicode: naïve café 日本語",
	}

	w := NewWords()
	for _, text := range texts {
		tokens := w.Encode(text)
		assert.Equal(t, text, w.Decode(tokens))
		assert.Equal(t, tokens, w.Encode(w.Decode(tokens)))
	}
}

func TestWords_StableIDs(t *testing.T) {
	w := NewWords()
	first := w.Encode("alpha beta alpha ")
	require.Len(t, first, 3)

	// "alpha " appears twice with identical trailing whitespace
	assert.Equal(t, first[0], first[2])
	assert.NotEqual(t, first[0], first[1])

	// ids survive across calls
	assert.Equal(t, first[:1], w.Encode("alpha "))
}

func TestWords_DecodeSkipsUnknownIDs(t *testing.T) {
	w := NewWords()
	tokens := w.Encode("known ")
	assert.Equal(t, "known ", w.Decode(append(tokens, 99, -1)))
}

func TestTiktoken_RoundTrip(t *testing.T) {
	tok, err := NewTiktoken(DefaultEncoding)
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}

	text := "alice commented: the fix in #42 works for me, but the retry loop still spins."
	tokens := tok.Encode(text)
	require.NotEmpty(t, tokens)
	assert.Less(t, len(tokens), len(text))
	assert.Equal(t, text, tok.Decode(tokens))
}

func TestWords_ForkHasOwnVocabulary(t *testing.T) {
	parent := NewWords()
	parent.Encode("alpha beta")

	child := Fresh(parent)
	require.IsType(t, &Words{}, child)

	tokens := child.Encode("gamma delta epsilon")
	assert.Equal(t, "gamma delta epsilon", child.Decode(tokens))
	assert.Equal(t, 2, parent.Size())
	assert.Equal(t, 3, child.(*Words).Size())
}

func TestFresh_StatelessTokenizerIsReturnedAsIs(t *testing.T) {
	var tok Tokenizer = &Tiktoken{}
	assert.Same(t, tok, Fresh(tok))
}
