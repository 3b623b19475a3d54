// Package tokenizer measures text in model tokens and reconstructs text from token ids.
package tokenizer

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the vocabulary used by gpt-3.5/gpt-4 class chat models
const DefaultEncoding = "cl100k_base"

// Tokenizer converts text to and from a token sequence.
// Decode(Encode(s)) must return s for any text the pipeline produces.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Forker is implemented by tokenizers whose state grows with the text they see
type Forker interface {
	Fork() Tokenizer
}

// Fresh returns an unused copy of t when t is a Forker, and t itself otherwise.
// Callers take one per unit of work so a long-running process does not keep
// every word it has ever encoded.
func Fresh(t Tokenizer) Tokenizer {
	if f, ok := t.(Forker); ok {
		return f.Fork()
	}
	return t
}

// Tiktoken wraps a tiktoken BPE encoding
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the named encoding. The BPE ranks are downloaded on first use
// and cached under TIKTOKEN_CACHE_DIR when that variable is set.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer encoding %s: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// Encode tokenizes text without special-token handling
func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode converts token ids back into text
func (t *Tiktoken) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// wordPattern splits text into runs of non-space characters each carrying its trailing whitespace.
// Leading whitespace becomes a token of its own so no byte is ever dropped.
var wordPattern = regexp.MustCompile(`^\s+|\S+\s*`)

// Words is a deterministic word-level tokenizer: every whitespace-separated word
// (with its trailing whitespace) is one token. Ids are assigned on first sight,
// so the mapping is stable for the lifetime of the value.
type Words struct {
	mu    sync.Mutex
	ids   map[string]int
	vocab []string
}

// NewWords creates an empty word-level tokenizer
func NewWords() *Words {
	return &Words{ids: make(map[string]int)}
}

// Fork returns an empty Words with its own vocabulary
func (w *Words) Fork() Tokenizer {
	return NewWords()
}

// Size reports how many distinct words have been assigned ids
func (w *Words) Size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.vocab)
}

// Encode splits text into word tokens
func (w *Words) Encode(text string) []int {
	w.mu.Lock()
	defer w.mu.Unlock()

	pieces := wordPattern.FindAllString(text, -1)
	tokens := make([]int, 0, len(pieces))
	for _, piece := range pieces {
		id, ok := w.ids[piece]
		if !ok {
			id = len(w.vocab)
			w.ids[piece] = id
			w.vocab = append(w.vocab, piece)
		}
		tokens = append(tokens, id)
	}
	return tokens
}

// Decode joins the words behind the token ids. Unknown ids are skipped.
func (w *Words) Decode(tokens []int) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var b strings.Builder
	for _, id := range tokens {
		if id >= 0 && id < len(w.vocab) {
			b.WriteString(w.vocab[id])
		}
	}
	return b.String()
}
