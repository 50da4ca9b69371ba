// Package search maintains the in-memory full-text index over posts and
// the tokenizer registry used to build it.
package search

import (
	"strings"
	"sync"
	"unicode"

	qerrors "github.com/usebloggy/bloggy/server/internal/errors"
)

// Tokenizer segments text into searchable tokens. Implementations must be
// safe for concurrent use.
type Tokenizer interface {
	// Name returns the registry name of the tokenizer.
	Name() string
	// Segment splits text into lowercased tokens.
	Segment(text string) []string
}

// DefaultTokenizerName is used when no tokenizer is configured.
const DefaultTokenizerName = "unicode"

var (
	registryMu sync.RWMutex
	registry   = map[string]Tokenizer{}
)

// RegisterTokenizer adds a tokenizer to the registry under its name.
// Later registrations replace earlier ones.
func RegisterTokenizer(t Tokenizer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t.Name()] = t
}

// LookupTokenizer resolves a tokenizer by name. An empty name resolves to
// the default. The module path is a configuration-time binding only:
// tokenizers are compiled in and picked from the registry, never loaded
// from disk, so a path pointing at an unregistered name is an error.
func LookupTokenizer(name string) (Tokenizer, error) {
	if name == "" {
		name = DefaultTokenizerName
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := registry[name]
	if !ok {
		return nil, qerrors.TokenizerUnavailable(name)
	}
	return t, nil
}

func init() {
	RegisterTokenizer(unicodeTokenizer{})
	RegisterTokenizer(bigramTokenizer{})
}

// unicodeTokenizer splits on anything that is not a letter or digit.
// Suitable for whitespace-delimited languages.
type unicodeTokenizer struct{}

func (unicodeTokenizer) Name() string { return "unicode" }

func (unicodeTokenizer) Segment(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// bigramTokenizer handles languages without whitespace word boundaries.
// Runs of CJK runes are emitted as overlapping bigrams; everything else
// falls back to unicode segmentation.
type bigramTokenizer struct{}

func (bigramTokenizer) Name() string { return "bigram" }

func (bigramTokenizer) Segment(text string) []string {
	var tokens []string
	var word []rune
	var cjk []rune

	flushWord := func() {
		if len(word) > 0 {
			tokens = append(tokens, string(word))
			word = word[:0]
		}
	}
	flushCJK := func() {
		if len(cjk) == 1 {
			tokens = append(tokens, string(cjk))
		} else {
			for i := 0; i+1 < len(cjk); i++ {
				tokens = append(tokens, string(cjk[i:i+2]))
			}
		}
		cjk = cjk[:0]
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case isCJK(r):
			flushWord()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if len(cjk) > 0 {
				flushCJK()
			}
			word = append(word, r)
		default:
			flushWord()
			if len(cjk) > 0 {
				flushCJK()
			}
		}
	}
	flushWord()
	if len(cjk) > 0 {
		flushCJK()
	}
	return tokens
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
