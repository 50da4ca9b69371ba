package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/usebloggy/bloggy/server/internal/errors"
)

func TestLookupTokenizer(t *testing.T) {
	t.Run("DefaultForEmptyName", func(t *testing.T) {
		tok, err := LookupTokenizer("")
		require.NoError(t, err)
		assert.Equal(t, "unicode", tok.Name())
	})

	t.Run("Registered", func(t *testing.T) {
		tok, err := LookupTokenizer("bigram")
		require.NoError(t, err)
		assert.Equal(t, "bigram", tok.Name())
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := LookupTokenizer("bogus")
		require.Error(t, err)
		assert.Equal(t, qerrors.ErrCodeTokenizerUnavailable, qerrors.CodeOf(err))
	})
}

func TestUnicodeTokenizer(t *testing.T) {
	tok, err := LookupTokenizer("unicode")
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"Simple", "Hello World", []string{"hello", "world"}},
		{"Punctuation", "go, go: GO!", []string{"go", "go", "go"}},
		{"Digits", "v2 release", []string{"v2", "release"}},
		{"Empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Segment(tt.input)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBigramTokenizer(t *testing.T) {
	tok, err := LookupTokenizer("bigram")
	require.NoError(t, err)

	t.Run("CJKRunBecomesBigrams", func(t *testing.T) {
		got := tok.Segment("今天天气")
		assert.Equal(t, []string{"今天", "天天", "天气"}, got)
	})

	t.Run("SingleCJKRune", func(t *testing.T) {
		got := tok.Segment("水")
		assert.Equal(t, []string{"水"}, got)
	})

	t.Run("MixedLatinAndCJK", func(t *testing.T) {
		got := tok.Segment("Go语言 rocks")
		assert.Equal(t, []string{"go", "语言", "rocks"}, got)
	})

	t.Run("LatinOnly", func(t *testing.T) {
		got := tok.Segment("plain text")
		assert.Equal(t, []string{"plain", "text"}, got)
	})
}

type staticTokenizer struct{}

func (staticTokenizer) Name() string            { return "static" }
func (staticTokenizer) Segment(string) []string { return []string{"fixed"} }

func TestRegisterTokenizer(t *testing.T) {
	RegisterTokenizer(staticTokenizer{})

	tok, err := LookupTokenizer("static")
	require.NoError(t, err)
	assert.Equal(t, []string{"fixed"}, tok.Segment("anything"))
}
