package search

import (
	"sort"
	"strings"
	"unicode"
)

const (
	defaultContextRunes = 50
	maxContextRunes     = 200
)

// Highlight marks a matched range in a snippet, in rune offsets.
type Highlight struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	MatchedText string `json:"matched_text"`
}

// Snippet extracts a short excerpt of content centered on the first
// occurrence of any term, with all term occurrences inside the excerpt
// highlighted. Terms are matched case-insensitively. With no match the
// excerpt is the beginning of the content.
func Snippet(content string, terms []string, contextRunes int) (string, []Highlight) {
	if contextRunes <= 0 {
		contextRunes = defaultContextRunes
	}
	if contextRunes > maxContextRunes {
		contextRunes = maxContextRunes
	}

	runes := []rune(content)
	if len(runes) == 0 {
		return "", nil
	}

	matches := findMatches(runes, terms)
	if len(matches) == 0 {
		end := adjustToWordBoundary(runes, min(contextRunes*2, len(runes)))
		excerpt := string(runes[:end])
		if end < len(runes) {
			excerpt += "..."
		}
		return excerpt, nil
	}

	// Window around the earliest match.
	center := matches[0].Start
	start := max(center-contextRunes, 0)
	end := min(center+contextRunes, len(runes))
	start = adjustToWordBoundaryLeft(runes, start)
	end = adjustToWordBoundary(runes, end)

	excerpt := string(runes[start:end])
	prefix := 0
	if start > 0 {
		excerpt = "..." + excerpt
		prefix = 3
	}
	if end < len(runes) {
		excerpt += "..."
	}

	kept := make([]Highlight, 0, len(matches))
	for _, m := range matches {
		if m.Start < start || m.End > end {
			continue
		}
		kept = append(kept, Highlight{
			Start:       m.Start - start + prefix,
			End:         m.End - start + prefix,
			MatchedText: m.MatchedText,
		})
	}
	return excerpt, kept
}

// findMatches locates every term occurrence, sorted by position.
func findMatches(runes []rune, terms []string) []Highlight {
	lowered := strings.ToLower(string(runes))
	loweredRunes := []rune(lowered)

	var matches []Highlight
	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		tRunes := []rune(t)
		for i := 0; i+len(tRunes) <= len(loweredRunes); i++ {
			if string(loweredRunes[i:i+len(tRunes)]) == t {
				matches = append(matches, Highlight{
					Start:       i,
					End:         i + len(tRunes),
					MatchedText: string(runes[i : i+len(tRunes)]),
				})
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })
	return matches
}

// adjustToWordBoundary moves end left until it sits after a full word.
func adjustToWordBoundary(runes []rune, end int) int {
	if end >= len(runes) {
		return len(runes)
	}
	for end > 0 && !unicode.IsSpace(runes[end]) && !unicode.IsSpace(runes[end-1]) {
		end--
	}
	if end == 0 {
		// Single unbroken token, give up on the boundary.
		return min(len(runes), defaultContextRunes)
	}
	return end
}

// adjustToWordBoundaryLeft moves start right to the next word start.
func adjustToWordBoundaryLeft(runes []rune, start int) int {
	if start <= 0 {
		return 0
	}
	for start < len(runes) && !unicode.IsSpace(runes[start]) && !unicode.IsSpace(runes[start-1]) {
		start++
	}
	for start < len(runes) && unicode.IsSpace(runes[start]) {
		start++
	}
	return start
}
