package queryengine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// BuildKey derives the deterministic cache key for a spec. Two specs that
// differ only in filter or term ordering, or in trivial case/whitespace of
// text terms, produce the same key.
func BuildKey(spec *Spec) string {
	components := []string{"op:" + string(spec.Operation)}

	filters := make([]string, 0, len(spec.Filters))
	for _, f := range spec.Filters {
		values := make([]string, len(f.Values))
		copy(values, f.Values)
		if f.Field == FieldContent {
			for i, v := range values {
				values[i] = normalizeText(v)
			}
		}
		sort.Strings(values)
		filters = append(filters, fmt.Sprintf("f:%s:%s:%s", f.Field, f.Operator, strings.Join(values, ",")))
	}
	sort.Strings(filters)
	components = append(components, filters...)

	terms := normalizeTerms(spec.TextTerms)
	sort.Strings(terms)
	if len(terms) > 0 {
		components = append(components, "t:"+strings.Join(terms, ","))
	}

	components = append(components,
		fmt.Sprintf("limit:%d", spec.Limit),
		fmt.Sprintf("offset:%d", spec.Offset),
	)

	h := sha256.Sum256([]byte(strings.Join(components, "|")))
	return "q:" + hex.EncodeToString(h[:])[:32]
}

// normalizeText lowercases and collapses internal whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// normalizeTerms normalizes each term and drops empty ones.
func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if t := normalizeText(term); t != "" {
			out = append(out, t)
		}
	}
	return out
}
