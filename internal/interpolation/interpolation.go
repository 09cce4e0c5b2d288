// Package interpolation shields tokens the correction service must not
// reword — format verbs and code identifiers inside comment text — behind
// opaque placeholders, and restores them afterwards.
package interpolation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Mapping records one protected token and the placeholder that replaced it.
type Mapping struct {
	Original    string
	Placeholder string
}

// patterns match tokens that must survive correction byte for byte.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\{[a-zA-Z_][a-zA-Z0-9_]*\}`),           // ${value}
	regexp.MustCompile(`\{[0-9]+\}`),                             // {0}, {1}
	regexp.MustCompile(`%[-+0-9]*\.?[0-9]*[dsfieEgGxXoubcpqv]`),  // printf verbs
	regexp.MustCompile(`%%`),                                     // escaped percent
	regexp.MustCompile(`\b[A-Za-z][A-Za-z0-9]*_[A-Za-z0-9_]+\b`), // snake_case identifiers
}

type span struct {
	start, end int
}

// Protect replaces every protected token in text with a {{var_N}}
// placeholder and returns the mappings needed to undo it. Placeholders are
// numbered left to right so the service sees stable, meaningless tokens.
func Protect(text string) (string, []Mapping) {
	var spans []span
	for _, p := range patterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			spans = append(spans, span{start: loc[0], end: loc[1]})
		}
	}
	if len(spans) == 0 {
		return text, nil
	}

	// Earliest start first; on equal starts the longer match wins so
	// overlap filtering keeps the whole token.
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	var kept []span
	lastEnd := -1
	for _, s := range spans {
		if s.start >= lastEnd {
			kept = append(kept, s)
			lastEnd = s.end
		}
	}

	mappings := make([]Mapping, len(kept))
	var b strings.Builder
	pos := 0
	for i, s := range kept {
		placeholder := fmt.Sprintf("{{var_%d}}", i+1)
		mappings[i] = Mapping{Original: text[s.start:s.end], Placeholder: placeholder}
		b.WriteString(text[pos:s.start])
		b.WriteString(placeholder)
		pos = s.end
	}
	b.WriteString(text[pos:])

	return b.String(), mappings
}

// Restore swaps placeholders back for their original tokens.
func Restore(corrected string, mappings []Mapping) string {
	result := corrected
	for _, m := range mappings {
		result = strings.Replace(result, m.Placeholder, m.Original, 1)
	}
	return result
}
