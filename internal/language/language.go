package language

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnsupported is returned by Lookup for tags not in the registry.
var ErrUnsupported = errors.New("unsupported language")

// BlockDelim is a block-comment delimiter pair.
type BlockDelim struct {
	// Open and Close are the literal delimiter markers.
	Open  string
	Close string
	// Nested marks languages where an inner Open increments nesting depth.
	Nested bool
}

// StringDelim is a string-literal delimiter pair.
type StringDelim struct {
	Open  string
	Close string
	// Escape is the escape byte inside the literal (0 if the language has none
	// for this delimiter, e.g. Go raw strings or bash single quotes).
	Escape byte
}

// Descriptor holds the comment grammar for one supported language.
// Descriptors are immutable; the registry is read-only after init.
type Descriptor struct {
	// Name is the canonical lowercase tag.
	Name string
	// Plain marks the degenerate grammar where the entire input is one
	// comment with no delimiters (plain text files).
	Plain bool
	// LineComments are line-comment markers, longest first.
	LineComments []string
	// BlockComments are block delimiter pairs, longest open marker first.
	BlockComments []BlockDelim
	// Strings are string-literal delimiters, longest open marker first.
	Strings []StringDelim
}

// registry maps language tags to their grammars. Hard-coded on purpose: the
// set of supported languages is small, closed, and rarely changes.
var registry = map[string]*Descriptor{
	"python": {
		Name:         "python",
		LineComments: []string{"#"},
		BlockComments: []BlockDelim{
			{Open: `"""`, Close: `"""`},
			{Open: "'''", Close: "'''"},
		},
		Strings: []StringDelim{
			{Open: `"`, Close: `"`, Escape: '\\'},
			{Open: "'", Close: "'", Escape: '\\'},
		},
	},
	"rust": {
		Name:          "rust",
		LineComments:  []string{"//"},
		BlockComments: []BlockDelim{{Open: "/*", Close: "*/", Nested: true}},
		Strings: []StringDelim{
			{Open: `"`, Close: `"`, Escape: '\\'},
		},
	},
	"go": {
		Name:          "go",
		LineComments:  []string{"//"},
		BlockComments: []BlockDelim{{Open: "/*", Close: "*/"}},
		Strings: []StringDelim{
			{Open: `"`, Close: `"`, Escape: '\\'},
			{Open: "`", Close: "`"},
			{Open: "'", Close: "'", Escape: '\\'},
		},
	},
	"javascript": {
		Name:          "javascript",
		LineComments:  []string{"//"},
		BlockComments: []BlockDelim{{Open: "/*", Close: "*/"}},
		Strings: []StringDelim{
			{Open: `"`, Close: `"`, Escape: '\\'},
			{Open: "'", Close: "'", Escape: '\\'},
			{Open: "`", Close: "`", Escape: '\\'},
		},
	},
	"css": {
		Name:          "css",
		LineComments:  []string{"//"},
		BlockComments: []BlockDelim{{Open: "/*", Close: "*/"}},
		Strings: []StringDelim{
			{Open: `"`, Close: `"`, Escape: '\\'},
			{Open: "'", Close: "'", Escape: '\\'},
		},
	},
	"c": {
		Name:          "c",
		LineComments:  []string{"//"},
		BlockComments: []BlockDelim{{Open: "/*", Close: "*/"}},
		Strings: []StringDelim{
			{Open: `"`, Close: `"`, Escape: '\\'},
			{Open: "'", Close: "'", Escape: '\\'},
		},
	},
	"lua": {
		Name:         "lua",
		LineComments: []string{"--"},
		BlockComments: []BlockDelim{
			{Open: "--[[", Close: "]]"},
		},
		Strings: []StringDelim{
			{Open: "[[", Close: "]]"},
			{Open: `"`, Close: `"`, Escape: '\\'},
			{Open: "'", Close: "'", Escape: '\\'},
		},
	},
	"bash": {
		Name:         "bash",
		LineComments: []string{"#"},
		Strings: []StringDelim{
			{Open: `"`, Close: `"`, Escape: '\\'},
			{Open: "'", Close: "'"},
		},
	},
	"text": {
		Name:  "text",
		Plain: true,
	},
}

// Lookup resolves a language tag to its descriptor. Tags are matched
// case-insensitively with surrounding whitespace ignored. Unknown tags are a
// configuration error; there is no fallback grammar.
func Lookup(tag string) (*Descriptor, error) {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	desc, ok := registry[normalized]
	if !ok {
		return nil, fmt.Errorf("language %q (supported: %s): %w",
			tag, strings.Join(Tags(), ", "), ErrUnsupported)
	}
	return desc, nil
}

// Tags returns the supported language tags in sorted order.
func Tags() []string {
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
