// Package scanner classifies raw source text into code, string, and comment
// ranges using a language descriptor. It is a single linear pass with an
// explicit state machine; comment and string grammars are regular, so no AST
// or recursive descent is needed.
package scanner

import (
	"strings"

	"neospeller/internal/language"
)

// Class is the classification of a scanned byte range.
type Class int

const (
	Code Class = iota
	String
	Comment
)

// Segment is a half-open byte range [Start, End) of the source text with a
// single classification. Segments are emitted in strictly increasing order
// and never overlap.
type Segment struct {
	Start int
	End   int
	Class Class
	// Open is the comment marker that started a Comment segment.
	Open string
	// Close is the closing marker actually present in the text. Empty for
	// line comments and for block comments left open at end of input.
	Close string
	// Block distinguishes block comments from line comments.
	Block bool
}

// candidate is a marker match at the current offset. Lower class rank wins a
// length tie: string delimiters mask comment markers, block markers shadow
// their line-comment prefixes (e.g. Lua's --[[ over --).
type candidate struct {
	length int
	rank   int
	str    *language.StringDelim
	block  *language.BlockDelim
	line   string
}

const (
	rankString = iota
	rankBlock
	rankLine
)

// Scan classifies src into an ordered list of segments. Unterminated block
// comments extend to end of input and stay comments; an unterminated string
// reverts the remaining text to code so a single stray quote cannot swallow
// the rest of the file as one literal.
func Scan(src string, desc *language.Descriptor) []Segment {
	if desc.Plain {
		if len(src) == 0 {
			return nil
		}
		return []Segment{{Start: 0, End: len(src), Class: Comment}}
	}

	var segs []Segment
	codeStart := 0
	flushCode := func(end int) {
		if end > codeStart {
			segs = append(segs, Segment{Start: codeStart, End: end, Class: Code})
		}
	}

	i := 0
	for i < len(src) {
		m := matchMarker(src, i, desc)
		if m == nil {
			i++
			continue
		}

		switch m.rank {
		case rankString:
			end, closed := stringEnd(src, i+len(m.str.Open), m.str)
			if !closed {
				// Unterminated literal: everything from here is code.
				i = len(src)
				continue
			}
			flushCode(i)
			segs = append(segs, Segment{Start: i, End: end, Class: String})
			codeStart, i = end, end

		case rankBlock:
			end, closed := blockEnd(src, i+len(m.block.Open), m.block)
			closeMark := m.block.Close
			if !closed {
				closeMark = ""
			}
			flushCode(i)
			segs = append(segs, Segment{
				Start: i, End: end, Class: Comment,
				Open: m.block.Open, Close: closeMark, Block: true,
			})
			codeStart, i = end, end

		case rankLine:
			end := i + len(m.line)
			for end < len(src) && src[end] != '\n' {
				end++
			}
			// Leave a CR before the newline outside the span so CRLF
			// files survive reinsertion untouched.
			if end > i+len(m.line) && src[end-1] == '\r' {
				end--
			}
			flushCode(i)
			segs = append(segs, Segment{
				Start: i, End: end, Class: Comment, Open: m.line,
			})
			codeStart, i = end, end
		}
	}

	flushCode(len(src))
	return segs
}

// matchMarker finds the winning marker at offset i: longest match first,
// ties broken by rank (string, then block, then line), then declaration
// order within the descriptor.
func matchMarker(src string, i int, desc *language.Descriptor) *candidate {
	var best *candidate
	consider := func(c candidate) {
		if best == nil || c.length > best.length ||
			(c.length == best.length && c.rank < best.rank) {
			cc := c
			best = &cc
		}
	}

	rest := src[i:]
	for idx := range desc.Strings {
		sd := &desc.Strings[idx]
		if strings.HasPrefix(rest, sd.Open) {
			consider(candidate{length: len(sd.Open), rank: rankString, str: sd})
		}
	}
	for idx := range desc.BlockComments {
		bd := &desc.BlockComments[idx]
		if strings.HasPrefix(rest, bd.Open) {
			consider(candidate{length: len(bd.Open), rank: rankBlock, block: bd})
		}
	}
	for _, lm := range desc.LineComments {
		if strings.HasPrefix(rest, lm) {
			consider(candidate{length: len(lm), rank: rankLine, line: lm})
		}
	}
	return best
}

// stringEnd scans from j for the closing delimiter, honoring the escape
// byte. Returns the offset just past the close and whether it was found.
func stringEnd(src string, j int, sd *language.StringDelim) (int, bool) {
	for j < len(src) {
		if sd.Escape != 0 && src[j] == sd.Escape {
			j += 2
			continue
		}
		if strings.HasPrefix(src[j:], sd.Close) {
			return j + len(sd.Close), true
		}
		j++
	}
	return len(src), false
}

// blockEnd scans from j for the closing marker, tracking nesting depth when
// the language allows it. Returns the offset just past the final close and
// whether the comment was terminated.
func blockEnd(src string, j int, bd *language.BlockDelim) (int, bool) {
	depth := 1
	for j < len(src) {
		if strings.HasPrefix(src[j:], bd.Close) {
			depth--
			j += len(bd.Close)
			if depth == 0 {
				return j, true
			}
			continue
		}
		if bd.Nested && strings.HasPrefix(src[j:], bd.Open) {
			depth++
			j += len(bd.Open)
			continue
		}
		j++
	}
	return len(src), false
}
