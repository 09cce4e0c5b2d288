// Package comment turns scanner output into comment records and splices
// corrected text back into the original source.
package comment

import (
	"errors"
	"fmt"
	"strings"

	"neospeller/internal/scanner"
)

// ErrSpanOrder is returned by Rebuild when record spans overlap, run
// backwards, or fall outside the source text.
var ErrSpanOrder = errors.New("comment spans overlap or are out of order")

// Kind classifies a comment record.
type Kind int

const (
	LineComment Kind = iota
	BlockComment
)

// Span is a half-open byte range [Start, End) into the original source.
type Span struct {
	Start int
	End   int
}

// Record is one extracted comment. Open+Text+Close reproduces the original
// span byte for byte, so reinsertion with unchanged text is the identity.
type Record struct {
	Span Span
	Kind Kind
	// Open and Close are the delimiters as they appear in the source. Close
	// is empty for line comments and unterminated block comments.
	Open  string
	Close string
	// Text is the inner comment text with delimiters stripped.
	Text string
}

// Extract filters comment segments out of a scan and strips their
// delimiters. Adjacent line comments stay separate records so reinsertion
// can restore exact line boundaries.
func Extract(src string, segs []scanner.Segment) []Record {
	var recs []Record
	for _, s := range segs {
		if s.Class != scanner.Comment {
			continue
		}
		kind := LineComment
		if s.Block {
			kind = BlockComment
		}
		recs = append(recs, Record{
			Span:  Span{Start: s.Start, End: s.End},
			Kind:  kind,
			Open:  s.Open,
			Close: s.Close,
			Text:  src[s.Start+len(s.Open) : s.End-len(s.Close)],
		})
	}
	return recs
}

// Texts returns the inner texts of records in order. This is exactly what
// gets sent for correction; no surrounding code ever leaves the process.
func Texts(recs []Record) []string {
	texts := make([]string, len(recs))
	for i, r := range recs {
		texts[i] = r.Text
	}
	return texts
}

// Rebuild produces the final source: bytes outside record spans are copied
// verbatim, each span becomes Open + corrected[i] + Close. Records must be
// strictly ordered and non-overlapping; a violation means an upstream bug or
// a misbehaving corrector, and nothing is emitted.
func Rebuild(src string, recs []Record, corrected []string) (string, error) {
	if len(recs) != len(corrected) {
		return "", fmt.Errorf("rebuild: %d records but %d corrected texts", len(recs), len(corrected))
	}

	var b strings.Builder
	pos := 0
	for i, r := range recs {
		if r.Span.Start < pos || r.Span.End < r.Span.Start || r.Span.End > len(src) {
			return "", fmt.Errorf("record %d span [%d,%d): %w", i, r.Span.Start, r.Span.End, ErrSpanOrder)
		}
		b.WriteString(src[pos:r.Span.Start])
		b.WriteString(r.Open)
		b.WriteString(corrected[i])
		b.WriteString(r.Close)
		pos = r.Span.End
	}
	b.WriteString(src[pos:])
	return b.String(), nil
}
