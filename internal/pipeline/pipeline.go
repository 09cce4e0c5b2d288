// Package pipeline runs one source text through scan → extract → correct →
// rebuild. Each invocation owns its own records; the only shared state is
// the read-only language registry.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"neospeller/internal/comment"
	"neospeller/internal/language"
	"neospeller/internal/scanner"
)

// ErrResultMismatch is returned when the corrector answers with a different
// number of texts than it was sent. Reinsertion with a desynchronized
// result set would corrupt the output, so the invocation aborts instead.
var ErrResultMismatch = errors.New("correction result count mismatch")

// Corrector turns ordered comment texts into corrected texts of the same
// length and order, or fails the whole set.
type Corrector interface {
	Correct(ctx context.Context, texts []string) ([]string, error)
}

// Run corrects the comments of src and returns the rebuilt source. Output
// is all-or-nothing: any failure returns an empty string and the caller's
// original text stays untouched. Inputs with no comments skip the corrector
// entirely.
func Run(ctx context.Context, src string, desc *language.Descriptor, c Corrector) (string, error) {
	segs := scanner.Scan(src, desc)
	recs := comment.Extract(src, segs)
	if len(recs) == 0 {
		log.Debug().Str("language", desc.Name).Msg("No comments found")
		return src, nil
	}

	texts := comment.Texts(recs)
	log.Debug().Str("language", desc.Name).Int("comments", len(texts)).Msg("Extracted comments")

	corrected, err := c.Correct(ctx, texts)
	if err != nil {
		return "", fmt.Errorf("correct comments: %w", err)
	}
	if len(corrected) != len(texts) {
		return "", fmt.Errorf("sent %d comments, received %d: %w", len(texts), len(corrected), ErrResultMismatch)
	}

	out, err := comment.Rebuild(src, recs, corrected)
	if err != nil {
		return "", fmt.Errorf("rebuild source: %w", err)
	}
	return out, nil
}
