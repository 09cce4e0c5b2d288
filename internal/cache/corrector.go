package cache

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"neospeller/internal/textutil"
)

// Service is the upstream corrector consulted on cache misses.
type Service interface {
	Correct(ctx context.Context, texts []string) ([]string, error)
}

// Corrector serves cached corrections locally and forwards only the misses
// upstream, merging the results back into input order.
type Corrector struct {
	cache *Cache
	next  Service
}

// NewCorrector wraps an upstream corrector with a cache.
func NewCorrector(c *Cache, next Service) *Corrector {
	return &Corrector{cache: c, next: next}
}

// Correct implements the corrector contract. The returned slice is always
// index-aligned with texts; an upstream failure fails the whole call.
func (cc *Corrector) Correct(ctx context.Context, texts []string) ([]string, error) {
	results := make([]string, len(texts))
	var missIdx []int
	var misses []string

	for i, t := range texts {
		if v, ok := cc.cache.Get(ctx, t); ok {
			results[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		misses = append(misses, t)
	}

	if len(misses) == 0 {
		log.Debug().Int("hits", len(texts)).Msg("All comments served from cache")
		return results, nil
	}

	corrected, err := cc.next.Correct(ctx, misses)
	if err != nil {
		return nil, err
	}
	if len(corrected) != len(misses) {
		return nil, fmt.Errorf("corrector returned %d texts for %d misses", len(corrected), len(misses))
	}

	for j, i := range missIdx {
		results[i] = corrected[j]
		if err := cc.cache.Set(ctx, texts[i], corrected[j]); err != nil {
			log.Warn().Err(err).Str("text", textutil.Truncate(texts[i], 30)).Msg("Failed to cache correction")
		}
	}

	log.Debug().
		Int("hits", len(texts)-len(misses)).
		Int("misses", len(misses)).
		Msg("Correction cache stats")

	return results, nil
}
