// Package ranking turns a raw candidate list into a best-first order:
// quality extraction per source (concurrently), then a strict ten-step
// tie-break chain over the expanded (source, quality) pairs.
package ranking

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/AudioBookRequest/pkg/types"
)

// QualityExtractor yields the quality estimates for one source. The
// production implementation is *Extractor.
type QualityExtractor interface {
	ExtractQualities(ctx context.Context, source *types.Source, book *types.Book) []types.Quality
}

type Ranker struct {
	Extractor QualityExtractor
	Config    Config
}

// Rank orders the sources best-first for the book. Sources that yield no
// quality estimate are dropped. The output is unique by source: when a
// source expands to several qualities, only its best-ranked pair counts.
func (r *Ranker) Rank(ctx context.Context, sources []*types.Source, book *types.Book) ([]*types.Source, error) {
	cfg, err := r.Config.Load(ctx)
	if err != nil {
		return nil, err
	}
	return r.rankWith(ctx, cfg, sources, book)
}

func (r *Ranker) rankWith(ctx context.Context, cfg *types.RankingConfig, sources []*types.Source, book *types.Book) ([]*types.Source, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	// fan out extraction; wall clock is bounded by the slowest source,
	// not the sum
	expanded := make([][]*pair, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			qualities := r.Extractor.ExtractQualities(gctx, src, book)
			pairs := make([]*pair, 0, len(qualities))
			for _, q := range qualities {
				pairs = append(pairs, newPair(book, cfg, src, q))
			}
			expanded[i] = pairs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pairs []*pair
	for _, ps := range expanded {
		pairs = append(pairs, ps...)
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return comparePairs(pairs[i], pairs[j]) < 0
	})

	seen := make(map[*types.Source]bool, len(pairs))
	out := make([]*types.Source, 0, len(pairs))
	for _, p := range pairs {
		if seen[p.source] {
			continue
		}
		seen[p.source] = true
		out = append(out, p.source)
	}
	return out, nil
}
