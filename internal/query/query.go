// Package query ties the pipeline together: aggregator search →
// plugin enrichment → ranking → optional download of the winner.
package query

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vbonduro/AudioBookRequest/internal/indexers"
	"github.com/vbonduro/AudioBookRequest/internal/prowlarr"
	"github.com/vbonduro/AudioBookRequest/internal/ranking"
	"github.com/vbonduro/AudioBookRequest/pkg/types"
)

var ErrNoCandidate = errors.New("no acceptable candidate")

type Orchestrator struct {
	Prowlarr *prowlarr.Client
	Ranker   *ranking.Ranker
	Registry []indexers.Factory
	Env      *indexers.Env

	// cap per enrichment task so one hung plugin cannot stall a batch
	TaskTimeout time.Duration
}

// searchQuery is what we hand the aggregator: title plus the first
// author keeps recall high without drowning in noise.
func searchQuery(book *types.Book) string {
	q := book.Title
	if len(book.Authors) > 0 {
		q += " " + book.Authors[0]
	}
	return strings.TrimSpace(q)
}

// Sources returns the ranked candidate list for a book, best first.
func (o *Orchestrator) Sources(ctx context.Context, book *types.Book, forceRefresh bool) ([]*types.Source, error) {
	sources, err := o.Prowlarr.Search(ctx, searchQuery(book), forceRefresh)
	if err != nil {
		return nil, err
	}
	indexers.Enrich(ctx, o.Env, book, sources, o.Registry, o.TaskTimeout)
	return o.Ranker.Rank(ctx, sources, book)
}

// DownloadBest ranks and hands the top candidate to Prowlarr. The
// download itself is Prowlarr's problem after that.
func (o *Orchestrator) DownloadBest(ctx context.Context, book *types.Book) (*types.Source, error) {
	ranked, err := o.Sources(ctx, book, false)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, ErrNoCandidate
	}
	top := ranked[0]
	if err := o.Prowlarr.StartDownload(ctx, top.GUID, top.IndexerID); err != nil {
		return nil, err
	}
	return top, nil
}
