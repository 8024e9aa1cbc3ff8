package ranking

import (
	"github.com/vbonduro/AudioBookRequest/pkg/types"
)

// pair is one rankable (source, quality) combination. The per-pair
// criteria are computed once up front; the comparators below only look
// at these fields plus the raw source, keeping the sort itself pure and
// independent of completion order.
type pair struct {
	source  *types.Source
	quality types.Quality

	valid         bool
	titleMatch    bool
	subtitleMatch bool
	authorHits    int
	narratorHits  int
	formatRank    int
	flagScore     int
	indexerRank   int
}

func newPair(book *types.Book, cfg *types.RankingConfig, src *types.Source, q types.Quality) *pair {
	p := &pair{source: src, quality: q}

	p.valid = cfg.Range(q.FileFormat).Contains(q.Kbits)
	if src.Protocol == types.ProtocolTorrent {
		p.valid = p.valid && src.Seeders >= cfg.MinSeeders
	}

	p.titleMatch = existsInTitle(book.Title, src.Title, cfg.TitleExistsRatio)
	if book.Subtitle != "" {
		p.subtitleMatch = existsInTitle(book.Subtitle, src.Title, cfg.TitleExistsRatio)
	}
	p.authorHits = vaguelyExistInTitle(book.Authors, src.Title, cfg.NameExistsRatio)
	p.narratorHits = vaguelyExistInTitle(book.Narrators, src.Title, cfg.NameExistsRatio)
	p.formatRank = cfg.FormatRank(q.FileFormat)
	p.flagScore = cfg.FlagScore(src)
	p.indexerRank = cfg.IndexerRank(src.IndexerID)
	return p
}

// compareFunc returns <0 when a ranks before b, >0 for the reverse, and
// 0 to defer to the next criterion in the chain.
type compareFunc func(a, b *pair) int

// The strict tie-break chain, best criterion first. Each step only
// breaks ties the previous steps left.
var compareOrder = []compareFunc{
	compareValid,
	compareTitle,
	compareAuthors,
	compareNarrators,
	compareFormat,
	compareFlags,
	compareIndexer,
	compareSubtitle,
	compareSeeders,
	compareAge,
}

func comparePairs(a, b *pair) int {
	for _, cmp := range compareOrder {
		if d := cmp(a, b); d != 0 {
			return d
		}
	}
	return 0
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// compareValid is the only criterion allowed to hard-partition: every
// valid pair sorts before every invalid one.
func compareValid(a, b *pair) int {
	return btoi(b.valid) - btoi(a.valid)
}

func compareTitle(a, b *pair) int {
	return btoi(b.titleMatch) - btoi(a.titleMatch)
}

func compareAuthors(a, b *pair) int {
	return b.authorHits - a.authorHits
}

func compareNarrators(a, b *pair) int {
	return b.narratorHits - a.narratorHits
}

func compareFormat(a, b *pair) int {
	return a.formatRank - b.formatRank
}

func compareFlags(a, b *pair) int {
	return b.flagScore - a.flagScore
}

func compareIndexer(a, b *pair) int {
	return a.indexerRank - b.indexerRank
}

// compareSubtitle never decides for books without a subtitle: both
// matches are false then, so the chain falls through.
func compareSubtitle(a, b *pair) int {
	return btoi(b.subtitleMatch) - btoi(a.subtitleMatch)
}

// compareSeeders only applies between two torrents; usenet sources have
// no swarm.
func compareSeeders(a, b *pair) int {
	if a.source.Protocol == types.ProtocolUsenet || b.source.Protocol == types.ProtocolUsenet {
		return 0
	}
	return b.source.Seeders - a.source.Seeders
}

// compareAge skips cross-protocol pairs. Usenet retention decays, so
// newer wins there; torrent swarms grow and get verified over time, so
// older wins.
func compareAge(a, b *pair) int {
	if a.source.Protocol != b.source.Protocol {
		return 0
	}
	ap, bp := a.source.PublishDate, b.source.PublishDate
	if ap.Equal(bp) {
		return 0
	}
	if a.source.Protocol == types.ProtocolUsenet {
		if ap.After(bp) {
			return -1
		}
		return 1
	}
	if ap.Before(bp) {
		return -1
	}
	return 1
}
