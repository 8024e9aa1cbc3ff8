package ranking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/AudioBookRequest/pkg/types"
)

type stubSettings map[string]string

func (s stubSettings) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s[key]
	return v, ok, nil
}

// stubExtractor hands out canned qualities per source GUID.
type stubExtractor map[string][]types.Quality

func (s stubExtractor) ExtractQualities(_ context.Context, src *types.Source, _ *types.Book) []types.Quality {
	return s[src.GUID]
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := Config{Settings: stubSettings{}}.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.MinSeeders)
	assert.Equal(t, 75, cfg.NameExistsRatio)
	assert.Equal(t, 90, cfg.TitleExistsRatio)
	assert.Equal(t, types.QualityRange{FromKbits: 20, ToKbits: 400}, cfg.Ranges[types.FormatM4B])
	assert.Equal(t, 0, cfg.FormatRank(types.FormatFLAC))
	assert.Equal(t, 2, cfg.FormatRank(types.FormatMP3))
}

func TestConfigOverrides(t *testing.T) {
	s := stubSettings{
		"quality_min_seeders":   "3",
		"quality_mp3":           `{"fromKbits":60,"toKbits":200}`,
		"quality_format_order":  `["mp3","flac"]`,
		"quality_indexer_flags": `[{"flag":"freeleech","score":5}]`,
	}
	cfg, err := Config{Settings: s}.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MinSeeders)
	assert.Equal(t, types.QualityRange{FromKbits: 60, ToKbits: 200}, cfg.Ranges[types.FormatMP3])
	assert.Equal(t, 0, cfg.FormatRank(types.FormatMP3))
	// formats dropped from the order rank last, tied
	assert.Equal(t, 2, cfg.FormatRank(types.FormatM4B))
	assert.Equal(t, 2, cfg.FormatRank(types.FormatUnknown))
	assert.Equal(t, 5, cfg.FlagScore(&types.Source{IndexerFlags: []string{"freeleech"}}))
}

func TestValidPartitionsBeforeEverything(t *testing.T) {
	// the invalid pair wins every later criterion and still loses
	a := &pair{valid: true, source: &types.Source{Protocol: types.ProtocolTorrent}}
	b := &pair{
		valid:      false,
		titleMatch: true,
		authorHits: 2,
		source:     &types.Source{Protocol: types.ProtocolTorrent, Seeders: 100},
	}
	assert.Negative(t, comparePairs(a, b))
	assert.Positive(t, comparePairs(b, a))
}

func TestSeederTieBreak(t *testing.T) {
	a := &pair{valid: true, source: &types.Source{Protocol: types.ProtocolTorrent, Seeders: 10}}
	b := &pair{valid: true, source: &types.Source{Protocol: types.ProtocolTorrent, Seeders: 3}}
	assert.Negative(t, comparePairs(a, b))
}

func TestSeedersSkippedAcrossProtocols(t *testing.T) {
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	a := &pair{valid: true, source: &types.Source{Protocol: types.ProtocolTorrent, Seeders: 50, PublishDate: date}}
	b := &pair{valid: true, source: &types.Source{Protocol: types.ProtocolUsenet, Grabs: 2, PublishDate: date.AddDate(0, 0, 1)}}

	// seeders and age both abstain, so nothing separates the two
	assert.Zero(t, comparePairs(a, b))
	assert.Zero(t, comparePairs(b, a))
}

func TestAgeDirectionPerProtocol(t *testing.T) {
	older := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// torrents: older swarms rank first
	a := &pair{valid: true, source: &types.Source{Protocol: types.ProtocolTorrent, PublishDate: older}}
	b := &pair{valid: true, source: &types.Source{Protocol: types.ProtocolTorrent, PublishDate: newer}}
	assert.Negative(t, comparePairs(a, b))

	// usenet: retention favors newer posts
	c := &pair{valid: true, source: &types.Source{Protocol: types.ProtocolUsenet, PublishDate: newer}}
	d := &pair{valid: true, source: &types.Source{Protocol: types.ProtocolUsenet, PublishDate: older}}
	assert.Negative(t, comparePairs(c, d))
}

func TestNewPairValidity(t *testing.T) {
	cfg := defaultRankingConfig()
	cfg.MinSeeders = 2
	book := &types.Book{Title: "Dune", RuntimeLengthMin: 1260}

	src := &types.Source{Protocol: types.ProtocolTorrent, Title: "Dune", Seeders: 5}
	p := newPair(book, cfg, src, types.Quality{Kbits: 120, FileFormat: types.FormatM4B})
	assert.True(t, p.valid)

	// bitrate outside the format range
	p = newPair(book, cfg, src, types.Quality{Kbits: 900, FileFormat: types.FormatM4B})
	assert.False(t, p.valid)

	// range bounds are exclusive
	p = newPair(book, cfg, src, types.Quality{Kbits: 400, FileFormat: types.FormatM4B})
	assert.False(t, p.valid)

	// enough bitrate but not enough seeders
	starved := &types.Source{Protocol: types.ProtocolTorrent, Title: "Dune", Seeders: 1}
	p = newPair(book, cfg, starved, types.Quality{Kbits: 120, FileFormat: types.FormatM4B})
	assert.False(t, p.valid)

	// usenet sources never fail the seeder gate
	nzb := &types.Source{Protocol: types.ProtocolUsenet, Title: "Dune"}
	p = newPair(book, cfg, nzb, types.Quality{Kbits: 120, FileFormat: types.FormatM4B})
	assert.True(t, p.valid)
}

func TestRankPrefersMatchingRelease(t *testing.T) {
	book := &types.Book{
		Title:            "Dune",
		Authors:          []string{"Frank Herbert"},
		Narrators:        []string{"Simon Vance"},
		RuntimeLengthMin: 1260,
	}
	a := &types.Source{
		Protocol:    types.ProtocolTorrent,
		GUID:        "a",
		Title:       "Dune - Frank Herbert - Simon Vance [M4B]",
		Seeders:     5,
		PublishDate: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	b := &types.Source{
		Protocol:    types.ProtocolTorrent,
		GUID:        "b",
		Title:       "Dune Unabridged MP3",
		Seeders:     1,
		PublishDate: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	r := &Ranker{
		Extractor: stubExtractor{
			"a": {{Kbits: 120, FileFormat: types.FormatM4B}},
			"b": {{Kbits: 100, FileFormat: types.FormatMP3}},
		},
		Config: Config{Settings: stubSettings{"quality_min_seeders": "2"}},
	}

	out, err := r.Rank(context.Background(), []*types.Source{b, a}, book)
	require.NoError(t, err)
	require.Len(t, out, 2)

	// b fails the seeder gate, so a ranks first even though b is newer
	assert.Equal(t, "a", out[0].GUID)
	assert.Equal(t, "b", out[1].GUID)
}

func TestRankDedupesMultiQualitySources(t *testing.T) {
	book := &types.Book{Title: "Dune", RuntimeLengthMin: 1260}
	date := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	x := &types.Source{Protocol: types.ProtocolTorrent, GUID: "x", Title: "Dune", Seeders: 3, PublishDate: date}
	y := &types.Source{Protocol: types.ProtocolTorrent, GUID: "y", Title: "Dune", Seeders: 3, PublishDate: date}

	r := &Ranker{
		Extractor: stubExtractor{
			// x expands to two pairs that straddle y's best one
			"x": {{Kbits: 100, FileFormat: types.FormatFLAC}, {Kbits: 100, FileFormat: types.FormatMP3}},
			"y": {{Kbits: 100, FileFormat: types.FormatM4B}},
		},
		Config: Config{Settings: stubSettings{}},
	}

	out, err := r.Rank(context.Background(), []*types.Source{x, y}, book)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "x", out[0].GUID)
	assert.Equal(t, "y", out[1].GUID)
}

func TestRankDropsSourcesWithoutQualities(t *testing.T) {
	book := &types.Book{Title: "Dune", RuntimeLengthMin: 1260}
	x := &types.Source{Protocol: types.ProtocolTorrent, GUID: "x", Title: "Dune", Seeders: 3}
	y := &types.Source{Protocol: types.ProtocolTorrent, GUID: "y", Title: "Dune", Seeders: 3}

	r := &Ranker{
		Extractor: stubExtractor{"x": {{Kbits: 100, FileFormat: types.FormatM4B}}},
		Config:    Config{Settings: stubSettings{}},
	}

	out, err := r.Rank(context.Background(), []*types.Source{x, y}, book)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "x", out[0].GUID)
}

func TestRankEmptyInput(t *testing.T) {
	r := &Ranker{Extractor: stubExtractor{}, Config: Config{Settings: stubSettings{}}}
	out, err := r.Rank(context.Background(), nil, &types.Book{Title: "Dune", RuntimeLengthMin: 60})
	require.NoError(t, err)
	assert.Empty(t, out)
}
