package types

import (
	"strings"
	"time"
)

type Protocol string

const (
	ProtocolTorrent Protocol = "torrent"
	ProtocolUsenet  Protocol = "usenet"
)

type FileFormat string

const (
	FormatFLAC         FileFormat = "flac"
	FormatM4B          FileFormat = "m4b"
	FormatMP3          FileFormat = "mp3"
	FormatUnknownAudio FileFormat = "unknown-audio"
	FormatUnknown      FileFormat = "unknown"
)

// Book is the requested audiobook as known to the catalog. Read-only to
// ranking and enrichment.
type Book struct {
	ASIN             string   `json:"asin"`
	Title            string   `json:"title"`
	Subtitle         string   `json:"subtitle,omitempty"`
	Authors          []string `json:"authors"`
	Narrators        []string `json:"narrators"`
	RuntimeLengthMin int      `json:"runtimeLengthMin"`
}

// Source is one downloadable candidate discovered by an indexer.
// GUIDs are only unique per provider, not globally.
type Source struct {
	Protocol     Protocol  `json:"protocol"`
	GUID         string    `json:"guid"`
	IndexerID    int       `json:"indexerId"`
	Indexer      string    `json:"indexer"`
	Title        string    `json:"title"`
	Size         int64     `json:"size"` // bytes
	InfoURL      string    `json:"infoUrl,omitempty"`
	IndexerFlags []string  `json:"indexerFlags,omitempty"` // lowercase
	PublishDate  time.Time `json:"publishDate"`

	// torrent only
	Seeders     int    `json:"seeders,omitempty"`
	Leechers    int    `json:"leechers,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	MagnetURL   string `json:"magnetUrl,omitempty"`

	// usenet only
	Grabs int `json:"grabs,omitempty"`

	// filled in by at most one indexer plugin during enrichment
	Authors   []string `json:"authors,omitempty"`
	Narrators []string `json:"narrators,omitempty"`
}

// AddFlags unions new flags into IndexerFlags, lowercased. Flags set by
// other parties survive.
func (s *Source) AddFlags(flags ...string) {
	for _, f := range flags {
		f = strings.ToLower(f)
		if !s.HasFlag(f) {
			s.IndexerFlags = append(s.IndexerFlags, f)
		}
	}
}

// HasFlag reports whether the source carries the flag (case-insensitive).
func (s *Source) HasFlag(flag string) bool {
	flag = strings.ToLower(flag)
	for _, f := range s.IndexerFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// Quality is an estimated or measured (bitrate, format) for one source.
// Derived per query, never persisted. One source may yield several, one
// per audio file type found inside an inspected descriptor.
type Quality struct {
	Kbits      float64    `json:"kbits"`
	FileFormat FileFormat `json:"fileFormat"`
}

// QualityRange bounds acceptable bitrates for a format. Both ends are
// exclusive.
type QualityRange struct {
	FromKbits float64 `json:"fromKbits"`
	ToKbits   float64 `json:"toKbits"`
}

func (r QualityRange) Contains(kbits float64) bool {
	return r.FromKbits < kbits && kbits < r.ToKbits
}

// IndexerFlagScore is an additive bonus for sources carrying the flag.
type IndexerFlagScore struct {
	Flag  string `json:"flag"` // lowercase
	Score int    `json:"score"`
}

// RankingConfig is the admin-mutable knob set resolved once per ranking
// call.
type RankingConfig struct {
	Ranges           map[FileFormat]QualityRange
	MinSeeders       int
	NameExistsRatio  int // 0-100
	TitleExistsRatio int // 0-100
	IndexerFlags     []IndexerFlagScore
	FormatOrder      []FileFormat // rank = index, lower is better
	IndexerOrder     []int        // indexer ids, lower index is better
}

// Range returns the configured range for the format, or a fully open one
// when the format has no entry.
func (c *RankingConfig) Range(f FileFormat) QualityRange {
	if r, ok := c.Ranges[f]; ok {
		return r
	}
	return QualityRange{FromKbits: 0, ToKbits: 1 << 30}
}

// FormatRank returns the position of f in FormatOrder; formats not listed
// rank last, tied with each other.
func (c *RankingConfig) FormatRank(f FileFormat) int {
	for i, x := range c.FormatOrder {
		if x == f {
			return i
		}
	}
	return len(c.FormatOrder)
}

// IndexerRank returns the position of id in IndexerOrder; unlisted
// indexers rank last, tied.
func (c *RankingConfig) IndexerRank(id int) int {
	for i, x := range c.IndexerOrder {
		if x == id {
			return i
		}
	}
	return len(c.IndexerOrder)
}

// FlagScore sums the configured bonus of every flag the source carries.
func (c *RankingConfig) FlagScore(s *Source) int {
	total := 0
	for _, fs := range c.IndexerFlags {
		if s.HasFlag(fs.Flag) {
			total += fs.Score
		}
	}
	return total
}
