package ranking

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/anacrolix/torrent/metainfo"

	"github.com/vbonduro/AudioBookRequest/internal/prowlarr"
	"github.com/vbonduro/AudioBookRequest/pkg/types"
)

// Known audio container/codec extensions. Anything else inside a torrent
// is ignored entirely, it does not count toward any size bucket.
var audioExtensions = map[string]bool{
	".3gp": true, ".aa": true, ".aac": true, ".aax": true, ".act": true,
	".aiff": true, ".alac": true, ".amr": true, ".ape": true, ".au": true,
	".awb": true, ".dss": true, ".dvf": true, ".flac": true, ".gsm": true,
	".iklax": true, ".ivs": true, ".m4a": true, ".m4b": true, ".m4p": true,
	".mmf": true, ".movpkg": true, ".mp3": true, ".mpc": true, ".msv": true,
	".nmf": true, ".ogg": true, ".oga": true, ".mogg": true, ".opus": true,
	".ra": true, ".rm": true, ".raw": true, ".rf64": true, ".sln": true,
	".tta": true, ".voc": true, ".vox": true, ".wav": true, ".wma": true,
	".wv": true, ".webm": true, ".8svx": true, ".cda": true,
}

const descriptorFetchAttempts = 3

// Extractor infers (bitrate, format) estimates for candidate sources.
// The default mode is pure title+size heuristics; descriptor inspection
// pulls the .torrent through Prowlarr and measures per-format sizes
// exactly, at the cost of one fetch per source.
type Extractor struct {
	Prowlarr prowlarr.Config
	Inspect  bool

	http *http.Client
}

// NewExtractor clones httpc so redirects surface instead of being
// followed: indexers answer descriptor fetches with magnet redirects and
// we need the Location, not a failed magnet GET.
func NewExtractor(httpc *http.Client, cfg prowlarr.Config, inspect bool) *Extractor {
	c := *httpc
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Extractor{Prowlarr: cfg, Inspect: inspect, http: &c}
}

// ExtractQualities returns zero or more quality estimates for the source.
// A book without a runtime yields nothing: no bitrate is computable, so
// the source is unrankable. Failures degrade to an empty result, never an
// error; the ranking batch must survive any single bad source.
func (e *Extractor) ExtractQualities(ctx context.Context, source *types.Source, book *types.Book) []types.Quality {
	bookSeconds := book.RuntimeLengthMin * 60
	if bookSeconds == 0 {
		return nil
	}

	if e.Inspect && source.DownloadURL != "" {
		data, state := e.fetchDescriptor(ctx, source)
		switch state {
		case fetchOK:
			return descriptorQualities(data, bookSeconds)
		case fetchFailed:
			return nil
		}
		// fetchMagnetRedirect: the magnet URI is captured on the
		// source, fall back to the heuristic
	}

	return []types.Quality{{
		Kbits:      kbits(source.Size, bookSeconds),
		FileFormat: classifyTitle(source.Title),
	}}
}

func kbits(sizeBytes int64, seconds int) float64 {
	return 8 * float64(sizeBytes) / float64(seconds) / 1000
}

// classifyTitle guesses the format from release-title keywords. Order
// matters: mp3 releases often mention m4b conversions in passing.
func classifyTitle(title string) types.FileFormat {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "mp3"):
		return types.FormatMP3
	case strings.Contains(t, "flac"):
		return types.FormatFLAC
	case strings.Contains(t, "m4b"):
		return types.FormatM4B
	case strings.Contains(t, "audiobook"):
		return types.FormatUnknownAudio
	}
	return types.FormatUnknown
}

type fetchState int

const (
	fetchOK fetchState = iota
	fetchFailed
	fetchMagnetRedirect
)

// fetchDescriptor pulls the torrent descriptor, retrying transient server
// errors. A redirect to a magnet URI is captured onto the source and
// reported so the caller can fall back to the heuristic.
func (e *Extractor) fetchDescriptor(ctx context.Context, source *types.Source) ([]byte, fetchState) {
	apiKey, err := e.Prowlarr.APIKey(ctx)
	if err != nil || apiKey == "" {
		log.Printf("[ranking] descriptor fetch skipped: prowlarr api key unavailable")
		return nil, fetchFailed
	}

	for attempt := 0; attempt < descriptorFetchAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.DownloadURL, nil)
		if err != nil {
			return nil, fetchFailed
		}
		req.Header.Set("X-Api-Key", apiKey)

		resp, err := e.http.Do(req)
		if err != nil {
			log.Printf("[ranking] descriptor fetch failed for %q: %v", source.Title, err)
			return nil, fetchFailed
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			loc := resp.Header.Get("Location")
			resp.Body.Close()
			if strings.HasPrefix(loc, "magnet:") {
				source.MagnetURL = loc
				source.DownloadURL = ""
				return nil, fetchMagnetRedirect
			}
			return nil, fetchFailed
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fetchFailed
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fetchFailed
		}
		return data, fetchOK
	}
	return nil, fetchFailed
}

// descriptorQualities buckets the descriptor's file sizes by format and
// emits one quality per non-empty bucket. Malformed descriptors yield
// nothing.
func descriptorQualities(data []byte, bookSeconds int) []types.Quality {
	mi, err := metainfo.Load(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return nil
	}

	sizes := make(map[types.FileFormat]int64)
	for _, f := range info.UpvertedFiles() {
		name := info.Name
		if len(f.Path) > 0 {
			name = f.Path[len(f.Path)-1]
		}
		ext := strings.ToLower(path.Ext(name))
		switch ext {
		case ".flac":
			sizes[types.FormatFLAC] += f.Length
		case ".m4b":
			sizes[types.FormatM4B] += f.Length
		case ".mp3":
			sizes[types.FormatMP3] += f.Length
		default:
			if audioExtensions[ext] {
				sizes[types.FormatUnknown] += f.Length
			}
		}
	}

	var out []types.Quality
	for _, format := range []types.FileFormat{types.FormatFLAC, types.FormatM4B, types.FormatMP3, types.FormatUnknown} {
		if size, ok := sizes[format]; ok {
			out = append(out, types.Quality{Kbits: kbits(size, bookSeconds), FileFormat: format})
		}
	}
	return out
}
