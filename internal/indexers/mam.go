package indexers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vbonduro/AudioBookRequest/internal/cache"
	"github.com/vbonduro/AudioBookRequest/pkg/types"
)

// var so tests can point the plugin at a local server
var mamBaseURL = "https://www.myanonamouse.net"

const (
	mamAudiobook = "13" // MAM main category for audiobooks

	keyMamSessionID = "mam_session_id"
	keyMamActive    = "mam_active"
	keyMamSourceTTL = "mam_source_ttl"
)

// Backend search results are cached per query across enrichment calls;
// MAM rate limits aggressively, so one request every few seconds is all
// we allow ourselves.
var (
	mamSearchCache = cache.New[map[string]mamResult]()
	mamLimiter     = rate.NewLimiter(rate.Every(2*time.Second), 1)
)

// FlushMamCache drops cached MAM search results.
func FlushMamCache() { mamSearchCache.Flush() }

// PurgeMamCache drops entries older than maxAge; wired into the janitor.
func PurgeMamCache(maxAge time.Duration) {
	if n := mamSearchCache.Purge(maxAge); n > 0 {
		log.Printf("[janitor] purged %d mam cache entries", n)
	}
}

type mamResult struct {
	authors   []string
	narrators []string
	freeleech bool
}

// Mam enriches sources from MyAnonamouse with the authors/narrators the
// tracker knows. Results from Setup live only for this instance, i.e.
// one enrichment call.
type Mam struct {
	results map[string]mamResult // keyed by canonical torrent URL
}

func NewMam() Indexer { return &Mam{} }

func (m *Mam) Name() string { return "MyAnonamouse" }

func (m *Mam) Configurations() []Field {
	return []Field{
		{
			Key:         keyMamSessionID,
			DisplayName: "Session ID",
			Description: "Value of the mam_id session cookie",
			Type:        FieldString,
			Required:    true,
		},
		{
			Key:         keyMamActive,
			DisplayName: "Enabled",
			Type:        FieldBool,
			Default:     "false",
		},
		{
			Key:         keyMamSourceTTL,
			DisplayName: "Search cache TTL (seconds)",
			Type:        FieldInt,
			Default:     "86400",
		},
	}
}

func (m *Mam) Active(cfg Values) bool { return cfg.Bool(keyMamActive) }

func (m *Mam) Setup(ctx context.Context, env *Env, book *types.Book, cfg Values) error {
	query := strings.TrimSpace(book.Title + " " + strings.Join(book.Authors, " "))
	if query == "" {
		m.results = map[string]mamResult{}
		return nil
	}

	ttl := time.Duration(cfg.Int(keyMamSourceTTL)) * time.Second
	if cached, ok := mamSearchCache.Get(query, ttl); ok {
		m.results = cached
		return nil
	}

	results, err := m.search(ctx, env, cfg.String(keyMamSessionID), query)
	if err != nil {
		return err
	}
	mamSearchCache.Set(query, results)
	m.results = results
	return nil
}

type mamSearchResponse struct {
	Data []struct {
		ID                int    `json:"id"`
		Title             string `json:"title"`
		Added             string `json:"added"`
		Seeders           int    `json:"seeders"`
		Leechers          int    `json:"leechers"`
		AuthorInfo        string `json:"author_info"`
		NarratorInfo      string `json:"narrator_info"`
		PersonalFreeleech int    `json:"personal_freeleech"`
	} `json:"data"`
}

func (m *Mam) search(ctx context.Context, env *Env, sessionID, query string) (map[string]mamResult, error) {
	if err := mamLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	v := url.Values{}
	v.Set("tor[text]", query)
	v.Add("tor[main_cat]", mamAudiobook)
	v.Set("tor[searchIn]", "torrents")
	v.Set("tor[srchIn][author]", "true")
	v.Set("tor[srchIn][title]", "true")
	v.Set("tor[searchType]", "active") // at least one seeder
	v.Set("startNumber", "0")
	v.Set("perpage", "100")

	u := mamBaseURL + "/tor/js/loadSearchJSONbasic.php?" + v.Encode()
	log.Printf("[mam] querying %q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.AddCookie(&http.Cookie{Name: "mam_id", Value: sessionID})

	resp, err := env.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mam search: status %d", resp.StatusCode)
	}

	var parsed mamSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	results := make(map[string]mamResult, len(parsed.Data))
	for _, d := range parsed.Data {
		results[fmt.Sprintf("%s/t/%d", mamBaseURL, d.ID)] = mamResult{
			authors:   nameMapValues(d.AuthorInfo),
			narrators: nameMapValues(d.NarratorInfo),
			freeleech: d.PersonalFreeleech == 1,
		}
	}
	return results, nil
}

// author_info/narrator_info come as a JSON object of id -> name. Sort by
// id so the resulting list is stable.
func nameMapValues(raw string) []string {
	if raw == "" {
		return nil
	}
	var m map[string]string
	if json.Unmarshal([]byte(raw), &m) != nil {
		return nil
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	names := make([]string, 0, len(m))
	for _, id := range ids {
		names = append(names, m[id])
	}
	return names
}

func (m *Mam) IsMatchingSource(source *types.Source) bool {
	return mamTorrentURL(source) != ""
}

func mamTorrentURL(source *types.Source) string {
	prefix := mamBaseURL + "/t/"
	if strings.HasPrefix(source.GUID, prefix) {
		return source.GUID
	}
	if strings.HasPrefix(source.InfoURL, prefix) {
		return source.InfoURL
	}
	return ""
}

func (m *Mam) EditSourceMetadata(ctx context.Context, env *Env, source *types.Source) error {
	r, ok := m.results[mamTorrentURL(source)]
	if !ok {
		// the aggregator saw a torrent our own search did not
		return nil
	}
	source.Authors = r.authors
	source.Narrators = r.narrators
	if r.freeleech {
		source.AddFlags("freeleech")
	}
	return nil
}
