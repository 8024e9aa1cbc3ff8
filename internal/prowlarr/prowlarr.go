// Package prowlarr talks to the Prowlarr aggregator: free-text search
// across the configured indexers, the indexer listing, and the download
// trigger. Downloading bytes is Prowlarr's job, not ours.
package prowlarr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vbonduro/AudioBookRequest/internal/cache"
	"github.com/vbonduro/AudioBookRequest/pkg/types"
)

type Client struct {
	Config Config
	HTTP   *http.Client

	sources  *cache.TTL[[]*types.Source]
	indexers *cache.TTL[[]Indexer]
}

func NewClient(cfg Config, httpc *http.Client) *Client {
	return &Client{
		Config:   cfg,
		HTTP:     httpc,
		sources:  cache.New[[]*types.Source](),
		indexers: cache.New[[]Indexer](),
	}
}

type Indexer struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enable"`
	Privacy string `json:"privacy"`
}

type searchResult struct {
	GUID         string   `json:"guid"`
	IndexerID    int      `json:"indexerId"`
	Indexer      string   `json:"indexer"`
	Title        string   `json:"title"`
	Size         int64    `json:"size"`
	Seeders      int      `json:"seeders"`
	Leechers     int      `json:"leechers"`
	Grabs        int      `json:"grabs"`
	InfoURL      string   `json:"infoUrl"`
	DownloadURL  string   `json:"downloadUrl"`
	MagnetURL    string   `json:"magnetUrl"`
	IndexerFlags []string `json:"indexerFlags"`
	PublishDate  string   `json:"publishDate"`
	Protocol     string   `json:"protocol"`
}

// Search queries Prowlarr for candidate sources. Results are cached per
// query for the configured TTL; forceRefresh bypasses the cache.
func (c *Client) Search(ctx context.Context, query string, forceRefresh bool) ([]*types.Source, error) {
	if err := c.Config.Validate(ctx); err != nil {
		return nil, err
	}
	ttl, err := c.Config.SourceTTL(ctx)
	if err != nil {
		return nil, err
	}
	if !forceRefresh {
		if cached, ok := c.sources.Get(query, ttl); ok {
			return cached, nil
		}
	}

	base, _ := c.Config.BaseURL(ctx)
	apiKey, _ := c.Config.APIKey(ctx)

	v := url.Values{}
	v.Set("query", query)
	v.Set("type", "search")
	v.Set("limit", "100")
	v.Set("offset", "0")
	cats, err := c.Config.Categories(ctx)
	if err != nil {
		return nil, err
	}
	for _, cat := range cats {
		v.Add("categories", strconv.Itoa(cat))
	}
	ids, err := c.Config.Indexers(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		v.Add("indexerIds", strconv.Itoa(id))
	}

	u := base + "/api/v1/search?" + v.Encode()
	log.Printf("[prowlarr] search %q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", apiKey)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prowlarr search: status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, err
	}

	sources := make([]*types.Source, 0, len(results))
	for _, r := range results {
		src, ok := parseResult(r)
		if !ok {
			continue
		}
		sources = append(sources, src)
	}

	c.sources.Set(query, sources)
	return sources, nil
}

// Cached returns the cached result set for a query without touching
// Prowlarr, or nil.
func (c *Client) Cached(ctx context.Context, query string) []*types.Source {
	ttl, err := c.Config.SourceTTL(ctx)
	if err != nil {
		return nil
	}
	cached, ok := c.sources.Get(query, ttl)
	if !ok {
		return nil
	}
	return cached
}

// A result missing its protocol or with an unparseable publish date is
// skipped, never fatal to the batch.
func parseResult(r searchResult) (*types.Source, bool) {
	proto := types.Protocol(r.Protocol)
	if proto != types.ProtocolTorrent && proto != types.ProtocolUsenet {
		log.Printf("[prowlarr] skipping source with unknown protocol %q", r.Protocol)
		return nil, false
	}
	published, err := time.Parse(time.RFC3339, r.PublishDate)
	if err != nil {
		log.Printf("[prowlarr] skipping source %q: bad publish date %q", r.Title, r.PublishDate)
		return nil, false
	}
	flags := make([]string, 0, len(r.IndexerFlags))
	for _, f := range r.IndexerFlags {
		flags = append(flags, strings.ToLower(f))
	}
	src := &types.Source{
		Protocol:     proto,
		GUID:         r.GUID,
		IndexerID:    r.IndexerID,
		Indexer:      r.Indexer,
		Title:        r.Title,
		Size:         r.Size,
		InfoURL:      r.InfoURL,
		IndexerFlags: flags,
		PublishDate:  published,
		DownloadURL:  r.DownloadURL,
		MagnetURL:    r.MagnetURL,
	}
	if proto == types.ProtocolTorrent {
		src.Seeders = r.Seeders
		src.Leechers = r.Leechers
	} else {
		src.Grabs = r.Grabs
	}
	return src, true
}

// StartDownload hands the picked source back to Prowlarr, which forwards
// it to the configured download client. Fire-and-forget from our side.
func (c *Client) StartDownload(ctx context.Context, guid string, indexerID int) error {
	if err := c.Config.Validate(ctx); err != nil {
		return err
	}
	base, _ := c.Config.BaseURL(ctx)
	apiKey, _ := c.Config.APIKey(ctx)

	body, _ := json.Marshal(map[string]any{"guid": guid, "indexerId": indexerID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/v1/search", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	log.Printf("[prowlarr] starting download guid=%s indexer=%d", guid, indexerID)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("prowlarr download: status %d", resp.StatusCode)
	}
	return nil
}

// Indexers fetches the indexer list known to Prowlarr, cached for the
// source TTL.
func (c *Client) Indexers(ctx context.Context) ([]Indexer, error) {
	if err := c.Config.Validate(ctx); err != nil {
		return nil, err
	}
	ttl, err := c.Config.SourceTTL(ctx)
	if err != nil {
		return nil, err
	}
	if cached, ok := c.indexers.Get("all", ttl); ok {
		return cached, nil
	}

	base, _ := c.Config.BaseURL(ctx)
	apiKey, _ := c.Config.APIKey(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/indexer", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", apiKey)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prowlarr indexers: status %d", resp.StatusCode)
	}

	var out []Indexer
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	c.indexers.Set("all", out)
	return out, nil
}

// FlushCaches drops all cached search results, e.g. after settings change.
func (c *Client) FlushCaches() {
	c.sources.Flush()
	c.indexers.Flush()
}

// PurgeCaches drops entries older than maxAge; wired into the janitor.
func (c *Client) PurgeCaches(maxAge time.Duration) {
	if n := c.sources.Purge(maxAge) + c.indexers.Purge(maxAge); n > 0 {
		log.Printf("[janitor] purged %d prowlarr cache entries", n)
	}
}
