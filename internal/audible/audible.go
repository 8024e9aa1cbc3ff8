// Package audible resolves audiobook metadata: free-text search against
// the Audible catalog for ASINs, full details per ASIN from Audnexus.
package audible

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/AudioBookRequest/internal/cache"
	"github.com/vbonduro/AudioBookRequest/pkg/types"
)

const searchTTL = 7 * 24 * time.Hour

// vars so tests can point the client at local servers
var (
	audnexusBaseURL = "https://api.audnex.us"
	audibleBaseURL  = "https://api.audible.com"
)

type Client struct {
	HTTP *http.Client

	books  *cache.TTL[*types.Book]
	search *cache.TTL[[]*types.Book]
}

func NewClient(httpc *http.Client) *Client {
	return &Client{
		HTTP:   httpc,
		books:  cache.New[*types.Book](),
		search: cache.New[[]*types.Book](),
	}
}

type audnexusBook struct {
	ASIN             string `json:"asin"`
	Title            string `json:"title"`
	Subtitle         string `json:"subtitle"`
	RuntimeLengthMin int    `json:"runtimeLengthMin"`
	Authors          []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Narrators []struct {
		Name string `json:"name"`
	} `json:"narrators"`
}

// GetBook fetches the full metadata for one ASIN.
func (c *Client) GetBook(ctx context.Context, asin string) (*types.Book, error) {
	if cached, ok := c.books.Get(asin, searchTTL); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audnexusBaseURL+"/books/"+url.PathEscape(asin), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audnexus book %s: status %d", asin, resp.StatusCode)
	}

	var ab audnexusBook
	if err := json.NewDecoder(resp.Body).Decode(&ab); err != nil {
		return nil, err
	}

	book := &types.Book{
		ASIN:             ab.ASIN,
		Title:            ab.Title,
		Subtitle:         ab.Subtitle,
		RuntimeLengthMin: ab.RuntimeLengthMin,
	}
	for _, a := range ab.Authors {
		book.Authors = append(book.Authors, a.Name)
	}
	for _, n := range ab.Narrators {
		book.Narrators = append(book.Narrators, n.Name)
	}

	c.books.Set(asin, book)
	return book, nil
}

// Search runs a catalog keyword search, then resolves details per ASIN
// concurrently. Individual detail failures drop the book, not the search.
func (c *Client) Search(ctx context.Context, query string, numResults int) ([]*types.Book, error) {
	if numResults <= 0 {
		numResults = 20
	}
	cacheKey := query + "|" + strconv.Itoa(numResults)
	if cached, ok := c.search.Get(cacheKey, searchTTL); ok {
		return cached, nil
	}

	v := url.Values{}
	v.Set("keywords", query)
	v.Set("num_results", strconv.Itoa(numResults))
	v.Set("products_sort_by", "Relevance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audibleBaseURL+"/1.0/catalog/products?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audible search: status %d", resp.StatusCode)
	}

	var parsed struct {
		Products []struct {
			ASIN string `json:"asin"`
		} `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	books := make([]*types.Book, len(parsed.Products))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(5)
	for i, p := range parsed.Products {
		g.Go(func() error {
			book, err := c.GetBook(gctx, p.ASIN)
			if err != nil {
				log.Printf("[audible] dropping %s: %v", p.ASIN, err)
				return nil
			}
			books[i] = book
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*types.Book, 0, len(books))
	for _, b := range books {
		if b != nil {
			out = append(out, b)
		}
	}
	c.search.Set(cacheKey, out)
	return out, nil
}

// PurgeCaches drops entries older than maxAge; wired into the janitor.
func (c *Client) PurgeCaches(maxAge time.Duration) {
	c.books.Purge(maxAge)
	c.search.Purge(maxAge)
}
