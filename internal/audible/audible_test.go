package audible

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const duneJSON = `{
	"asin": "B002V1OF70",
	"title": "Dune",
	"subtitle": "Book One",
	"runtimeLengthMin": 1260,
	"authors": [{"name": "Frank Herbert"}],
	"narrators": [{"name": "Simon Vance"}, {"name": "Scott Brick"}]
}`

func withAudnexus(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	orig := audnexusBaseURL
	audnexusBaseURL = srv.URL
	t.Cleanup(func() {
		audnexusBaseURL = orig
		srv.Close()
	})
	return srv
}

func TestGetBook(t *testing.T) {
	var calls int
	srv := withAudnexus(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, "/books/B002V1OF70", r.URL.Path)
		io.WriteString(w, duneJSON)
	}))

	c := NewClient(srv.Client())
	book, err := c.GetBook(context.Background(), "B002V1OF70")
	require.NoError(t, err)

	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Book One", book.Subtitle)
	assert.Equal(t, 1260, book.RuntimeLengthMin)
	assert.Equal(t, []string{"Frank Herbert"}, book.Authors)
	assert.Equal(t, []string{"Simon Vance", "Scott Brick"}, book.Narrators)

	// second call is served from the cache
	_, err = c.GetBook(context.Background(), "B002V1OF70")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGetBookErrorStatus(t *testing.T) {
	srv := withAudnexus(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	c := NewClient(srv.Client())
	_, err := c.GetBook(context.Background(), "nope")
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	withAudnexus(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/books/B002V1OF70":
			io.WriteString(w, duneJSON)
		default:
			// detail failures drop the book, not the search
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/1.0/catalog/products", r.URL.Path)
		assert.Equal(t, "dune", r.URL.Query().Get("keywords"))
		io.WriteString(w, `{"products":[{"asin":"B002V1OF70"},{"asin":"GONE"}]}`)
	}))
	origCatalog := audibleBaseURL
	audibleBaseURL = catalog.URL
	t.Cleanup(func() {
		audibleBaseURL = origCatalog
		catalog.Close()
	})

	c := NewClient(http.DefaultClient)
	books, err := c.Search(context.Background(), "dune", 10)
	require.NoError(t, err)

	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
}
