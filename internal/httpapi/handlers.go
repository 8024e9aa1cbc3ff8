package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/vbonduro/AudioBookRequest/internal/audible"
	"github.com/vbonduro/AudioBookRequest/internal/middleware"
	"github.com/vbonduro/AudioBookRequest/internal/prowlarr"
	"github.com/vbonduro/AudioBookRequest/internal/query"
	"github.com/vbonduro/AudioBookRequest/internal/requests"
)

type Deps struct {
	Audible      *audible.Client
	Orchestrator *query.Orchestrator
	Requests     *requests.Repo
	Prowlarr     *prowlarr.Client
}

type Handlers struct {
	d Deps
}

func NewHandlers(d Deps) *Handlers { return &Handlers{d: d} }

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/search", cors(h.SearchBooks))
	mux.HandleFunc("/v1/book/sources", cors(h.Sources))
	mux.HandleFunc("/v1/request", cors(h.Request))
	mux.HandleFunc("/v1/download", cors(h.Download))
	mux.HandleFunc("/v1/indexers", cors(h.Indexers))
}

func cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.EnableCORS(w)
		if r.Method == http.MethodOptions {
			return
		}
		next(w, r)
	}
}

// SearchBooks proxies a catalog keyword search: GET /v1/search?q=dune
func (h *Handlers) SearchBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "q required", http.StatusBadRequest)
		return
	}
	num, _ := strconv.Atoi(r.URL.Query().Get("num"))
	books, err := h.d.Audible.Search(r.Context(), q, num)
	if err != nil {
		http.Error(w, "search error: "+err.Error(), http.StatusBadGateway)
		return
	}
	_ = json.NewEncoder(w).Encode(books)
}

// Sources returns the ranked candidates for a book:
// GET /v1/book/sources?asin=B002V8L5MC&refresh=1
func (h *Handlers) Sources(w http.ResponseWriter, r *http.Request) {
	asin := r.URL.Query().Get("asin")
	if asin == "" {
		http.Error(w, "asin required", http.StatusBadRequest)
		return
	}
	book, err := h.d.Audible.GetBook(r.Context(), asin)
	if err != nil {
		http.Error(w, "book lookup error: "+err.Error(), http.StatusBadGateway)
		return
	}
	refresh := r.URL.Query().Get("refresh") == "1"
	ranked, err := h.d.Orchestrator.Sources(r.Context(), book, refresh)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"book": book, "sources": ranked})
}

// Request creates (POST) or lists (GET) book requests.
func (h *Handlers) Request(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var in struct {
			ASIN     string `json:"asin"`
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.ASIN == "" || in.Username == "" {
			http.Error(w, "asin & username required", http.StatusBadRequest)
			return
		}
		book, err := h.d.Audible.GetBook(r.Context(), in.ASIN)
		if err != nil {
			http.Error(w, "book lookup error: "+err.Error(), http.StatusBadGateway)
			return
		}
		id, err := h.d.Requests.Upsert(r.Context(), book.ASIN, in.Username, book.Title)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "book": book})
	case http.MethodGet:
		rows, err := h.d.Requests.List(r.Context())
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(rows)
	case http.MethodDelete:
		id, err := uuid.Parse(r.URL.Query().Get("id"))
		if err != nil {
			http.Error(w, "id required", http.StatusBadRequest)
			return
		}
		if err := h.d.Requests.Delete(r.Context(), id); err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Download triggers a download. With guid+indexerId it fires directly;
// with only an asin it ranks and takes the top candidate.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var in struct {
		ASIN      string `json:"asin"`
		GUID      string `json:"guid"`
		IndexerID int    `json:"indexerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	if in.GUID != "" {
		if err := h.d.Prowlarr.StartDownload(r.Context(), in.GUID, in.IndexerID); err != nil {
			writeQueryError(w, err)
			return
		}
	} else {
		if in.ASIN == "" {
			http.Error(w, "asin or guid required", http.StatusBadRequest)
			return
		}
		book, err := h.d.Audible.GetBook(r.Context(), in.ASIN)
		if err != nil {
			http.Error(w, "book lookup error: "+err.Error(), http.StatusBadGateway)
			return
		}
		top, err := h.d.Orchestrator.DownloadBest(r.Context(), book)
		if err != nil {
			writeQueryError(w, err)
			return
		}
		log.Printf("[download] started %q from indexer %d", top.Title, top.IndexerID)
	}
	if in.ASIN != "" {
		_ = h.d.Requests.MarkDownloaded(r.Context(), in.ASIN)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

// Indexers lists the aggregator's configured indexers.
func (h *Handlers) Indexers(w http.ResponseWriter, r *http.Request) {
	list, err := h.d.Prowlarr.Indexers(r.Context())
	if err != nil {
		writeQueryError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(list)
}

func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, prowlarr.ErrMisconfigured):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, query.ErrNoCandidate):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, "query error: "+err.Error(), http.StatusInternalServerError)
	}
}
