package search

import (
	"errors"
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"nsiwatch/internal/catalog"
	"nsiwatch/internal/config"
)

// ErrExpired is returned for pagination against an evicted or unknown
// session. Callers must surface it distinctly from an empty result.
var ErrExpired = errors.New("search expired, please re-query")

// DefaultPageSize bounds one page of results when the caller gives no
// limit.
const DefaultPageSize = 10

// maxNameLen bounds display names in results.
const maxNameLen = 64

// revisionMarker is appended to names of revised document types in the
// dataset; it is noise in interactive results.
const revisionMarker = "(CDA)"

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nsiwatch_search_cache_hits_total",
		Help: "Pagination requests served from a cached search session.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nsiwatch_search_cache_misses_total",
		Help: "Pagination requests whose search session had expired.",
	})
)

// Result is one matched document type, reduced for display.
type Result struct {
	OID     int64  `json:"oid"`
	DocType string `json:"doc_type"`
	Name    string `json:"name"`
}

// Page is one slice of a cached result list.
type Page struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Offset  int      `json:"offset"`
}

type session struct {
	query   string
	results []Result
}

// Cache computes search results once per query and serves pagination
// from the cached list. Sessions are keyed by user; a new query from
// the same user replaces the previous session.
type Cache struct {
	sessions *expirable.LRU[int64, *session]
}

func NewCache(cfg *config.Config) *Cache {
	return &Cache{
		sessions: expirable.NewLRU[int64, *session](cfg.SearchCacheSize, nil, cfg.SearchCacheTTL),
	}
}

// Search matches query against the snapshot, caches the full result
// list for the user, and returns the first page. An empty query yields
// an empty result set.
func (c *Cache) Search(snap *catalog.Snapshot, userID int64, query string, limit int) *Page {
	results := match(snap, query)
	c.sessions.Add(userID, &session{query: query, results: results})
	return slice(results, limit, 0)
}

// Forget drops the user's cached session, if any.
func (c *Cache) Forget(userID int64) {
	c.sessions.Remove(userID)
}

// Page serves one pagination slice from the user's cached session.
func (c *Cache) Page(userID int64, limit, offset int) (*Page, error) {
	s, ok := c.sessions.Get(userID)
	if !ok {
		cacheMisses.Inc()
		return nil, ErrExpired
	}
	cacheHits.Inc()
	return slice(s.results, limit, offset), nil
}

// match collects one representative record per document type, first
// match winning, in dataset order.
func match(snap *catalog.Snapshot, query string) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || snap == nil {
		return nil
	}

	seen := make(map[string]bool)
	var results []Result
	for _, r := range snap.Records() {
		if seen[r.DocType] {
			continue
		}
		if !strings.Contains(strings.ToLower(r.Name), query) {
			continue
		}
		seen[r.DocType] = true
		results = append(results, Result{
			OID:     r.OID,
			DocType: r.DocType,
			Name:    displayName(r.Name),
		})
	}
	return results
}

func displayName(name string) string {
	name = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(name), revisionMarker))
	if runes := []rune(name); len(runes) > maxNameLen {
		name = string(runes[:maxNameLen])
	}
	return name
}

func slice(results []Result, limit, offset int) *Page {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	page := &Page{Total: len(results), Offset: offset}
	if offset >= len(results) {
		return page
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	page.Results = results[offset:end]
	return page
}
