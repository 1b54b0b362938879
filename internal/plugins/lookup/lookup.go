// Package lookup is the interactive catalog search plugin. It owns
// the per-user search cache and the daily catalog refresh.
package lookup

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"nsiwatch/internal/catalog"
	"nsiwatch/internal/config"
	"nsiwatch/internal/handlers"
	"nsiwatch/internal/plugin"
	"nsiwatch/internal/scheduler"
	"nsiwatch/internal/search"
	"nsiwatch/internal/store"
)

const refreshTimeout = 5 * time.Minute

// snapshotSource is the slice of catalog.Manager the plugin needs.
type snapshotSource interface {
	Refresh(ctx context.Context) error
	Current() *catalog.Snapshot
}

type Plugin struct {
	plugin.Base
	db       *sql.DB
	catalogs snapshotSource
	cache    *search.Cache
}

func New(db *sql.DB, catalogs snapshotSource, cfg *config.Config) *Plugin {
	return &Plugin{
		Base: plugin.Base{
			PluginName:    "lookup",
			PluginVersion: "1.0.0",
			Display:       "Catalog search",
			Desc:          "Interactive document-type search over the catalog",
			Access:        plugin.AccessAll,
		},
		db:       db,
		catalogs: catalogs,
		cache:    search.NewCache(cfg),
	}
}

// Initialize warms the catalog in the background so the first search
// does not wait on a download.
func (p *Plugin) Initialize() error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := p.catalogs.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("lookup: initial catalog refresh failed")
		}
	}()
	return nil
}

func (p *Plugin) Commands() []plugin.Route {
	return []plugin.Route{
		{Method: http.MethodGet, Path: "/api/search", Handler: p.handleSearch},
		{Method: http.MethodGet, Path: "/api/search/page", Handler: p.handlePage},
	}
}

func (p *Plugin) Actions() []plugin.Action {
	return []plugin.Action{
		{Name: "search-reset", Handler: p.handleReset},
	}
}

// ScheduledTasks keeps the snapshot fresh ahead of the morning report
// window.
func (p *Plugin) ScheduledTasks() []scheduler.Task {
	return []scheduler.Task{{
		Name:     "catalog-refresh",
		Interval: 1,
		Unit:     scheduler.Days,
		At:       "05:30",
		Run:      p.refresh,
	}}
}

func (p *Plugin) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if err := p.catalogs.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("lookup: scheduled catalog refresh failed")
	}
}

func (p *Plugin) handleSearch(w http.ResponseWriter, r *http.Request) {
	snap := p.catalogs.Current()
	if snap == nil {
		handlers.JSONError(w, "catalog not loaded yet", http.StatusServiceUnavailable)
		return
	}

	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		handlers.JSONError(w, "user_id required", http.StatusBadRequest)
		return
	}
	query := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	if err := store.RecordActivity(p.db, userID, r.URL.Query().Get("username"), "search"); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("lookup: record activity")
	}

	handlers.JSONResponse(w, p.cache.Search(snap, userID, query, limit))
}

// handleReset drops the user's cached session so the next query starts
// clean.
func (p *Plugin) handleReset(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		handlers.JSONError(w, "user_id required", http.StatusBadRequest)
		return
	}
	p.cache.Forget(userID)
	handlers.JSONResponse(w, map[string]string{"status": "reset"})
}

func (p *Plugin) handlePage(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		handlers.JSONError(w, "user_id required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	page, err := p.cache.Page(userID, limit, offset)
	if errors.Is(err, search.ErrExpired) {
		handlers.JSONError(w, search.ErrExpired.Error(), http.StatusGone)
		return
	}
	if err != nil {
		handlers.JSONError(w, "internal error", http.StatusInternalServerError)
		return
	}
	handlers.JSONResponse(w, page)
}
