// Package stats is the admin-only usage statistics plugin over the
// interactive activity log.
package stats

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"nsiwatch/internal/handlers"
	"nsiwatch/internal/plugin"
	"nsiwatch/internal/store"
)

type Plugin struct {
	plugin.Base
	db *sql.DB
}

func New(db *sql.DB) *Plugin {
	return &Plugin{
		Base: plugin.Base{
			PluginName:    "stats",
			PluginVersion: "1.0.0",
			Display:       "Usage statistics",
			Desc:          "Per-user interactive usage over a recent window",
			Access:        plugin.AccessAdmin,
		},
		db: db,
	}
}

func (p *Plugin) Commands() []plugin.Route {
	return []plugin.Route{
		{Method: http.MethodGet, Path: "/api/stats", Handler: p.handleStats},
	}
}

func (p *Plugin) handleStats(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 || days > 365 {
		days = 30
	}

	summary, err := store.ActivitySummary(p.db, time.Now().AddDate(0, 0, -days))
	if err != nil {
		log.Error().Err(err).Msg("stats: activity summary")
		handlers.JSONError(w, "internal error", http.StatusInternalServerError)
		return
	}
	handlers.JSONResponse(w, summary)
}
