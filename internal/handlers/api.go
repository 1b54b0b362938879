package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"nsiwatch/internal/notify"
	"nsiwatch/internal/pipeline"
	"nsiwatch/internal/plugin"
	"nsiwatch/internal/store"
	"nsiwatch/internal/stream"
)

// checkTimeout bounds a manually triggered sweep. The scheduled sweep
// has its own budget; this one only covers fire-and-forget triggers.
const checkTimeout = 5 * time.Minute

// API is the core interactive surface.
type API struct {
	db       *sql.DB
	registry *plugin.Registry
	checker  *pipeline.Checker
	hub      *stream.Hub
}

func New(db *sql.DB, registry *plugin.Registry, checker *pipeline.Checker, hub *stream.Hub) *API {
	return &API{db: db, registry: registry, checker: checker, hub: hub}
}

// Register mounts the core routes.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/dictionaries", a.handleDictionaries)
	mux.HandleFunc("GET /api/dictionaries/{oid}/history", a.handleHistory)
	mux.HandleFunc("POST /api/check", a.handleCheck)
	mux.HandleFunc("GET /api/plugins", a.handlePlugins)
	mux.HandleFunc("GET /api/notifications", a.handleNotifications)
	mux.HandleFunc("GET /api/stream", a.hub.HandleConnection)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.db.PingContext(r.Context()); err != nil {
		JSONError(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	JSONResponse(w, map[string]any{
		"status":  "ok",
		"clients": a.hub.ActiveConnections(),
	})
}

// dictionaryView joins the static watch-list entry with the latest
// stored passport.
type dictionaryView struct {
	OID     string          `json:"oid"`
	Name    string          `json:"name"`
	Style   notify.Style    `json:"style"`
	Notify  bool            `json:"notify"`
	Current *store.Passport `json:"current,omitempty"`
}

func (a *API) handleDictionaries(w http.ResponseWriter, r *http.Request) {
	latest, err := store.LatestPassports(a.db)
	if err != nil {
		log.Error().Err(err).Msg("handlers: list dictionaries")
		JSONError(w, "internal error", http.StatusInternalServerError)
		return
	}
	byOID := make(map[string]*store.Passport, len(latest))
	for i := range latest {
		byOID[latest[i].OID] = &latest[i]
	}

	var views []dictionaryView
	for _, t := range pipeline.TrackedDictionaries() {
		views = append(views, dictionaryView{
			OID:     t.OID,
			Name:    t.Name,
			Style:   t.Style,
			Notify:  t.Notify,
			Current: byOID[t.OID],
		})
	}
	JSONResponse(w, views)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	oid := r.PathValue("oid")
	if _, ok := pipeline.LookupTracked(oid); !ok {
		JSONError(w, "unknown dictionary", http.StatusNotFound)
		return
	}
	history, err := store.VersionHistory(a.db, oid)
	if err != nil {
		log.Error().Err(err).Str("dictionary", oid).Msg("handlers: version history")
		JSONError(w, "internal error", http.StatusInternalServerError)
		return
	}
	JSONResponse(w, history)
}

// handleCheck triggers an update check without blocking the request.
// Racing the scheduled sweep is safe: the store's conflict target keeps
// the diff idempotent.
func (a *API) handleCheck(w http.ResponseWriter, r *http.Request) {
	oid := r.URL.Query().Get("oid")

	if oid != "" {
		t, ok := pipeline.LookupTracked(oid)
		if !ok {
			JSONError(w, "unknown dictionary", http.StatusNotFound)
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
			defer cancel()
			if _, err := a.checker.Check(ctx, t); err != nil {
				log.Warn().Err(err).Str("dictionary", t.OID).Msg("handlers: manual check failed")
			}
		}()
	} else {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
			defer cancel()
			a.checker.CheckAll(ctx)
		}()
	}

	JSONStatus(w, http.StatusAccepted, map[string]string{"status": "check started"})
}

func (a *API) handlePlugins(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	JSONResponse(w, a.registry.AvailablePlugins(userID))
}

func (a *API) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	records, err := notify.RecentDeliveries(a.db, limit)
	if err != nil {
		log.Error().Err(err).Msg("handlers: recent deliveries")
		JSONError(w, "internal error", http.StatusInternalServerError)
		return
	}
	JSONResponse(w, records)
}
