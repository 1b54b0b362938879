package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"nsiwatch/internal/authority"
	"nsiwatch/internal/config"
	"nsiwatch/internal/events"
	"nsiwatch/internal/store"
)

var refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nsiwatch_catalog_refresh_total",
	Help: "Catalog refresh attempts by outcome.",
}, []string{"outcome"})

// Manager owns the in-memory catalog snapshot. Refreshes replace the
// snapshot wholesale, so concurrent readers never observe a partially
// loaded dataset.
type Manager struct {
	db     *sql.DB
	client *authority.Client
	bus    *events.Bus
	oid    string
	dir    string

	mu      sync.Mutex // serializes Refresh
	current atomic.Pointer[Snapshot]
}

func NewManager(db *sql.DB, client *authority.Client, bus *events.Bus, cfg *config.Config) *Manager {
	return &Manager{
		db:     db,
		client: client,
		bus:    bus,
		oid:    cfg.CatalogOID,
		dir:    cfg.FilesDir,
	}
}

// Current returns the active snapshot, or nil before the first
// successful refresh.
func (m *Manager) Current() *Snapshot {
	return m.current.Load()
}

// Refresh resolves the latest known catalog version, downloads its
// dataset, and swaps in a new snapshot. A refresh to the version
// already loaded is a no-op.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	version, err := m.resolveVersion(ctx)
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("resolve catalog version: %w", err)
	}

	if cur := m.current.Load(); cur != nil && cur.Version == version {
		refreshTotal.WithLabelValues("unchanged").Inc()
		return nil
	}

	path, err := m.client.DownloadCatalog(ctx, m.oid, version, m.dir)
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("download catalog: %w", err)
	}

	records, err := Load(path)
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("load catalog: %w", err)
	}

	snap := NewSnapshot(version, records)
	m.current.Store(snap)
	refreshTotal.WithLabelValues("ok").Inc()

	log.Info().
		Str("oid", m.oid).
		Str("version", version).
		Int("records", snap.Len()).
		Msg("Catalog snapshot refreshed")

	if m.bus != nil {
		m.bus.Publish(events.Event{
			Type:       events.CatalogRefreshed,
			Dictionary: m.oid,
			Message:    fmt.Sprintf("Catalog %s refreshed to version %s", m.oid, version),
			Metadata: map[string]string{
				"version": version,
				"records": strconv.Itoa(snap.Len()),
			},
			Timestamp: time.Now(),
		})
	}
	return nil
}

// resolveVersion prefers the version persisted by the update pipeline;
// a cold store falls back to asking the authority directly.
func (m *Manager) resolveVersion(ctx context.Context) (string, error) {
	version, err := store.LatestVersion(m.db, m.oid)
	if err != nil {
		return "", err
	}
	if version != "" {
		return version, nil
	}
	p, err := m.client.FetchPassport(ctx, m.oid)
	if err != nil {
		return "", err
	}
	return p.Version, nil
}
