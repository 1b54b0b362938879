// Package reports is the registration tracker plugin: monthly and
// quarterly calendar-windowed reports over the catalog dataset.
package reports

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"nsiwatch/internal/calendar"
	"nsiwatch/internal/catalog"
	"nsiwatch/internal/events"
	"nsiwatch/internal/notify"
	"nsiwatch/internal/plugin"
	"nsiwatch/internal/scheduler"
)

const refreshTimeout = 5 * time.Minute

// snapshotSource is the slice of catalog.Manager the plugin needs.
type snapshotSource interface {
	Refresh(ctx context.Context) error
	Current() *catalog.Snapshot
}

type Plugin struct {
	plugin.Base
	catalogs snapshotSource
	bus      *events.Bus
	now      func() time.Time
}

func New(catalogs snapshotSource, bus *events.Bus) *Plugin {
	return &Plugin{
		Base: plugin.Base{
			PluginName:    "reports",
			PluginVersion: "1.0.0",
			Display:       "Registration reports",
			Desc:          "Monthly and quarterly document-type registration reports",
			Access:        plugin.AccessAll,
		},
		catalogs: catalogs,
		bus:      bus,
		now:      time.Now,
	}
}

// ScheduledTasks registers both report cadences as daily ticks; the
// calendar predicates in the callbacks decide whether a given day
// actually produces output.
func (p *Plugin) ScheduledTasks() []scheduler.Task {
	return []scheduler.Task{
		{Name: "monthly-report", Interval: 1, Unit: scheduler.Months, At: "10:00", Run: p.runMonthly},
		{Name: "quarterly-report", Interval: 1, Unit: scheduler.Quarters, At: "10:00", Run: p.runQuarterly},
	}
}

// runMonthly fires on every month start except quarter starts, where
// the quarterly report takes over entirely.
func (p *Plugin) runMonthly() {
	now := p.now()
	if !calendar.MonthStart(now) || calendar.QuarterStart(now) {
		return
	}
	p.publish(catalog.MonthlyReport, now)
}

func (p *Plugin) runQuarterly() {
	now := p.now()
	if !calendar.QuarterStart(now) {
		return
	}
	p.publish(catalog.QuarterlyReport, now)
}

func (p *Plugin) publish(render func(*catalog.Snapshot, time.Time) string, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	// A failed refresh still reports from the previous snapshot.
	if err := p.catalogs.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("reports: catalog refresh failed, using current snapshot")
	}

	snap := p.catalogs.Current()
	if snap == nil {
		log.Error().Msg("reports: no catalog snapshot available, skipping report")
		return
	}

	p.bus.Publish(events.Event{
		Type:      events.ReportReady,
		Message:   render(snap, now),
		Silent:    notify.Silent(now),
		Timestamp: now,
	})
}
