package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"nsiwatch/internal/authority"
	"nsiwatch/internal/events"
	"nsiwatch/internal/notify"
	"nsiwatch/internal/store"
)

var checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nsiwatch_checks_total",
	Help: "Update pipeline runs by outcome.",
}, []string{"outcome"})

// Checker runs the update pipeline for tracked dictionaries: fetch the
// current passport, diff against the stored version, persist, then
// publish. Persistence always happens before the notification event, so
// a delivery failure can never replay an update.
type Checker struct {
	db     *sql.DB
	client *authority.Client
	bus    *events.Bus
	now    func() time.Time
}

func NewChecker(db *sql.DB, client *authority.Client, bus *events.Bus) *Checker {
	return &Checker{db: db, client: client, bus: bus, now: time.Now}
}

// Check runs one pipeline cycle for a tracked dictionary and reports
// whether a new version was stored. Concurrent checks of the same
// dictionary are safe: the insert's conflict target lets exactly one
// caller observe the update.
func (c *Checker) Check(ctx context.Context, t Tracked) (bool, error) {
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Str("dictionary", t.OID).Logger()

	known, err := store.LatestVersion(c.db, t.OID)
	if err != nil {
		checksTotal.WithLabelValues("store_error").Inc()
		return false, err
	}

	p, err := c.client.FetchPassport(ctx, t.OID)
	if err != nil {
		checksTotal.WithLabelValues(outcomeFor(err)).Inc()
		return false, err
	}

	if p.Version == known {
		checksTotal.WithLabelValues("no_change").Inc()
		return false, nil
	}

	inserted, err := store.InsertIfAbsent(c.db, p)
	if err != nil {
		checksTotal.WithLabelValues("store_error").Inc()
		return false, err
	}
	if !inserted {
		// A concurrent check stored this version first; its run
		// owns the notification.
		checksTotal.WithLabelValues("no_change").Inc()
		return false, nil
	}

	checksTotal.WithLabelValues("update").Inc()
	logger.Info().Str("version", p.Version).Str("previous", known).
		Msg("pipeline: new dictionary version stored")

	if !t.Notify {
		logger.Debug().Msg("pipeline: notifications suppressed for dictionary")
		return true, nil
	}

	now := c.now()
	link := c.client.PassportLink(t.OID, p.Version)
	c.bus.Publish(events.Event{
		Type:       events.UpdateDetected,
		Dictionary: t.OID,
		Message:    notify.ForStyle(t.Style).Format(p, link),
		Silent:     notify.Silent(now),
		RunID:      runID,
		Timestamp:  now,
	})
	return true, nil
}

// CheckAll runs the pipeline over the whole watch list. Per-dictionary
// failures are logged and never abort the sweep, so one unreachable
// dictionary cannot starve the rest.
func (c *Checker) CheckAll(ctx context.Context) {
	for _, t := range TrackedDictionaries() {
		if _, err := c.Check(ctx, t); err != nil {
			log.Warn().Str("dictionary", t.OID).Err(err).
				Msg("pipeline: check failed")
		}
	}
}

func outcomeFor(err error) string {
	var verr *authority.ValidationError
	if errors.As(err, &verr) {
		return "validation_error"
	}
	return "network_error"
}
