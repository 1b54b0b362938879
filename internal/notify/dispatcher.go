// Package notify formats update notifications and fans them out to
// the configured subscribers.
package notify

import (
	"database/sql"
	"strings"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	shoutrrrtypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/rs/zerolog/log"

	"nsiwatch/internal/events"
)

// Sender abstracts message dispatch so the dispatcher can be tested
// without hitting real services.
type Sender interface {
	Send(targetURL, message string, silent bool) error
}

// ShoutrrrSender dispatches via the Shoutrrr library. A silent
// delivery is requested through the cross-service "notification"
// parameter; services without the notion ignore it.
type ShoutrrrSender struct{}

func (ShoutrrrSender) Send(targetURL, message string, silent bool) error {
	sender, err := shoutrrr.CreateSender(targetURL)
	if err != nil {
		return err
	}
	params := shoutrrrtypes.Params{}
	if silent {
		params["notification"] = "no"
	}
	for _, err := range sender.Send(message, &params) {
		if err != nil {
			return err
		}
	}
	return nil
}

// Dispatcher subscribes to the event bus and delivers every update
// and report event to the ordered subscriber list. Delivery is
// best-effort and at-most-once per event: a failure on one subscriber
// is logged and recorded, and never blocks the remaining subscribers.
type Dispatcher struct {
	db          *sql.DB
	subscribers []string
	sender      Sender
}

// NewDispatcher creates a dispatcher for the given subscriber list.
// A nil sender selects the real Shoutrrr sender.
func NewDispatcher(db *sql.DB, subscribers []string, sender Sender) *Dispatcher {
	if sender == nil {
		sender = ShoutrrrSender{}
	}
	return &Dispatcher{db: db, subscribers: subscribers, sender: sender}
}

// Attach subscribes the dispatcher to the deliverable event types.
func (d *Dispatcher) Attach(bus *events.Bus) {
	bus.Subscribe(d.Handle, events.UpdateDetected, events.ReportReady)
}

// Handle fans one event out to every subscriber in order.
func (d *Dispatcher) Handle(e events.Event) {
	if len(d.subscribers) == 0 {
		log.Warn().Str("event", string(e.Type)).Msg("notify: no subscribers configured")
		return
	}

	for _, target := range d.subscribers {
		rec := &Record{
			RunID:     e.RunID,
			EventType: string(e.Type),
			Target:    maskTarget(target),
			Message:   e.Message,
			Silent:    e.Silent,
		}

		if err := d.sender.Send(target, e.Message, e.Silent); err != nil {
			rec.Status = "failed"
			rec.Error = err.Error()
			log.Error().Str("event", string(e.Type)).Str("target", rec.Target).Err(err).
				Msg("notify: delivery failed")
		} else {
			rec.Status = "sent"
			rec.SentAt = time.Now().UTC()
			log.Debug().Str("event", string(e.Type)).Str("target", rec.Target).
				Bool("silent", e.Silent).Msg("notify: delivered")
		}

		if err := RecordDelivery(d.db, rec); err != nil {
			log.Error().Err(err).Msg("notify: record history")
		}
	}
}

// maskTarget strips everything after the service scheme so that
// tokens embedded in subscriber URLs never reach logs or the history
// table.
func maskTarget(target string) string {
	if scheme, _, found := strings.Cut(target, "://"); found {
		return scheme + "://***"
	}
	return "***"
}
