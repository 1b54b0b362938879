package events

import "time"

// EventType identifies the kind of event being published.
type EventType string

const (
	// UpdateDetected fires once per newly persisted passport version.
	UpdateDetected EventType = "update_detected"

	// ReportReady carries a finished monthly or quarterly
	// registration report.
	ReportReady EventType = "report_ready"

	// CatalogRefreshed fires after the in-memory catalog snapshot is
	// replaced with a freshly downloaded dataset.
	CatalogRefreshed EventType = "catalog_refreshed"
)

// Event is the payload published through the bus. For UpdateDetected
// and ReportReady the Message field holds the fully formatted
// notification text; delivery never reformats it.
type Event struct {
	Type       EventType         `json:"type"`
	Dictionary string            `json:"dictionary,omitempty"`
	Message    string            `json:"message"`
	Silent     bool              `json:"silent"`
	RunID      string            `json:"run_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}
