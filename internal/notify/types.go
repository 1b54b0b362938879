package notify

import "time"

// Style selects the formatter variant for a dictionary's update
// notifications.
type Style string

const (
	// StyleImportant is for dictionaries feeding critical systems:
	// full detail, hashtags, warning framing.
	StyleImportant Style = "important"
	// StyleDefault is the ordinary full-detail notification.
	StyleDefault Style = "default"
	// StyleMinor is a one-line compact notification for dictionaries
	// that update often.
	StyleMinor Style = "minor"
)

// Record is one delivery attempt from notification_history.
type Record struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id,omitempty"`
	EventType string    `json:"event_type"`
	Target    string    `json:"target"`
	Message   string    `json:"message"`
	Silent    bool      `json:"silent"`
	Status    string    `json:"status"`
	Error     string    `json:"error_message,omitempty"`
	SentAt    time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
