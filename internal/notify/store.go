package notify

import (
	"database/sql"
	"fmt"
	"time"
)

const timeFormat = "2006-01-02 15:04:05"

// RecordDelivery appends one delivery attempt to the history.
func RecordDelivery(db *sql.DB, rec *Record) error {
	var sentAt interface{}
	if !rec.SentAt.IsZero() {
		sentAt = rec.SentAt.Format(timeFormat)
	}
	_, err := db.Exec(`
		INSERT INTO notification_history
			(run_id, event_type, target, message, silent, status, error_message, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.EventType, rec.Target, rec.Message,
		boolInt(rec.Silent), rec.Status, rec.Error, sentAt)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// RecentDeliveries returns the newest history rows, newest first.
func RecentDeliveries(db *sql.DB, limit int) ([]Record, error) {
	rows, err := db.Query(`
		SELECT id, COALESCE(run_id,''), event_type, target, message, silent,
		       status, COALESCE(error_message,''), COALESCE(sent_at,''), created_at
		FROM notification_history
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent deliveries: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var silent int
		var sentAt, createdAt string
		if err := rows.Scan(&r.ID, &r.RunID, &r.EventType, &r.Target, &r.Message,
			&silent, &r.Status, &r.Error, &sentAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan delivery row: %w", err)
		}
		r.Silent = silent == 1
		if sentAt != "" {
			r.SentAt, _ = time.Parse(timeFormat, sentAt)
		}
		r.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
