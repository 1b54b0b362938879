package notify

import (
	"database/sql"
	"fmt"
)

// Migrate creates the delivery history table.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS notification_history (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT,
			event_type    TEXT NOT NULL,
			target        TEXT NOT NULL,
			message       TEXT NOT NULL,
			silent        INTEGER DEFAULT 0,
			status        TEXT NOT NULL DEFAULT 'pending',
			error_message TEXT,
			sent_at       TEXT,
			created_at    TEXT DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_notif_history_created ON notification_history(created_at);`)
	if err != nil {
		return fmt.Errorf("notification history migration: %w", err)
	}
	return nil
}
