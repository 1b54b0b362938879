package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Activity is one recorded user interaction.
type Activity struct {
	UserID   int64     `json:"user_id"`
	Activity string    `json:"activity"`
	At       time.Time `json:"at"`
}

// UserCount aggregates activity per user for the statistics plugin.
type UserCount struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
	Count    int64  `json:"count"`
}

// RecordActivity registers the user on first contact and appends one
// activity row. Failures here must never break request handling, so
// callers only log the returned error.
func RecordActivity(db *sql.DB, userID int64, username, activity string) error {
	now := time.Now().UTC().Format(timeFormat)

	_, err := db.Exec(`
		INSERT INTO users (id, username, first_seen) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username`,
		userID, username, now)
	if err != nil {
		return fmt.Errorf("record user %d: %w", userID, err)
	}

	_, err = db.Exec(`
		INSERT INTO user_activity (user_id, activity, at) VALUES (?, ?, ?)`,
		userID, activity, now)
	if err != nil {
		return fmt.Errorf("record activity for %d: %w", userID, err)
	}
	return nil
}

// ActivityBetween returns activity rows in [from, to), oldest first.
func ActivityBetween(db *sql.DB, from, to time.Time) ([]Activity, error) {
	rows, err := db.Query(`
		SELECT user_id, activity, at FROM user_activity
		WHERE at >= ? AND at < ?
		ORDER BY at`,
		from.UTC().Format(timeFormat), to.UTC().Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("activity between: %w", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		var at string
		if err := rows.Scan(&a.UserID, &a.Activity, &at); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		a.At = parseTime(at)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ActivitySummary returns per-user activity counts since the given
// time, busiest users first.
func ActivitySummary(db *sql.DB, since time.Time) ([]UserCount, error) {
	rows, err := db.Query(`
		SELECT a.user_id, COALESCE(u.username,''), COUNT(*) AS n
		FROM user_activity a
		LEFT JOIN users u ON u.id = a.user_id
		WHERE a.at >= ?
		GROUP BY a.user_id
		ORDER BY n DESC`,
		since.UTC().Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("activity summary: %w", err)
	}
	defer rows.Close()

	var out []UserCount
	for rows.Next() {
		var c UserCount
		if err := rows.Scan(&c.UserID, &c.Username, &c.Count); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
