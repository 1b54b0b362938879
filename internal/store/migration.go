package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Migrate creates the version ledger and activity tables.
func Migrate(db *sql.DB) error {
	statements := []struct {
		label string
		sql   string
	}{
		// Append-only ledger of dictionary versions. Rows are never
		// updated or deleted; (oid, version) is the identity.
		{"passports", `
			CREATE TABLE IF NOT EXISTS passports (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				oid           TEXT NOT NULL,
				short_name    TEXT NOT NULL,
				full_name     TEXT NOT NULL,
				version       TEXT NOT NULL,
				last_update   TEXT NOT NULL,
				release_notes TEXT,
				add_date      TEXT NOT NULL,
				UNIQUE(oid, version)
			);`},
		{"passports indexes", `
			CREATE INDEX IF NOT EXISTS idx_passports_oid_update ON passports(oid, last_update);`},

		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id         INTEGER PRIMARY KEY,
				username   TEXT,
				first_seen TEXT NOT NULL
			);`},
		{"user_activity", `
			CREATE TABLE IF NOT EXISTS user_activity (
				id       INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id  INTEGER NOT NULL,
				activity TEXT NOT NULL,
				at       TEXT NOT NULL
			);`},
		{"user_activity indexes", `
			CREATE INDEX IF NOT EXISTS idx_activity_at ON user_activity(at);`},
	}

	for _, s := range statements {
		if _, err := db.Exec(s.sql); err != nil {
			return fmt.Errorf("store migration failed at [%s]: %w", s.label, err)
		}
	}

	log.Debug().Msg("store: migration complete")
	return nil
}
