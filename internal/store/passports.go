// Package store is the durable persistence layer: the append-only
// passport ledger plus the user activity log.
package store

import (
	"database/sql"
	"fmt"
	"time"
)

const timeFormat = "2006-01-02 15:04:05"

// Passport is the authority's version descriptor for one dictionary
// release. A stored passport is immutable.
type Passport struct {
	OID          string    `json:"oid"`
	ShortName    string    `json:"short_name"`
	FullName     string    `json:"full_name"`
	Version      string    `json:"version"`
	LastUpdate   time.Time `json:"last_update"`
	ReleaseNotes string    `json:"release_notes,omitempty"`
	AddDate      time.Time `json:"add_date"`
}

// LatestVersion returns the most recently published version stored for
// the dictionary, or "" when the dictionary has never been seen. The
// empty string is the "unknown version" sentinel: it compares unequal
// to every real version, so the first check always looks like an update.
func LatestVersion(db *sql.DB, oid string) (string, error) {
	var version string
	err := db.QueryRow(`
		SELECT version FROM passports
		WHERE oid = ?
		ORDER BY last_update DESC LIMIT 1`, oid).Scan(&version)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest version for %s: %w", oid, err)
	}
	return version, nil
}

// InsertIfAbsent writes the passport unless a row with the same
// (oid, version) already exists. It reports whether a row was written.
// The conflict target makes concurrent checks of the same dictionary
// race safely: exactly one caller observes true.
func InsertIfAbsent(db *sql.DB, p *Passport) (bool, error) {
	if p.AddDate.IsZero() {
		p.AddDate = time.Now().UTC()
	}
	res, err := db.Exec(`
		INSERT INTO passports (oid, short_name, full_name, version, last_update, release_notes, add_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(oid, version) DO NOTHING`,
		p.OID, p.ShortName, p.FullName, p.Version,
		p.LastUpdate.Format(timeFormat), p.ReleaseNotes, p.AddDate.Format(timeFormat))
	if err != nil {
		return false, fmt.Errorf("insert passport %s v%s: %w", p.OID, p.Version, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert passport %s v%s: rows affected: %w", p.OID, p.Version, err)
	}
	return n == 1, nil
}

// LatestPassport returns the most recent stored passport for the
// dictionary, or nil when none exists.
func LatestPassport(db *sql.DB, oid string) (*Passport, error) {
	row := db.QueryRow(`
		SELECT oid, short_name, full_name, version, last_update, COALESCE(release_notes,''), add_date
		FROM passports
		WHERE oid = ?
		ORDER BY last_update DESC LIMIT 1`, oid)

	p, err := scanPassport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest passport for %s: %w", oid, err)
	}
	return p, nil
}

// LatestPassports returns the newest stored passport of every tracked
// dictionary, ordered by OID.
func LatestPassports(db *sql.DB) ([]Passport, error) {
	rows, err := db.Query(`
		SELECT p.oid, p.short_name, p.full_name, p.version, p.last_update,
		       COALESCE(p.release_notes,''), p.add_date
		FROM passports p
		JOIN (
			SELECT oid, MAX(last_update) AS last_update
			FROM passports GROUP BY oid
		) latest ON p.oid = latest.oid AND p.last_update = latest.last_update
		ORDER BY p.oid`)
	if err != nil {
		return nil, fmt.Errorf("list latest passports: %w", err)
	}
	defer rows.Close()

	var out []Passport
	for rows.Next() {
		p, err := scanPassport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan passport row: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// VersionHistory returns every stored passport of one dictionary,
// newest first.
func VersionHistory(db *sql.DB, oid string) ([]Passport, error) {
	rows, err := db.Query(`
		SELECT oid, short_name, full_name, version, last_update, COALESCE(release_notes,''), add_date
		FROM passports
		WHERE oid = ?
		ORDER BY last_update DESC`, oid)
	if err != nil {
		return nil, fmt.Errorf("version history for %s: %w", oid, err)
	}
	defer rows.Close()

	var out []Passport
	for rows.Next() {
		p, err := scanPassport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan passport row: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanPassport(s scannable) (*Passport, error) {
	var p Passport
	var lastUpdate, addDate string
	err := s.Scan(&p.OID, &p.ShortName, &p.FullName, &p.Version,
		&lastUpdate, &p.ReleaseNotes, &addDate)
	if err != nil {
		return nil, err
	}
	p.LastUpdate = parseTime(lastUpdate)
	p.AddDate = parseTime(addDate)
	return &p, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}
