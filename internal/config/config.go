package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is built once at startup and passed to every component
// constructor. Components never read the environment themselves.
type Config struct {
	Env      string // "development" or "production"
	LogLevel string

	Port   string
	DBPath string

	// FilesDir holds downloaded catalog archives.
	FilesDir string

	// Remote authority endpoints and credentials.
	AuthorityURL   string
	AuthorityKey   string
	AuthorityFiles string
	CACertPath     string

	// LinkBase is the public site used for passport deep links in
	// notifications.
	LinkBase string

	// Subscribers is the ordered list of delivery target URLs
	// (Shoutrrr format). Fan-out iterates it in order.
	Subscribers []string

	// AdminIDs are the user IDs allowed to use admin-level plugins.
	AdminIDs []int64

	// CatalogOID identifies the dictionary whose dataset backs the
	// interactive search and the registration reports.
	CatalogOID string

	SearchCacheSize int
	SearchCacheTTL  time.Duration
}

// Load returns the configuration from environment variables.
func Load() *Config {
	return &Config{
		Env:      getEnv("ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Port:     getEnv("PORT", "9080"),
		DBPath:   getEnv("DB_PATH", "nsiwatch.db"),
		FilesDir: getEnv("FILES_DIR", "files"),

		AuthorityURL:   getEnv("AUTHORITY_API_URL", ""),
		AuthorityKey:   getEnv("AUTHORITY_API_KEY", ""),
		AuthorityFiles: getEnv("AUTHORITY_FILES_URL", ""),
		CACertPath:     getEnv("AUTHORITY_CA_CERT", ""),

		LinkBase: getEnv("LINK_BASE", "https://nsi.rosminzdrav.ru"),

		Subscribers: splitList(getEnv("SUBSCRIBERS", "")),
		AdminIDs:    parseIDs(getEnv("ADMIN_IDS", "")),

		CatalogOID: getEnv("CATALOG_OID", "1.2.643.5.1.13.13.11.1520"),

		SearchCacheSize: getEnvInt("SEARCH_CACHE_SIZE", 256),
		SearchCacheTTL:  getEnvDuration("SEARCH_CACHE_TTL", 10*time.Minute),
	}
}

// Validate checks the settings the process cannot run without.
// A failure here is fatal at startup and is never recovered from.
func (c *Config) Validate() error {
	if c.AuthorityURL == "" {
		return fmt.Errorf("config: AUTHORITY_API_URL is required")
	}
	if c.AuthorityKey == "" {
		return fmt.Errorf("config: AUTHORITY_API_KEY is required")
	}
	if c.AuthorityFiles == "" {
		return fmt.Errorf("config: AUTHORITY_FILES_URL is required")
	}
	if c.CACertPath != "" {
		if _, err := os.Stat(c.CACertPath); err != nil {
			return fmt.Errorf("config: authority CA certificate %s: %w", c.CACertPath, err)
		}
	}
	return nil
}

// Development reports whether the process runs with shortened schedules.
func (c *Config) Development() bool {
	return c.Env == "development"
}

// IsAdmin reports whether userID is in the configured admin set.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseIDs(s string) []int64 {
	var out []int64
	for _, part := range splitList(s) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
