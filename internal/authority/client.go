// Package authority talks to the remote publisher of versioned
// reference dictionaries: passport metadata lookups and catalog
// dataset downloads.
package authority

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"nsiwatch/internal/config"
	"nsiwatch/internal/store"
)

// publishDate layout used by the authority, e.g. "17.03.2025 14:05".
const publishDateFormat = "02.01.2006 15:04"

const requestTimeout = 30 * time.Second

// Client is the HTTP client for the authority API.
type Client struct {
	apiURL   string
	filesURL string
	userKey  string
	linkBase string
	http     *http.Client
}

// NewClient builds a client from the process configuration. When a CA
// certificate is configured it is added to the TLS root pool (the
// authority runs on a national CA not present in system roots).
func NewClient(cfg *config.Config) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.CACertPath != "" {
		pem, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("read authority CA certificate: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("authority CA certificate %s: no PEM certificates found", cfg.CACertPath)
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool}
	}

	return &Client{
		apiURL:   cfg.AuthorityURL,
		filesURL: cfg.AuthorityFiles,
		userKey:  cfg.AuthorityKey,
		linkBase: cfg.LinkBase,
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
	}, nil
}

// PassportLink returns the public deep link for one passport version.
func (c *Client) PassportLink(oid, version string) string {
	return fmt.Sprintf("%s/dictionaries/%s/passport/%s", c.linkBase, oid, version)
}

// passportResponse mirrors the authority's searchDictionary payload.
type passportResponse struct {
	List []passportEntry `json:"list"`
}

type passportEntry struct {
	OID          string  `json:"oid"`
	FullName     string  `json:"fullName"`
	ShortName    string  `json:"shortName"`
	PublishDate  string  `json:"publishDate"`
	Version      string  `json:"version"`
	ReleaseNotes *string `json:"releaseNotes"`
}

// FetchPassport retrieves the latest passport metadata for a
// dictionary. Timeouts and connection failures come back as
// *NetworkError; incomplete payloads as *ValidationError. No state is
// mutated on any failure path.
func (c *Client) FetchPassport(ctx context.Context, oid string) (*store.Passport, error) {
	u := fmt.Sprintf("%s/searchDictionary?userKey=%s&identifier=%s",
		c.apiURL, url.QueryEscape(c.userKey), url.QueryEscape(oid))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build passport request for %s: %w", oid, err)
	}
	req.Header.Set("Accept", "application/json;charset=UTF-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{OID: oid, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{OID: oid, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var payload passportResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ValidationError{OID: oid, Reason: fmt.Sprintf("bad JSON: %v", err)}
	}
	if len(payload.List) == 0 {
		return nil, &ValidationError{OID: oid, Reason: "empty dictionary list"}
	}

	entry := payload.List[0]
	for field, value := range map[string]string{
		"oid":         entry.OID,
		"fullName":    entry.FullName,
		"shortName":   entry.ShortName,
		"publishDate": entry.PublishDate,
		"version":     entry.Version,
	} {
		if value == "" {
			return nil, &ValidationError{OID: oid, Reason: fmt.Sprintf("missing required field %q", field)}
		}
	}

	published, err := time.ParseInLocation(publishDateFormat, entry.PublishDate, time.Local)
	if err != nil {
		return nil, &ValidationError{OID: oid, Reason: fmt.Sprintf("bad publishDate %q", entry.PublishDate)}
	}

	p := &store.Passport{
		OID:        entry.OID,
		FullName:   entry.FullName,
		ShortName:  entry.ShortName,
		Version:    entry.Version,
		LastUpdate: published,
	}
	// releaseNotes is the one field allowed to be null.
	if entry.ReleaseNotes != nil {
		p.ReleaseNotes = *entry.ReleaseNotes
	}

	log.Debug().Str("dictionary", oid).Str("version", p.Version).Msg("authority: passport fetched")
	return p, nil
}
