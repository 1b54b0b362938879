package authority

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// ArchiveName returns the file name the authority publishes a catalog
// dataset under.
func ArchiveName(oid, version string) string {
	return fmt.Sprintf("%s_%s_csv.zip", oid, version)
}

// DownloadCatalog fetches the catalog archive for (oid, version) into
// dir and returns its path. The version already on disk is reused.
// Older versions of the same catalog are removed first. The write goes
// through a temp file and a rename, so a failed download never leaves
// a partial archive behind.
func (c *Client) DownloadCatalog(ctx context.Context, oid, version, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create files dir %s: %w", dir, err)
	}

	dest := filepath.Join(dir, ArchiveName(oid, version))
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	// Drop stale versions of this catalog before fetching the new one.
	stale, _ := filepath.Glob(filepath.Join(dir, oid+"_*.zip"))
	for _, f := range stale {
		if err := os.Remove(f); err != nil {
			log.Warn().Str("file", f).Err(err).Msg("authority: could not remove stale archive")
		}
	}

	u := fmt.Sprintf("%s/%s", c.filesURL, ArchiveName(oid, version))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build download request for %s: %w", oid, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &NetworkError{OID: oid, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &NetworkError{OID: oid, Err: fmt.Errorf("download status %s", resp.Status)}
	}

	tmp, err := os.CreateTemp(dir, ArchiveName(oid, version)+".*")
	if err != nil {
		return "", fmt.Errorf("create temp archive: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", &NetworkError{OID: oid, Err: fmt.Errorf("download body: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp archive: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("store catalog archive: %w", err)
	}

	log.Info().Str("dictionary", oid).Str("version", version).Str("file", dest).
		Msg("authority: catalog archive downloaded")
	return dest, nil
}
