package notify

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

const artworkFetchTimeout = 5 * time.Second

// ArtworkCache downloads remote artwork to local files so notification
// servers, which only accept file paths, can display cover images.
type ArtworkCache struct {
	dir    string
	client *http.Client
}

// NewArtworkCache creates a cache under the XDG cache directory.
func NewArtworkCache() (*ArtworkCache, error) {
	dir := filepath.Join(xdg.CacheHome, "cadence", "artwork")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ArtworkCache{
		dir:    dir,
		client: &http.Client{Timeout: artworkFetchTimeout},
	}, nil
}

// Fetch returns a local file path for the artwork at url, downloading
// it on first use. Returns "" when the URL is empty or the download
// fails; notifications then render without an icon.
func (c *ArtworkCache) Fetch(url string) string {
	if url == "" {
		return ""
	}

	sum := sha1.Sum([]byte(url))
	path := filepath.Join(c.dir, hex.EncodeToString(sum[:]))

	if _, err := os.Stat(path); err == nil {
		return path
	}

	resp, err := c.client.Get(url)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ""
	}
	_, err = io.Copy(f, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmp)
		return ""
	}
	if err := os.Rename(tmp, path); err != nil {
		return ""
	}
	return path
}
