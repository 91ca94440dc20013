package crawler

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// downloader saves discovered files to a directory.
type downloader struct {
	fetcher    Fetcher
	dir        string
	extensions []string
	names      map[string]int
}

func newDownloader(fetcher Fetcher, dir string, extensions []string) *downloader {
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		exts = append(exts, strings.ToLower(strings.TrimPrefix(ext, ".")))
	}
	if dir == "" {
		dir = "."
	}
	return &downloader{
		fetcher:    fetcher,
		dir:        dir,
		extensions: exts,
		names:      make(map[string]int),
	}
}

// wants reports whether the URL path has a download extension.
func (d *downloader) wants(urlPath string) bool {
	ext := extension(urlPath)
	return ext != "" && slices.Contains(d.extensions, ext)
}

// save fetches rawURL and writes the body to the download directory. It
// returns the written path.
func (d *downloader) save(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	resp, err := d.fetcher.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(d.dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	dest := filepath.Join(d.dir, d.fileName(u))
	if err := os.WriteFile(dest, resp.Body, 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return dest, nil
}

// fileName returns a name for u that no earlier download of this crawl
// used. Repeated base names get a numeric suffix before the extension.
func (d *downloader) fileName(u *url.URL) string {
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		base = "index"
	}

	n := d.names[base]
	d.names[base] = n + 1
	if n == 0 {
		return base
	}
	ext := path.Ext(base)
	return strings.TrimSuffix(base, ext) + "-" + strconv.Itoa(n) + ext
}
