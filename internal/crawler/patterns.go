package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// shouldFollow applies the ignore and follow patterns to the URL path.
// An ignored path is never followed. With follow patterns set, the path
// must match one of them.
func (c *Crawler) shouldFollow(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range c.ignorePatterns {
		if matchPattern(pattern, p) {
			return false
		}
	}
	if len(c.followPatterns) == 0 {
		return true
	}
	for _, pattern := range c.followPatterns {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// matchPattern matches a URL path against a glob.
//
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches the extension anywhere
//   - other patterns use filepath.Match, against the base name too when the
//     pattern has no slash
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") && strings.HasSuffix(p, ext) {
		return true
	}

	if matched, err := filepath.Match(pattern, p); err == nil && matched {
		return true
	}
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(p)); err == nil && matched {
			return true
		}
	}
	return false
}
