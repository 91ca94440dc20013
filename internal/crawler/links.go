package crawler

import (
	"io"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// mediaExtensions are file types that are reported but never crawled.
var mediaExtensions = []string{
	"svg", "js", "mp4", "mp3", "avi", "jpg", "jpeg", "png", "pdf", "gif", "webp", "xml",
	"css", "ico", "woff", "woff2", "zip",
}

// Attribute is a link-carrying attribute of an HTML element.
type Attribute struct {
	Name  string
	Value string
}

// ExtractLinkAttributes returns one attribute per element that carries src
// or href, in document order. When an element has both, href is used.
func ExtractLinkAttributes(r io.Reader) ([]Attribute, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var attrs []Attribute
	goquery.NewDocumentFromNode(root).Find("[src],[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			attrs = append(attrs, Attribute{Name: "href", Value: href})
			return
		}
		src, _ := s.Attr("src")
		attrs = append(attrs, Attribute{Name: "src", Value: src})
	})
	return attrs, nil
}

// ResolveLink turns an attribute value into a URL. An absolute http or https
// URL is returned as is; anything else is appended to target with its
// leading slashes removed.
func ResolveLink(target, value string) string {
	value = strings.TrimSpace(value)
	if isAbsoluteHTTP(value) {
		return value
	}
	return target + strings.TrimLeft(value, "/")
}

// ExtractLinks parses body and returns the resolved links without
// duplicates, in first-seen order.
func ExtractLinks(target string, body io.Reader) ([]string, error) {
	attrs, err := ExtractLinkAttributes(body)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(attrs))
	links := make([]string, 0, len(attrs))
	for _, a := range attrs {
		link := ResolveLink(target, a.Value)
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}
	return links, nil
}

// IsMedia reports whether the URL path ends in a media file extension.
func IsMedia(urlPath string) bool {
	return slices.Contains(mediaExtensions, extension(urlPath))
}

// extension returns the lower-cased extension of p without the dot.
func extension(p string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
