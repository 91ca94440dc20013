package filter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"

	"golang.org/x/net/html/charset"

	"github.com/nao1215/webcrawler/internal/model"
)

// ErrInvalidRegex is returned by ParseSpec for a pattern that does not compile.
var ErrInvalidRegex = errors.New("invalid filter regex")

// Kind identifies the active filter.
type Kind int

const (
	// KindNone shows every response.
	KindNone Kind = iota
	// KindStatus hides by status code.
	KindStatus
	// KindLength hides by Content-Length header.
	KindLength
	// KindServer hides by Server header.
	KindServer
	// KindRegex hides by a pattern over header values and body.
	KindRegex
)

// String returns the name of the filter kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindStatus:
		return "status"
	case KindLength:
		return "content-length"
	case KindServer:
		return "server"
	case KindRegex:
		return "regex"
	default:
		return "unknown"
	}
}

// Spec holds the configured hide filters.
// The zero value hides nothing.
type Spec struct {
	Status  []string
	Lengths []string
	Servers []string
	Regex   *regexp.Regexp
}

// ParseSpec builds a Spec from CLI values. An empty pattern disables the
// regex filter.
func ParseSpec(status, lengths, servers []string, pattern string) (Spec, error) {
	spec := Spec{Status: status, Lengths: lengths, Servers: servers}
	if pattern == "" {
		return spec, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Spec{}, fmt.Errorf("%w: %v", ErrInvalidRegex, err)
	}
	spec.Regex = re
	return spec, nil
}

// Active returns the filter kind that Hide evaluates.
func (s Spec) Active() Kind {
	switch {
	case len(s.Status) > 0:
		return KindStatus
	case len(s.Lengths) > 0:
		return KindLength
	case len(s.Servers) > 0:
		return KindServer
	case s.Regex != nil:
		return KindRegex
	default:
		return KindNone
	}
}

// Hide reports whether resp matches the active filter and must not be shown.
// It has no side effects.
func (s Spec) Hide(resp *model.Response) bool {
	switch s.Active() {
	case KindStatus:
		return slices.Contains(s.Status, resp.Status())
	case KindLength:
		return slices.Contains(s.Lengths, resp.ContentLength)
	case KindServer:
		return slices.Contains(s.Servers, resp.Server)
	case KindRegex:
		return s.matchRegex(resp)
	default:
		return false
	}
}

// matchRegex checks every header value first, then the decoded body.
func (s Spec) matchRegex(resp *model.Response) bool {
	for _, values := range resp.Headers {
		for _, v := range values {
			if s.Regex.MatchString(v) {
				return true
			}
		}
	}
	return s.Regex.Match(decodeBody(resp.Body, resp.ContentType))
}

// decodeBody converts body to UTF-8 using the declared or sniffed charset.
// The raw bytes are returned when decoding fails.
func decodeBody(body []byte, contentType string) []byte {
	if len(body) == 0 {
		return body
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return decoded
}
