package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Proxy schemes that may be routed through a proxy, and the proxy URL
// schemes net/http can dial.
var (
	proxiedSchemes   = map[string]bool{"http": true, "https": true}
	proxyURLSchemes  = map[string]bool{"http": true, "https": true, "socks5": true, "socks5h": true}
	targetURLSchemes = map[string]bool{"http": true, "https": true}
)

// ParseKeyValues parses the "key=value&key=value" grammar used for headers
// and cookies. Only the first '=' of a token separates key from value, so
// values may themselves contain '='. An empty input yields an empty map.
//
// A later duplicate key overwrites an earlier one.
func ParseKeyValues(field, input string) (map[string]string, error) {
	result := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return result, nil
	}

	for _, token := range strings.Split(input, "&") {
		key, value, found := strings.Cut(token, "=")
		if !found {
			return nil, &ParseError{Field: field, Token: token, Err: ErrMissingSeparator}
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, &ParseError{Field: field, Token: token, Err: ErrEmptyKey}
		}
		result[key] = value
	}
	return result, nil
}

// ParseProxies parses the "scheme;url,scheme;url" grammar into a map from
// the proxied URL scheme to the proxy URL.
func ParseProxies(input string) (map[string]string, error) {
	const field = "proxies"

	result := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return result, nil
	}

	for _, token := range strings.Split(input, ",") {
		scheme, rawURL, found := strings.Cut(token, ";")
		if !found {
			return nil, &ParseError{Field: field, Token: token, Err: ErrMissingSeparator}
		}
		scheme = strings.ToLower(strings.TrimSpace(scheme))
		rawURL = strings.TrimSpace(rawURL)
		if scheme == "" {
			return nil, &ParseError{Field: field, Token: token, Err: ErrEmptyKey}
		}
		if rawURL == "" {
			return nil, &ParseError{Field: field, Token: token, Err: ErrEmptyValue}
		}
		if !proxiedSchemes[scheme] {
			return nil, &ParseError{Field: field, Token: token, Err: ErrUnsupportedScheme}
		}
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" || !proxyURLSchemes[strings.ToLower(u.Scheme)] {
			return nil, &ParseError{Field: field, Token: token, Err: ErrInvalidProxyURL}
		}
		result[scheme] = rawURL
	}
	return result, nil
}

// ParseList parses a comma separated list. Surrounding whitespace of each
// item is trimmed. An empty input yields a nil slice; an empty item inside
// a non-empty input is an error.
func ParseList(field, input string) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}

	var items []string
	for _, token := range strings.Split(input, ",") {
		item := strings.TrimSpace(token)
		if item == "" {
			return nil, &ParseError{Field: field, Token: token, Err: ErrEmptyListItem}
		}
		items = append(items, item)
	}
	return items, nil
}

// ParseExtensions parses the extension list. A leading '.' is optional:
// "php,.txt" yields ["php", "txt"].
func ParseExtensions(input string) ([]string, error) {
	items, err := ParseList("extensions", input)
	if err != nil {
		return nil, err
	}
	exts := make([]string, 0, len(items))
	for _, item := range items {
		ext := strings.TrimLeft(item, ".")
		if ext == "" {
			return nil, &ParseError{Field: "extensions", Token: item, Err: ErrEmptyListItem}
		}
		exts = append(exts, ext)
	}
	return exts, nil
}

// NormalizeTarget validates the target URL and returns it with a trailing
// slash so that target+word forms a well-formed payload.
// Query strings and fragments are rejected because words are appended to the
// end of the URL.
func NormalizeTarget(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoTarget
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !targetURLSchemes[strings.ToLower(u.Scheme)] {
		return "", fmt.Errorf("%w: scheme must be http or https: %s", ErrInvalidURL, raw)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host: %s", ErrInvalidURL, raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("%w: query and fragment are not allowed: %s", ErrInvalidURL, raw)
	}

	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String(), nil
}

// HostExcluded reports whether host equals one of the excluded domains or is
// a subdomain of one. host must not carry a port. Comparison is
// case-insensitive.
func HostExcluded(host string, excluded []string) bool {
	host = strings.ToLower(host)
	for _, domain := range excluded {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
