package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors.
// These errors are returned by Config.Validate() and related helpers so that
// callers can use errors.Is() for programmatic handling.
var (
	// ErrNoTarget is returned when no target URL is specified.
	ErrNoTarget = errors.New("no target specified: use --url")

	// ErrInvalidURL is returned when the target is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid target url")

	// ErrNoWordlist is returned when fuzz mode is started without a wordlist.
	ErrNoWordlist = errors.New("no wordlist specified: use --wordlist")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidThreads is returned when the worker count is not positive.
	ErrInvalidThreads = errors.New("invalid thread count: must be positive")

	// ErrInvalidRetries is returned when the retry limit is negative.
	ErrInvalidRetries = errors.New("invalid retries: must be non-negative")

	// ErrInvalidDepth is returned when the crawl depth is negative.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidDelay is returned when the inter-request delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidRate is returned when the requests-per-second limit is negative.
	ErrInvalidRate = errors.New("invalid rate: must be non-negative")

	// ErrInvalidMethod is returned for an HTTP method outside the supported set.
	ErrInvalidMethod = errors.New("invalid http method")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrTorWithProxies is returned when --tor is combined with --proxies.
	ErrTorWithProxies = errors.New("conflicting transports: --tor cannot be used together with --proxies")

	// ErrExcludedTarget is returned when the target host is in the exclude list.
	ErrExcludedTarget = errors.New("target host is excluded")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)

// Delimiter grammar errors.
// A *ParseError wraps exactly one of these kinds.
var (
	// ErrMissingSeparator is returned when a key/value token has no '=' or a
	// proxy token has no ';'.
	ErrMissingSeparator = errors.New("missing separator")

	// ErrEmptyKey is returned when a token has nothing before its separator.
	ErrEmptyKey = errors.New("empty key")

	// ErrEmptyValue is returned when a token has nothing after its separator.
	ErrEmptyValue = errors.New("empty value")

	// ErrEmptyListItem is returned when a comma list contains an empty item.
	ErrEmptyListItem = errors.New("empty list item")

	// ErrUnsupportedScheme is returned when a proxy mapping names a scheme
	// other than http or https.
	ErrUnsupportedScheme = errors.New("unsupported proxy scheme")

	// ErrInvalidProxyURL is returned when a proxy URL cannot be parsed.
	ErrInvalidProxyURL = errors.New("invalid proxy url")
)

// ParseError describes a malformed token in one of the delimiter grammars.
type ParseError struct {
	// Field is the option being parsed, such as "headers" or "proxies".
	Field string
	// Token is the offending token exactly as the user wrote it.
	Token string
	// Err is the error kind.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s token %q: %v", e.Field, e.Token, e.Err)
}

// Unwrap returns the error kind so errors.Is works with the sentinels above.
func (e *ParseError) Unwrap() error {
	return e.Err
}
