package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/webcrawler/internal/model"
)

// Default client settings.
const (
	defaultTimeout     = 10 * time.Second
	defaultMaxBodySize = 5 * 1024 * 1024
	maxRedirects       = 10
	proxyProbePath     = "proxy_test"
)

// DialContextFunc dials a network connection. It matches
// http.Transport.DialContext.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Request is one HTTP request issued by a worker or the crawler.
type Request struct {
	Method string
	URL    string
	// Body is sent for methods that carry a body. Empty means no body.
	Body string
}

// Client issues session requests. It is safe for concurrent use.
type Client struct {
	httpClient      *http.Client
	headers         map[string]string
	cookies         map[string]string
	proxies         map[string]*url.URL
	userAgent       string
	randomUserAgent bool
	followRedirects bool
	timeout         time.Duration
	maxBodySize     int64
	dialContext     DialContextFunc
	insecureTLS     bool
}

// Option configures a Client.
type Option func(*Client)

// WithHeaders sets headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithCookies sets cookies sent with every request.
func WithCookies(cookies map[string]string) Option {
	return func(c *Client) {
		c.cookies = cookies
	}
}

// WithUserAgent sets the fixed User-Agent.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRandomUserAgent picks a User-Agent from a fixed pool for every request.
func WithRandomUserAgent(enabled bool) Option {
	return func(c *Client) {
		c.randomUserAgent = enabled
	}
}

// WithFollowRedirects sets whether 3xx responses are followed.
func WithFollowRedirects(enabled bool) Option {
	return func(c *Client) {
		c.followRedirects = enabled
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithMaxBodySize limits how many body bytes are read per response.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		c.maxBodySize = size
	}
}

// WithDialContext routes every connection through dial, e.g. a Tor SOCKS5
// dialer.
func WithDialContext(dial DialContextFunc) Option {
	return func(c *Client) {
		c.dialContext = dial
	}
}

// WithInsecureTLS disables certificate verification.
func WithInsecureTLS(enabled bool) Option {
	return func(c *Client) {
		c.insecureTLS = enabled
	}
}

// New creates a Client. proxies maps a URL scheme to a proxy URL.
func New(proxies map[string]string, opts ...Option) (*Client, error) {
	c := &Client{
		followRedirects: true,
		timeout:         defaultTimeout,
		maxBodySize:     defaultMaxBodySize,
		proxies:         make(map[string]*url.URL, len(proxies)),
	}
	for _, opt := range opts {
		opt(c)
	}

	for scheme, raw := range proxies {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url for %s: %w", scheme, err)
		}
		c.proxies[strings.ToLower(scheme)] = u
	}

	transport := &http.Transport{
		Proxy:               c.proxyFor,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: c.timeout,
		// Bodies are decoded in decodedBody so Content-Length survives.
		DisableCompression: true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: c.insecureTLS, //nolint:gosec // Opt-in for self-signed targets
		},
	}
	if c.dialContext != nil {
		transport.DialContext = c.dialContext
	} else {
		transport.DialContext = (&net.Dialer{Timeout: c.timeout}).DialContext
	}

	c.httpClient = &http.Client{
		Transport: &sessionTransport{base: transport, client: c},
		Timeout:   c.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if !c.followRedirects || len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return c, nil
}

// proxyFor selects the proxy for the request's URL scheme.
func (c *Client) proxyFor(req *http.Request) (*url.URL, error) {
	return c.proxies[req.URL.Scheme], nil
}

// HasProxies reports whether any proxy is configured.
func (c *Client) HasProxies() bool {
	return len(c.proxies) > 0
}

// Do issues req and returns the normalized response.
// A failure without an HTTP response is returned as *TransportError, except
// when ctx is done, in which case ctx.Err() is returned.
func (c *Client) Do(ctx context.Context, req Request) (*model.Response, error) {
	return c.do(ctx, c.httpClient, req)
}

// Get issues a GET request for rawURL.
func (c *Client) Get(ctx context.Context, rawURL string) (*model.Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: rawURL})
}

func (c *Client) do(ctx context.Context, hc *http.Client, req Request) (*model.Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != "" && methodHasBody(method) {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, &TransportError{Kind: KindOther, Method: method, URL: req.URL, Err: err}
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := hc.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransportError{Kind: classify(err), Method: method, URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	reader, err := decodedBody(resp)
	if err != nil {
		return nil, &TransportError{Kind: KindOther, Method: method, URL: req.URL, Err: err}
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, c.maxBodySize))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransportError{Kind: classify(err), Method: method, URL: req.URL, Err: err}
	}

	return model.NewResponse(req.URL, resp.StatusCode, resp.Header, data), nil
}

// CheckTarget verifies that target answers an HTTP request. Redirects are
// not followed; any HTTP response counts as reachable.
func (c *Client) CheckTarget(ctx context.Context, target string) error {
	noRedirect := *c.httpClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	if _, err := c.do(ctx, &noRedirect, Request{Method: http.MethodGet, URL: target}); err != nil {
		return fmt.Errorf("%w %s: %w", ErrTargetUnreachable, target, err)
	}
	return nil
}

// CheckProxy verifies that the configured proxies answer a request for
// target+"proxy_test". It is a no-op without proxies.
func (c *Client) CheckProxy(ctx context.Context, target string) error {
	if !c.HasProxies() {
		return nil
	}
	if _, err := c.Get(ctx, target+proxyProbePath); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyUnreachable, err)
	}
	return nil
}

// nextUserAgent returns the User-Agent for one request.
func (c *Client) nextUserAgent() string {
	if c.randomUserAgent {
		return randomUserAgent()
	}
	return c.userAgent
}

// cookieHeader renders the session cookies in a stable order.
func (c *Client) cookieHeader() string {
	if len(c.cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(c.cookies))
	for name := range c.cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+c.cookies[name])
	}
	return strings.Join(pairs, "; ")
}

// methodHasBody reports whether a request body is sent for method.
func methodHasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// sessionTransport injects the session User-Agent, headers and cookies into
// every request, including those issued while following redirects.
type sessionTransport struct {
	base   http.RoundTripper
	client *Client
}

// RoundTrip implements http.RoundTripper.
func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if ua := t.client.nextUserAgent(); ua != "" {
		clone.Header.Set("User-Agent", ua)
	}
	for key, value := range t.client.headers {
		if strings.EqualFold(key, "Host") {
			clone.Host = value
			continue
		}
		clone.Header.Set(key, value)
	}
	if clone.Header.Get("Accept-Encoding") == "" {
		clone.Header.Set("Accept-Encoding", acceptEncoding)
	}
	if cookie := t.client.cookieHeader(); cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+cookie)
		} else {
			clone.Header.Set("Cookie", cookie)
		}
	}

	return t.base.RoundTrip(clone)
}
