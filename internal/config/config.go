package config

import (
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultThreads is the number of request workers in fuzz mode.
	DefaultThreads = 10

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRetries is the number of retries for a failing request.
	// Zero means the first transport failure is fatal unless errors are ignored.
	DefaultRetries = 0

	// DefaultDepth is the maximum recursion depth in crawl mode.
	DefaultDepth = 1

	// DefaultMethod is the HTTP method used in fuzz mode.
	DefaultMethod = http.MethodGet

	// DefaultUserAgent is sent when neither a custom nor a random
	// User-Agent is requested.
	DefaultUserAgent = "webcrawler/1.0 (+https://github.com/nao1215/webcrawler)"

	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// AppName is the application name used for XDG directory paths.
	AppName = "webcrawler"
)

// allowedMethods lists the HTTP methods accepted by --method.
var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// Config holds every option of a fuzz or crawl run.
// It is populated once from CLI flags and the optional config file, validated,
// and then treated as immutable.
//
// Design decision: a single flat struct, as the number of options is
// manageable and both run modes share most of them.
type Config struct {
	// Target is the base URL. After NormalizeTarget it always ends with '/'.
	Target string

	// Wordlist is the path of the wordlist file (fuzz mode).
	Wordlist string

	// Extensions expand every base word into word.ext variants (fuzz mode).
	Extensions []string

	// AddSlash appends '/' to every emitted word (fuzz mode).
	AddSlash bool

	// Threads is the number of concurrent request workers (fuzz mode).
	Threads int

	// Method is the HTTP method used for fuzz requests.
	Method string

	// Data is the request body sent with POST, PUT and PATCH requests.
	Data string

	// Headers are sent with every request.
	Headers map[string]string

	// Cookies are sent with every request.
	Cookies map[string]string

	// Proxies maps a URL scheme (http, https) to a proxy URL.
	Proxies map[string]string

	// UserAgent is the fixed User-Agent header.
	UserAgent string

	// RandomUserAgent picks a User-Agent from a fixed pool for every request.
	RandomUserAgent bool

	// FollowRedirects makes the client follow 3xx responses.
	FollowRedirects bool

	// InsecureTLS skips certificate verification.
	InsecureTLS bool

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Retries is the number of additional attempts after a transport failure.
	Retries int

	// IgnoreErrors counts a failed request and continues instead of aborting
	// the run once retries are exhausted.
	IgnoreErrors bool

	// Delay is the pause every worker takes between two requests.
	Delay time.Duration

	// Rate caps the total requests per second across all workers.
	// Zero disables the limit.
	Rate float64

	// Depth is the maximum recursion depth (crawl mode).
	Depth int

	// ExcludeDomains are hosts (and their subdomains) that are never
	// requested.
	ExcludeDomains []string

	// DownloadExtensions selects discovered files to save locally (crawl mode).
	DownloadExtensions []string

	// DownloadDir is where downloaded files are written.
	DownloadDir string

	// FilterStatus hides responses whose status code is listed.
	FilterStatus []string

	// FilterLength hides responses whose Content-Length is listed.
	FilterLength []string

	// FilterServer hides responses whose Server header is listed.
	FilterServer []string

	// FilterRegex hides responses whose headers or body match.
	FilterRegex string

	// UseTor routes every request through Tor.
	UseTor bool

	// UseExternalTor uses the Tor SOCKS5 proxy at TorProxyAddress instead of
	// starting an embedded daemon.
	UseExternalTor bool

	// TorProxyAddress is the external Tor SOCKS5 proxy in "host:port" format.
	TorProxyAddress string

	// TorStartupTimeout is the maximum time to wait for the embedded daemon.
	TorStartupTimeout time.Duration

	// MaxBodySize is the maximum number of body bytes read per response.
	MaxBodySize int64

	// OutputFile mirrors every printed result line to a file.
	OutputFile string

	// Quiet suppresses the configuration table and the progress bar.
	Quiet bool

	// NoColor disables colored result lines.
	NoColor bool

	// Verbose enables debug logging.
	Verbose bool

	// JSONReport writes the run summary as JSON.
	JSONReport bool

	// MarkdownReport writes the run summary as Markdown.
	MarkdownReport bool

	// ReportFile is the summary output path. Empty means stdout.
	ReportFile string

	// DBDir is the directory of the history database.
	DBDir string

	// SaveToDB stores the run in the history database.
	SaveToDB bool

	// ConfigFilePath is an explicit configuration file path.
	ConfigFilePath string

	// SiteConfigs holds the loaded configuration file, if any.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Threads:           DefaultThreads,
		Method:            DefaultMethod,
		Headers:           map[string]string{},
		Cookies:           map[string]string{},
		Proxies:           map[string]string{},
		UserAgent:         DefaultUserAgent,
		FollowRedirects:   true,
		Timeout:           DefaultTimeout,
		Retries:           DefaultRetries,
		Depth:             DefaultDepth,
		TorProxyAddress:   DefaultTorProxyAddress,
		TorStartupTimeout: DefaultTorStartupTimeout,
		MaxBodySize:       DefaultMaxBodySize,
		DownloadDir:       ".",
		SaveToDB:          true,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for webcrawler.
// On Linux: ~/.local/share/webcrawler
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for webcrawler.
// On Linux: ~/.config/webcrawler
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the options shared by both run modes and normalizes the
// target URL in place.
//
// We return the first error found because fixing one error often makes
// others irrelevant.
func (c *Config) Validate() error {
	target, err := NormalizeTarget(c.Target)
	if err != nil {
		return err
	}
	c.Target = target

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Retries < 0 {
		return ErrInvalidRetries
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Rate < 0 {
		return ErrInvalidRate
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.UseTor && len(c.Proxies) > 0 {
		return ErrTorWithProxies
	}

	u, err := url.Parse(c.Target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if HostExcluded(u.Hostname(), c.ExcludeDomains) {
		return fmt.Errorf("%w: %s", ErrExcludedTarget, u.Hostname())
	}
	return nil
}

// ValidateFuzz validates the options of a fuzz run.
func (c *Config) ValidateFuzz() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Wordlist == "" {
		return ErrNoWordlist
	}
	if c.Threads <= 0 {
		return ErrInvalidThreads
	}
	c.Method = strings.ToUpper(c.Method)
	if !allowedMethods[c.Method] {
		return fmt.Errorf("%w: %s", ErrInvalidMethod, c.Method)
	}
	return nil
}

// ValidateCrawl validates the options of a crawl run.
func (c *Config) ValidateCrawl() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Depth < 0 {
		return ErrInvalidDepth
	}
	return nil
}

// TargetHost returns the host of the target URL without port.
func (c *Config) TargetHost() string {
	u, err := url.Parse(c.Target)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// ApplySiteConfig merges the config file settings for the target host into
// c. Flags win: file headers and cookies only fill keys that are not already
// set, and the file depth applies only when depthFromFlag is false.
func (c *Config) ApplySiteConfig(depthFromFlag bool) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	site := c.SiteConfigs.GetSiteConfig(c.TargetHost())

	for k, v := range site.Headers {
		if _, ok := c.Headers[k]; !ok {
			c.Headers[k] = v
		}
	}
	if site.Cookie != "" {
		for _, pair := range strings.Split(site.Cookie, ";") {
			name, value, found := strings.Cut(strings.TrimSpace(pair), "=")
			if !found || name == "" {
				continue
			}
			if _, ok := c.Cookies[name]; !ok {
				c.Cookies[name] = value
			}
		}
	}
	if site.UserAgent != "" && c.UserAgent == DefaultUserAgent {
		c.UserAgent = site.UserAgent
	}
	if site.Depth != 0 && !depthFromFlag {
		c.Depth = site.Depth
	}
	return site
}
