package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/webcrawler/internal/config"
	"github.com/nao1215/webcrawler/internal/model"
)

// DefaultMaxDepth is the depth used when none is configured.
const DefaultMaxDepth = 1

// ErrInvalidTarget is returned by Crawl for a target that is not an absolute
// http or https URL.
var ErrInvalidTarget = errors.New("invalid crawl target")

// Fetcher issues GET requests. *httpclient.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*model.Response, error)
}

// DiscoverySink receives every discovered URL. *report.Sink implements it.
type DiscoverySink interface {
	Discovery(d model.Discovery)
}

// Result is the outcome of a crawl.
type Result struct {
	// Pages is the number of pages fetched.
	Pages int64

	// Errors is the number of pages that could not be fetched.
	Errors int64

	// Discoveries are the discovered URLs in the order they were found.
	Discoveries []model.Discovery
}

// Crawler follows links from a target URL.
type Crawler struct {
	fetcher        Fetcher
	maxDepth       int
	delay          time.Duration
	ignorePatterns []string
	followPatterns []string
	excludeDomains []string
	downloadExts   []string
	downloadDir    string
	sink           DiscoverySink
	logger         *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMaxDepth sets how many levels of links are reported. Zero fetches the
// target without reporting anything.
func WithMaxDepth(depth int) Option {
	return func(c *Crawler) {
		if depth >= 0 {
			c.maxDepth = depth
		}
	}
}

// WithDelay sets the pause between page fetches.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		c.delay = d
	}
}

// WithIgnorePatterns sets path globs that are reported but never crawled.
func WithIgnorePatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts crawling to paths matching one of the globs.
func WithFollowPatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.followPatterns = patterns
	}
}

// WithExcludeDomains skips URLs on these hosts and their subdomains.
func WithExcludeDomains(domains []string) Option {
	return func(c *Crawler) {
		c.excludeDomains = domains
	}
}

// WithDownload saves discovered files with one of the extensions to dir.
func WithDownload(extensions []string, dir string) Option {
	return func(c *Crawler) {
		c.downloadExts = extensions
		c.downloadDir = dir
	}
}

// WithSink sets the receiver of discoveries.
func WithSink(sink DiscoverySink) Option {
	return func(c *Crawler) {
		c.sink = sink
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a Crawler that fetches pages with fetcher.
func New(fetcher Fetcher, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:  fetcher,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// visitedSet holds every URL reported during one crawl.
type visitedSet map[string]struct{}

// add inserts u and reports whether it was new.
func (v visitedSet) add(u string) bool {
	if _, ok := v[u]; ok {
		return false
	}
	v[u] = struct{}{}
	return true
}

// crawlRun is the state of one Crawl call.
type crawlRun struct {
	target  string
	host    string
	visited visitedSet
	result  *Result
	files   *downloader
}

// Crawl traverses links starting at target, which must end with "/".
// A failure to fetch target itself is returned; failures on other pages are
// logged and counted. When ctx is cancelled the partial result is returned
// with ctx.Err().
func (c *Crawler) Crawl(ctx context.Context, target string) (*Result, error) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, target)
	}

	run := &crawlRun{
		target:  target,
		host:    u.Host,
		visited: make(visitedSet),
		result:  &Result{},
	}
	if len(c.downloadExts) > 0 {
		run.files = newDownloader(c.fetcher, c.downloadDir, c.downloadExts)
	}

	c.logger.Debug("crawl started", "target", target, "max_depth", c.maxDepth)
	err = c.crawl(ctx, run, target, 0)
	c.logger.Debug("crawl finished",
		"pages", run.result.Pages,
		"errors", run.result.Errors,
		"urls", len(run.result.Discoveries),
	)
	return run.result, err
}

func (c *Crawler) crawl(ctx context.Context, run *crawlRun, pageURL string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := c.fetcher.Get(ctx, pageURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if depth == 0 {
			return fmt.Errorf("failed to fetch %s: %w", pageURL, err)
		}
		run.result.Errors++
		c.logger.Warn("failed to fetch page", "url", pageURL, "error", err)
		return nil
	}
	run.result.Pages++

	links, err := ExtractLinks(run.target, bytes.NewReader(resp.Body))
	if err != nil {
		c.logger.Debug("failed to parse page", "url", pageURL, "error", err)
		return nil
	}

	if err := c.pause(ctx); err != nil {
		return err
	}
	if depth >= c.maxDepth {
		return nil
	}

	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil {
			c.logger.Debug("malformed link", "url", link, "page", pageURL, "error", err)
			if run.visited.add(link) {
				c.report(run, model.Discovery{URL: link, FoundOn: pageURL, Depth: depth, Malformed: true})
			}
			continue
		}
		if config.HostExcluded(u.Hostname(), c.excludeDomains) {
			continue
		}
		if !run.visited.add(link) {
			continue
		}

		d := model.Discovery{
			URL:      link,
			FoundOn:  pageURL,
			Depth:    depth,
			Media:    IsMedia(u.Path),
			External: !strings.EqualFold(u.Host, run.host),
		}
		if run.files != nil && run.files.wants(u.Path) {
			path, err := run.files.save(ctx, link)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				c.logger.Warn("failed to download file", "url", link, "error", err)
			} else {
				d.Downloaded = path
			}
		}
		c.report(run, d)

		if d.Media || d.External || !c.shouldFollow(link) {
			continue
		}
		if err := c.crawl(ctx, run, link, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (c *Crawler) report(run *crawlRun, d model.Discovery) {
	run.result.Discoveries = append(run.result.Discoveries, d)
	if c.sink != nil {
		c.sink.Discovery(d)
	}
}

// pause waits the configured delay or until ctx is done.
func (c *Crawler) pause(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
