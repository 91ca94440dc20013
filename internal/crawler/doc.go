// Package crawler follows links recursively from a target URL.
//
// Crawl fetches a page, extracts every src and href attribute, resolves
// the values against the target and reports each URL it has not seen
// before. Pages on the target's host that are not media files are crawled
// in turn, one level deeper, until the maximum depth is reached. The set of
// visited URLs only grows during a crawl, so a link cycle ends as soon as
// every URL on it has been seen.
//
// Discovered files whose extension is in the download list are saved to a
// local directory.
//
// # Usage
//
//	c := crawler.New(client, crawler.WithMaxDepth(2), crawler.WithSink(sink))
//	result, err := c.Crawl(ctx, "http://example.com/")
package crawler
