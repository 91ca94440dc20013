// Package httpclient issues the HTTP requests of fuzz and crawl runs.
//
// A Client is built once from the session settings (headers, cookies,
// proxies, User-Agent policy, redirect policy, timeout) and is safe for
// concurrent use by many workers. Transport failures are returned as
// *TransportError with a coarse Kind so that callers can log them and
// decide whether to retry.
//
// Design decision: session headers are injected by a RoundTripper rather
// than by Do, so that requests issued while following redirects carry them
// too.
//
// The package also provides the pre-flight probes that verify the target
// and the configured proxies are reachable before any worker starts.
package httpclient
