// Package config provides configuration structures and parsers for webcrawler.
//
// It holds the immutable session settings shared by fuzz and crawl runs,
// parses the compact delimiter grammars accepted on the command line
// (headers, cookies, proxies and comma lists), and loads the optional YAML
// configuration file with per-host site settings.
//
// Design decision: parsing errors carry the exact malformed token so the CLI
// can point the user at the problem instead of rejecting the whole flag.
package config
