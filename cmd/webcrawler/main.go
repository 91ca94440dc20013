// Package main provides the entry point for the webcrawler CLI.
//
// webcrawler discovers content on web servers. The fuzz command requests
// wordlist-derived paths with a pool of workers; the crawl command follows
// links recursively from a start page.
//
// Usage:
//
//	webcrawler fuzz -u https://example.com -w words.txt
//	webcrawler crawl -u https://example.com -d 3
//
// See --help for all available options.
package main

import "os"

// main is the entry point for webcrawler.
func main() {
	os.Exit(Execute())
}
