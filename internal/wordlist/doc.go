// Package wordlist provides the word source of fuzz mode.
//
// A Source reads a line-oriented wordlist lazily and expands every base word
// into its extension variants. It is not safe for concurrent use; the
// dispatcher serializes access together with its dedup set.
package wordlist
