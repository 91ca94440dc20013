package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// maxLineSize is the longest wordlist line accepted.
const maxLineSize = 1024 * 1024

// UnknownTotal is returned by Total when the source was built from a reader
// that could not be counted in advance.
const UnknownTotal int64 = -1

// ErrEmptyWordlist is returned by Open when the file contains no lines.
var ErrEmptyWordlist = errors.New("wordlist is empty")

// Option configures a Source.
type Option func(*Source)

// WithExtensions expands every non-empty base word into the bare word
// followed by word.ext for each extension, in order.
func WithExtensions(extensions []string) Option {
	return func(s *Source) {
		s.extensions = extensions
	}
}

// WithTrailingSlash appends '/' to every emitted non-empty word.
func WithTrailingSlash(enabled bool) Option {
	return func(s *Source) {
		s.addSlash = enabled
	}
}

// Source is a lazy, finite, forward-only sequence of words.
type Source struct {
	scanner    *bufio.Scanner
	closer     io.Closer
	extensions []string
	addSlash   bool

	// pending holds the expanded variants of the current base word.
	pending []string
	total   int64
	err     error
}

// New creates a Source over r. The total is unknown because r is consumed
// only once.
func New(r io.Reader, opts ...Option) *Source {
	s := &Source{total: UnknownTotal}
	for _, opt := range opts {
		opt(s)
	}
	s.scanner = newScanner(r)
	return s
}

// Open creates a Source over the wordlist file at path. The file is read
// twice: once to compute Total and once, lazily, by Next.
func Open(path string, opts ...Option) (*Source, error) {
	s := &Source{}
	for _, opt := range opts {
		opt(s)
	}

	f, err := os.Open(path) //nolint:gosec // User-provided wordlist path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open wordlist: %w", err)
	}
	lines, blanks, err := countLines(f)
	if err != nil {
		_ = f.Close() //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("failed to read wordlist: %w", err)
	}
	if lines == 0 {
		_ = f.Close() //nolint:errcheck // Best effort cleanup
		return nil, ErrEmptyWordlist
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close() //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("failed to rewind wordlist: %w", err)
	}

	s.total = blanks + (lines-blanks)*int64(1+len(s.extensions))
	s.scanner = newScanner(f)
	s.closer = f
	return s, nil
}

// Next returns the next word. ok is false once the wordlist is exhausted or
// a read error occurred; Err reports the latter.
//
// An empty line yields the empty word exactly once; it is never expanded.
func (s *Source) Next() (word string, ok bool) {
	if len(s.pending) == 0 {
		if !s.scanner.Scan() {
			s.err = s.scanner.Err()
			return "", false
		}
		s.pending = s.expand(cleanLine(s.scanner.Text()))
	}

	word = s.pending[0]
	s.pending = s.pending[1:]
	return word, true
}

// Total returns the number of words Next emits over the whole wordlist, or
// UnknownTotal.
func (s *Source) Total() int64 {
	return s.total
}

// Err returns the first read error, if any.
func (s *Source) Err() error {
	return s.err
}

// Close releases the underlying file, if the Source owns one.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// expand returns the emitted variants of one base word.
func (s *Source) expand(base string) []string {
	if base == "" {
		return []string{""}
	}

	words := make([]string, 0, 1+len(s.extensions))
	words = append(words, base)
	for _, ext := range s.extensions {
		words = append(words, base+"."+ext)
	}
	if s.addSlash {
		for i := range words {
			words[i] += "/"
		}
	}
	return words
}

// Count returns the number of words a Source with the given options would
// emit for r.
func Count(r io.Reader, opts ...Option) (int64, error) {
	s := &Source{}
	for _, opt := range opts {
		opt(s)
	}
	lines, blanks, err := countLines(r)
	if err != nil {
		return 0, err
	}
	return blanks + (lines-blanks)*int64(1+len(s.extensions)), nil
}

// countLines returns the number of lines and how many of them are blank.
func countLines(r io.Reader) (lines, blanks int64, err error) {
	scanner := newScanner(r)
	for scanner.Scan() {
		lines++
		if cleanLine(scanner.Text()) == "" {
			blanks++
		}
	}
	return lines, blanks, scanner.Err()
}

// newScanner returns a line scanner that decodes UTF-8 and UTF-16 input,
// honoring and stripping a byte order mark.
func newScanner(r io.Reader) *bufio.Scanner {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	scanner := bufio.NewScanner(transform.NewReader(r, decoder))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}

// cleanLine strips surrounding whitespace, including a CR left by CRLF files.
func cleanLine(line string) string {
	return strings.TrimSpace(line)
}
