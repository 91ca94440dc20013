package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/nao1215/webcrawler/internal/model"
)

const (
	// payloadWidth is the column width of the payload in hit lines.
	payloadWidth = 80

	// discoveryWidth is the column width of the URL in discovery lines.
	discoveryWidth = 100
)

// Sink is the append-only output of a run. Lines from concurrent workers are
// written whole and in the order Sink receives them.
type Sink struct {
	mu sync.Mutex

	out    io.Writer
	mirror io.Writer

	success  *color.Color
	redirect *color.Color
	client   *color.Color
	server   *color.Color
	notice   *color.Color
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithMirror copies every line, uncolored, to w.
func WithMirror(w io.Writer) SinkOption {
	return func(s *Sink) {
		s.mirror = w
	}
}

// WithColor enables or disables status-class coloring.
func WithColor(enabled bool) SinkOption {
	return func(s *Sink) {
		for _, c := range s.colors() {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// NewSink creates a Sink writing to out. Color follows the terminal
// detection of fatih/color unless WithColor is given.
func NewSink(out io.Writer, opts ...SinkOption) *Sink {
	s := &Sink{
		out:      out,
		success:  color.New(color.FgGreen),
		redirect: color.New(color.FgCyan),
		client:   color.New(color.FgYellow),
		server:   color.New(color.FgRed),
		notice:   color.New(color.FgMagenta, color.Bold),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) colors() []*color.Color {
	return []*color.Color{s.success, s.redirect, s.client, s.server, s.notice}
}

// FormatHit renders the fixed-width line for a hit.
func FormatHit(h model.Hit) string {
	return fmt.Sprintf("%-*s  %3d  %10s  %s",
		payloadWidth, truncate(h.Payload, payloadWidth), h.StatusCode, h.ContentLength, h.Server)
}

// FormatDiscovery renders the line for a discovered URL.
func FormatDiscovery(d model.Discovery) string {
	return fmt.Sprintf("[!] %-*s -> %s", discoveryWidth, truncate(d.URL, discoveryWidth), d.FoundOn)
}

// Hit prints the line for h.
func (s *Sink) Hit(h model.Hit) {
	line := FormatHit(h)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.writeLine(s.statusColor(h.StatusCode), line)
}

// Discovery prints the line for d.
func (s *Sink) Discovery(d model.Discovery) {
	line := FormatDiscovery(d)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.writeLine(s.notice, line)
}

// Println prints a free-form line, such as the interrupt notice.
func (s *Sink) Println(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writeLine(nil, line)
}

// writeLine must be called with mu held. Write errors are dropped: a broken
// terminal or log file must not stop the run.
func (s *Sink) writeLine(c *color.Color, line string) {
	if s.out != nil {
		if c != nil {
			_, _ = c.Fprintln(s.out, line) //nolint:errcheck // best effort output
		} else {
			_, _ = fmt.Fprintln(s.out, line) //nolint:errcheck // best effort output
		}
	}
	if s.mirror != nil {
		_, _ = fmt.Fprintln(s.mirror, line) //nolint:errcheck // best effort output
	}
}

func (s *Sink) statusColor(code int) *color.Color {
	switch {
	case code >= 500:
		return s.server
	case code >= 400:
		return s.client
	case code >= 300:
		return s.redirect
	default:
		return s.success
	}
}
