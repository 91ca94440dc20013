package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/webcrawler/internal/model"
)

// ruleWidth is the width of section separators.
const ruleWidth = 70

// SimpleWriter renders a plain text summary for terminals.
type SimpleWriter struct {
	baseWriter

	// verbose lists every hit and discovery instead of counts only.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every hit and discovery.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	rule := strings.Repeat("=", ruleWidth)
	sb.WriteString("\n" + rule + "\n")
	fmt.Fprintf(&sb, "%s SUMMARY\n", strings.ToUpper(string(report.Mode)))
	sb.WriteString(rule + "\n\n")

	fmt.Fprintf(&sb, "Target:     %s\n", report.Target)
	fmt.Fprintf(&sb, "Started:    %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Duration:   %s\n", report.Duration().Round(time.Millisecond))
	fmt.Fprintf(&sb, "Status:     %s\n", outcomeText(report))

	switch report.Mode {
	case model.ModeFuzz:
		w.writeFuzz(&sb, report)
	case model.ModeCrawl:
		w.writeCrawl(&sb, report)
	}

	sb.WriteString(rule + "\n")
	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeFuzz(sb *strings.Builder, report *model.RunReport) {
	if report.Total >= 0 {
		fmt.Fprintf(sb, "Requests:   %d/%d\n", report.Requests, report.Total)
	} else {
		fmt.Fprintf(sb, "Requests:   %d\n", report.Requests)
	}
	fmt.Fprintf(sb, "Errors:     %d\n", report.Errors)
	fmt.Fprintf(sb, "Hits:       %d\n\n", len(report.Hits))

	counts := report.StatusCounts()
	if len(counts) > 0 {
		codes := make([]int, 0, len(counts))
		for code := range counts {
			codes = append(codes, code)
		}
		sort.Ints(codes)

		sb.WriteString(strings.Repeat("-", ruleWidth) + "\nSTATUS CODES\n" + strings.Repeat("-", ruleWidth) + "\n\n")
		for _, code := range codes {
			fmt.Fprintf(sb, "  %d: %d\n", code, counts[code])
		}
		sb.WriteString("\n")
	}

	if w.verbose && len(report.Hits) > 0 {
		sb.WriteString(strings.Repeat("-", ruleWidth) + "\nHITS\n" + strings.Repeat("-", ruleWidth) + "\n\n")
		for _, hit := range report.Hits {
			fmt.Fprintf(sb, "  [%d] %s (%s, %s)\n", hit.StatusCode, hit.Payload, hit.ContentLength, hit.Server)
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeCrawl(sb *strings.Builder, report *model.RunReport) {
	var internal, external, media, malformed, downloaded int
	for _, d := range report.Discoveries {
		switch {
		case d.Malformed:
			malformed++
		case d.External:
			external++
		case d.Media:
			media++
		default:
			internal++
		}
		if d.Downloaded != "" {
			downloaded++
		}
	}

	fmt.Fprintf(sb, "Pages:      %d\n", report.Requests)
	fmt.Fprintf(sb, "Errors:     %d\n", report.Errors)
	fmt.Fprintf(sb, "URLs:       %d (internal %d, media %d, external %d)\n", len(report.Discoveries), internal, media, external)
	if malformed > 0 {
		fmt.Fprintf(sb, "Malformed:  %d\n", malformed)
	}
	if downloaded > 0 {
		fmt.Fprintf(sb, "Downloaded: %d\n", downloaded)
	}
	sb.WriteString("\n")

	if w.verbose && len(report.Discoveries) > 0 {
		sb.WriteString(strings.Repeat("-", ruleWidth) + "\nURLS\n" + strings.Repeat("-", ruleWidth) + "\n\n")
		for _, d := range report.Discoveries {
			fmt.Fprintf(sb, "  [%d] %s\n", d.Depth, d.URL)
		}
		sb.WriteString("\n")
	}
}
