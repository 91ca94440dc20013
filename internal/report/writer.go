package report

import (
	"io"

	"github.com/nao1215/webcrawler/internal/model"
)

// Writer renders the summary of a finished run.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *model.RunReport) (int, error)
}

// MultiWriter writes to multiple Writers, e.g. terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to every Writer and stops at the first error.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// outcomeText returns a one-line description of how the run ended.
func outcomeText(report *model.RunReport) string {
	switch report.Outcome {
	case model.OutcomeInterrupted:
		return "Interrupted (partial results)"
	case model.OutcomeAborted:
		if report.Error != "" {
			return "Aborted - " + report.Error
		}
		return "Aborted"
	default:
		return "Complete"
	}
}

// truncate shortens s to maxLen characters, marking the cut with "...".
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
