package report

import (
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/webcrawler/internal/model"
)

// maxMarkdownRows caps the hit and discovery tables.
const maxMarkdownRows = 500

// MarkdownWriter outputs GitHub flavored Markdown summaries.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	switch report.Mode {
	case model.ModeFuzz:
		w.writeHits(md, report)
	case model.ModeCrawl:
		w.writeDiscoveries(md, report)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("webcrawler " + string(report.Mode) + " report")
	md.PlainText("")

	requests := strconv.FormatInt(report.Requests, 10)
	if report.Mode == model.ModeFuzz && report.Total >= 0 {
		requests += " / " + strconv.FormatInt(report.Total, 10)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + report.Target + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(time.Millisecond).String()},
			{"Requests", requests},
			{"Errors", strconv.FormatInt(report.Errors, 10)},
			{"Status", outcomeText(report)},
		},
	})
	md.PlainText("")

	switch report.Outcome {
	case model.OutcomeAborted:
		md.Cautionf("The run was aborted: %s", report.Error)
	case model.OutcomeInterrupted:
		md.Warningf("The run was interrupted after %d requests. Results are partial.", report.Requests)
	default:
		if report.Errors > 0 {
			md.Importantf("%d request(s) failed and were skipped.", report.Errors)
		}
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeHits(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Hits")
	md.PlainText("")

	if len(report.Hits) == 0 {
		md.Note("No response passed the filters.")
		md.PlainText("")
		return
	}

	counts := report.StatusCounts()
	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Status codes"),
		piechart.WithShowData(true),
	)
	for _, code := range codes {
		chart.LabelAndIntValue(strconv.Itoa(code), uint64(counts[code])) //nolint:gosec // counts are positive
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	rows := make([][]string, 0, min(len(report.Hits), maxMarkdownRows))
	for _, hit := range report.Hits {
		if len(rows) == maxMarkdownRows {
			break
		}
		rows = append(rows, []string{
			"`" + truncate(hit.Payload, 100) + "`",
			strconv.Itoa(hit.StatusCode),
			hit.ContentLength,
			hit.Server,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Payload", "Status", "Length", "Server"},
		Rows:   rows,
	})
	md.PlainText("")
	if len(report.Hits) > maxMarkdownRows {
		md.Notef("Showing the first %d of %d hits.", maxMarkdownRows, len(report.Hits))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeDiscoveries(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Discovered URLs")
	md.PlainText("")

	if len(report.Discoveries) == 0 {
		md.Note("No links were found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, min(len(report.Discoveries), maxMarkdownRows))
	for _, d := range report.Discoveries {
		if len(rows) == maxMarkdownRows {
			break
		}
		kind := "page"
		switch {
		case d.Malformed:
			kind = "malformed"
		case d.External:
			kind = "external"
		case d.Media:
			kind = "media"
		}
		rows = append(rows, []string{
			"`" + truncate(d.URL, 100) + "`",
			kind,
			strconv.Itoa(d.Depth),
			"`" + truncate(d.FoundOn, 60) + "`",
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Depth", "Found on"},
		Rows:   rows,
	})
	md.PlainText("")
	if len(report.Discoveries) > maxMarkdownRows {
		md.Notef("Showing the first %d of %d URLs.", maxMarkdownRows, len(report.Discoveries))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [webcrawler](https://github.com/nao1215/webcrawler)*")
}
