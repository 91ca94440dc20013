package model

import "time"

// Mode identifies the kind of run.
type Mode string

const (
	// ModeFuzz probes wordlist-derived paths.
	ModeFuzz Mode = "fuzz"

	// ModeCrawl follows links recursively.
	ModeCrawl Mode = "crawl"
)

// Outcome is how a run ended.
type Outcome string

const (
	// OutcomeCompleted means every word or link was processed.
	OutcomeCompleted Outcome = "completed"

	// OutcomeInterrupted means the user stopped the run.
	OutcomeInterrupted Outcome = "interrupted"

	// OutcomeAborted means a fatal error stopped the run.
	OutcomeAborted Outcome = "aborted"
)

// Hit is one response that was shown to the user in fuzz mode.
type Hit struct {
	// Payload is the requested URL.
	Payload string `json:"payload"`

	// StatusCode is the HTTP status code.
	StatusCode int `json:"status_code"`

	// ContentLength is the Content-Length header value, or Unknown.
	ContentLength string `json:"content_length"`

	// Server is the Server header value, or Unknown.
	Server string `json:"server"`

	// FoundAt is when the response was received.
	FoundAt time.Time `json:"found_at"`
}

// NewHit creates a Hit from a response.
func NewHit(resp *Response, foundAt time.Time) Hit {
	return Hit{
		Payload:       resp.URL,
		StatusCode:    resp.StatusCode,
		ContentLength: resp.ContentLength,
		Server:        resp.Server,
		FoundAt:       foundAt,
	}
}

// Discovery is a link found while crawling.
type Discovery struct {
	// URL is the normalized discovered URL.
	URL string `json:"url"`

	// FoundOn is the page the link was extracted from.
	FoundOn string `json:"found_on"`

	// Depth is the depth of the page the link was found on.
	Depth int `json:"depth"`

	// Media is true when the URL points at a media file, which is never
	// fetched for traversal.
	Media bool `json:"media,omitempty"`

	// External is true when the URL is on another host.
	External bool `json:"external,omitempty"`

	// Malformed is true when the link does not parse as a URL. It is
	// reported but never followed.
	Malformed bool `json:"malformed,omitempty"`

	// Downloaded is the local path the file was saved to, if any.
	Downloaded string `json:"downloaded,omitempty"`
}

// RunReport is the summary of one run.
type RunReport struct {
	// ID is the database identifier. Zero until saved.
	ID int64 `json:"id,omitempty"`

	// Mode is fuzz or crawl.
	Mode Mode `json:"mode"`

	// Target is the normalized base URL.
	Target string `json:"target"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended.
	FinishedAt time.Time `json:"finished_at"`

	// Total is the number of words the run intended to request (fuzz mode).
	Total int64 `json:"total,omitempty"`

	// Requests is the number of words processed, including skipped and
	// failed ones.
	Requests int64 `json:"requests"`

	// Errors is the number of requests that failed and were ignored.
	Errors int64 `json:"errors"`

	// Hits are the shown responses (fuzz mode).
	Hits []Hit `json:"hits,omitempty"`

	// Discoveries are the found links (crawl mode).
	Discoveries []Discovery `json:"discoveries,omitempty"`

	// Outcome is how the run ended.
	Outcome Outcome `json:"outcome"`

	// Error is the message of the error that ended the run, if any.
	Error string `json:"error,omitempty"`

	// Steps lists the pipeline steps that ran, in order.
	Steps []string `json:"steps,omitempty"`
}

// NewRunReport creates a report for a run starting now.
func NewRunReport(mode Mode, target string) *RunReport {
	return &RunReport{
		Mode:      mode,
		Target:    target,
		StartedAt: time.Now(),
		Outcome:   OutcomeCompleted,
	}
}

// Duration returns the run duration. Zero while the run is in progress.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StatusCounts returns the number of hits per status code.
func (r *RunReport) StatusCounts() map[int]int {
	counts := make(map[int]int)
	for _, hit := range r.Hits {
		counts[hit.StatusCode]++
	}
	return counts
}
