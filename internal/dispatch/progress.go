package dispatch

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// progressReporter renders the request count until the run is cancelled and
// no worker is active. The ticker paces rendering, so the bar itself is not
// throttled.
type progressReporter struct {
	state    *runState
	bar      *progressbar.ProgressBar
	interval time.Duration
}

func newProgressReporter(state *runState, total int64, w io.Writer, interval time.Duration) *progressReporter {
	if w == nil {
		w = io.Discard
	}
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("requests"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("req"),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w) //nolint:errcheck // rendering only
		}),
	)
	return &progressReporter{state: state, bar: bar, interval: interval}
}

func (p *progressReporter) run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for range ticker.C {
		_ = p.bar.Set64(p.state.requests.Load()) //nolint:errcheck // rendering only
		if p.done() {
			break
		}
	}

	// The last frame shows the real count. An aborted run stays below the
	// total instead of being filled to 100%.
	_ = p.bar.Set64(p.state.requests.Load()) //nolint:errcheck // rendering only
	if !p.bar.IsFinished() {
		_ = p.bar.Exit() //nolint:errcheck // rendering only
	}
}

// done reports whether the run is cancelled and every worker has returned.
func (p *progressReporter) done() bool {
	return p.state.cancelled.Load() && p.state.active.Load() == 0
}
