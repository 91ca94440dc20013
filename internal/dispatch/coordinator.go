package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/webcrawler/internal/filter"
	"github.com/nao1215/webcrawler/internal/httpclient"
	"github.com/nao1215/webcrawler/internal/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// DefaultThreads is the worker count used when none is configured.
	DefaultThreads = 10

	// DefaultPollInterval is how often the progress reporter refreshes.
	DefaultPollInterval = 100 * time.Millisecond
)

// Requester issues one HTTP request. *httpclient.Client implements it.
type Requester interface {
	Do(ctx context.Context, req httpclient.Request) (*model.Response, error)
}

// WordSource yields candidate path segments. It is not required to be safe
// for concurrent use. *wordlist.Source implements it.
type WordSource interface {
	Next() (string, bool)
	Total() int64
}

// HitSink receives every response that passes the filter.
// *report.Sink implements it.
type HitSink interface {
	Hit(h model.Hit)
}

// Result is the outcome of a run.
type Result struct {
	// Requests is the number of words processed, including skipped ones.
	Requests int64

	// Total is the number of words the source reported, or -1 if unknown.
	Total int64

	// Errors is the number of failed requests that were ignored.
	Errors int64

	// Hits are the responses that passed the filter, in arrival order.
	Hits []model.Hit

	// Outcome is how the run ended.
	Outcome model.Outcome
}

// Coordinator runs a pool of workers against one target.
type Coordinator struct {
	target    string
	source    WordSource
	requester Requester

	threads      int
	retries      int
	ignoreErrors bool
	delay        time.Duration
	limiter      *rate.Limiter
	method       string
	body         string
	filter       filter.Spec
	sink         HitSink
	logger       *slog.Logger
	progress     io.Writer
	pollInterval time.Duration

	state atomic.Int32

	hitsMu sync.Mutex
	hits   []model.Hit
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithThreads sets the number of workers.
func WithThreads(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.threads = n
		}
	}
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(n int) Option {
	return func(c *Coordinator) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithIgnoreErrors makes failed requests count and continue instead of
// aborting the run.
func WithIgnoreErrors(enabled bool) Option {
	return func(c *Coordinator) {
		c.ignoreErrors = enabled
	}
}

// WithDelay sets a pause each worker takes after every request.
func WithDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		c.delay = d
	}
}

// WithRate limits all workers together to perSecond requests per second.
// Zero disables the limit.
func WithRate(perSecond float64) Option {
	return func(c *Coordinator) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithMethod sets the HTTP method and the request body.
func WithMethod(method, body string) Option {
	return func(c *Coordinator) {
		if method != "" {
			c.method = method
		}
		c.body = body
	}
}

// WithFilter sets the hide filter.
func WithFilter(spec filter.Spec) Option {
	return func(c *Coordinator) {
		c.filter = spec
	}
}

// WithSink sets the receiver of hits.
func WithSink(sink HitSink) Option {
	return func(c *Coordinator) {
		c.sink = sink
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithProgress renders the progress bar to w. Nil disables rendering; the
// reporter still runs.
func WithProgress(w io.Writer) Option {
	return func(c *Coordinator) {
		c.progress = w
	}
}

// WithPollInterval sets the progress refresh interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// NewCoordinator creates a Coordinator. target must end with "/" so that
// target+word is the request URL.
func NewCoordinator(target string, source WordSource, requester Requester, opts ...Option) *Coordinator {
	c := &Coordinator{
		target:       target,
		source:       source,
		requester:    requester,
		threads:      DefaultThreads,
		method:       http.MethodGet,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Run dispatches every word and blocks until all workers and the progress
// reporter have returned. The error is nil on normal completion,
// ErrInterrupted when ctx ended the run, or a *FatalError when a request
// failed for good. The Result is valid in every case.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := newRunState(c.source, cancel, &c.state)
	stopWatch := context.AfterFunc(ctx, func() {
		state.abort(ErrInterrupted)
	})
	defer stopWatch()

	total := c.source.Total()
	c.logger.Debug("dispatch started",
		"target", c.target,
		"threads", c.threads,
		"total", total,
	)

	reporter := newProgressReporter(state, total, c.progress, c.pollInterval)
	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)
		reporter.run()
	}()

	var g errgroup.Group
	for id := range c.threads {
		w := &worker{id: id, coordinator: c, state: state}
		state.active.Add(1)
		g.Go(func() error {
			defer state.active.Add(-1)
			w.run(runCtx)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers report through state

	if ctx.Err() != nil {
		state.abort(ErrInterrupted)
	}
	state.finish()
	<-reporterDone
	c.state.Store(int32(StateTerminated))

	result := &Result{
		Requests: state.requests.Load(),
		Total:    total,
		Errors:   state.errors.Load(),
		Hits:     c.collectedHits(),
		Outcome:  model.OutcomeCompleted,
	}

	err := state.reason()
	var fatal *FatalError
	switch {
	case err == nil:
	case errors.Is(err, ErrInterrupted):
		result.Outcome = model.OutcomeInterrupted
	case errors.As(err, &fatal):
		result.Outcome = model.OutcomeAborted
	}

	c.logger.Debug("dispatch finished",
		"requests", result.Requests,
		"errors", result.Errors,
		"hits", len(result.Hits),
		"outcome", result.Outcome,
	)
	return result, err
}

func (c *Coordinator) recordHit(h model.Hit) {
	c.hitsMu.Lock()
	c.hits = append(c.hits, h)
	c.hitsMu.Unlock()

	if c.sink != nil {
		c.sink.Hit(h)
	}
}

func (c *Coordinator) collectedHits() []model.Hit {
	c.hitsMu.Lock()
	defer c.hitsMu.Unlock()
	hits := make([]model.Hit, len(c.hits))
	copy(hits, c.hits)
	return hits
}
