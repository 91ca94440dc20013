package dispatch

import (
	"context"
	"time"

	"github.com/nao1215/webcrawler/internal/httpclient"
	"github.com/nao1215/webcrawler/internal/model"
)

// worker pulls words until the source is exhausted or the run is cancelled.
type worker struct {
	id          int
	coordinator *Coordinator
	state       *runState
}

func (w *worker) run(ctx context.Context) {
	c := w.coordinator
	for {
		if w.state.stopped(ctx) {
			return
		}

		word, duplicate, ok := w.state.claim()
		if !ok {
			return
		}
		if word == "" || duplicate {
			w.state.requests.Add(1)
			continue
		}

		payload := c.target + word
		resp, attempts, err := w.fetch(ctx, payload)
		if err != nil {
			if ctx.Err() != nil {
				// The run is stopping; this word is not counted.
				return
			}
			if !c.ignoreErrors {
				c.logger.Error("request failed", "worker", w.id, "url", payload, "attempts", attempts, "error", err)
				w.state.abort(&FatalError{Payload: payload, Attempts: attempts, Err: err})
				return
			}
			c.logger.Warn("request failed, skipping", "url", payload, "attempts", attempts, "error", err)
			w.state.errors.Add(1)
		} else if !c.filter.Hide(resp) {
			c.recordHit(model.NewHit(resp, time.Now()))
		}

		w.state.requests.Add(1)
		if err := w.pace(ctx); err != nil {
			return
		}
	}
}

// fetch issues the request, retrying immediately on transport failure. The
// retry budget is per word. With ignoreErrors a failing word is skipped at
// once, without retries.
func (w *worker) fetch(ctx context.Context, payload string) (*model.Response, int, error) {
	c := w.coordinator
	req := httpclient.Request{Method: c.method, URL: payload, Body: c.body}

	retries := c.retries
	if c.ignoreErrors {
		retries = 0
	}

	for attempt := 1; ; attempt++ {
		resp, err := c.requester.Do(ctx, req)
		if err == nil {
			return resp, attempt, nil
		}
		if ctx.Err() != nil || attempt > retries {
			return nil, attempt, err
		}
		c.logger.Debug("retrying request", "worker", w.id, "url", payload, "attempt", attempt, "error", err)
	}
}

// pace waits for the rate limiter and the configured delay.
func (w *worker) pace(ctx context.Context) error {
	c := w.coordinator
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if c.delay <= 0 {
		return nil
	}

	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
