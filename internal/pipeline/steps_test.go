package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/webcrawler/internal/crawler"
	"github.com/nao1215/webcrawler/internal/dispatch"
	"github.com/nao1215/webcrawler/internal/model"
	"github.com/nao1215/webcrawler/internal/report"
	"github.com/nao1215/webcrawler/internal/tor"
)

type fakeChecker struct {
	target string
	err    error
}

func (f *fakeChecker) CheckTarget(_ context.Context, target string) error {
	f.target = target
	return f.err
}

func (f *fakeChecker) CheckProxy(_ context.Context, target string) error {
	f.target = target
	return f.err
}

type fakeTor struct {
	status tor.ProxyStatus
}

func (f fakeTor) CheckConnection(context.Context) tor.ProxyStatus { return f.status }
func (f fakeTor) ProxyAddress() string                            { return "127.0.0.1:9050" }

type fakeFuzzer struct {
	result *dispatch.Result
	err    error
}

func (f fakeFuzzer) Run(context.Context) (*dispatch.Result, error) {
	return f.result, f.err
}

type fakeCrawler struct {
	result *crawler.Result
	err    error
}

func (f fakeCrawler) Crawl(context.Context, string) (*crawler.Result, error) {
	return f.result, f.err
}

type fakeSaver struct {
	saved *model.RunReport
	err   error
}

func (f *fakeSaver) SaveRun(_ context.Context, r *model.RunReport) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = r
	r.ID = 7
	return 7, nil
}

func TestCheckSteps(t *testing.T) {
	t.Parallel()

	report := model.NewRunReport(model.ModeFuzz, "http://example.com/")

	target := &fakeChecker{}
	if err := NewTargetCheckStep(target).Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.target != report.Target {
		t.Errorf("checked %q, expected %q", target.target, report.Target)
	}

	proxyErr := errors.New("proxy down")
	if err := NewProxyCheckStep(&fakeChecker{err: proxyErr}).Do(context.Background(), report); !errors.Is(err, proxyErr) {
		t.Errorf("expected %v, got %v", proxyErr, err)
	}

	if err := NewTorCheckStep(fakeTor{status: tor.ProxyStatusOK}).Do(context.Background(), report); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := NewTorCheckStep(fakeTor{status: tor.ProxyStatusWrongType}).Do(context.Background(), report)
	if !errors.Is(err, tor.ErrProxyNotTor) || !strings.Contains(err.Error(), "127.0.0.1:9050") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFuzzStep(t *testing.T) {
	t.Parallel()

	hits := []model.Hit{{Payload: "http://example.com/admin", StatusCode: 200}}
	fatal := &dispatch.FatalError{Payload: "http://example.com/x", Attempts: 1, Err: errors.New("refused")}
	step := NewFuzzStep(fakeFuzzer{
		result: &dispatch.Result{Requests: 4, Total: 10, Errors: 0, Hits: hits, Outcome: model.OutcomeAborted},
		err:    fatal,
	})

	report := model.NewRunReport(model.ModeFuzz, "http://example.com/")
	err := step.Do(context.Background(), report)
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if report.Requests != 4 || report.Total != 10 || len(report.Hits) != 1 || report.Outcome != model.OutcomeAborted {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestCrawlStep(t *testing.T) {
	t.Parallel()

	discoveries := []model.Discovery{{URL: "http://example.com/a"}}

	tests := []struct {
		name    string
		err     error
		wantErr error
		outcome model.Outcome
	}{
		{name: "completed", outcome: model.OutcomeCompleted},
		{name: "interrupted", err: context.Canceled, wantErr: ErrInterrupted, outcome: model.OutcomeInterrupted},
		{name: "failed", err: errors.New("root failed"), outcome: model.OutcomeAborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			step := NewCrawlStep(fakeCrawler{result: &crawler.Result{Pages: 3, Errors: 1, Discoveries: discoveries}, err: tt.err})
			report := model.NewRunReport(model.ModeCrawl, "http://example.com/")
			err := step.Do(context.Background(), report)

			switch {
			case tt.err == nil && err != nil:
				t.Fatalf("unexpected error: %v", err)
			case tt.wantErr != nil && !errors.Is(err, tt.wantErr):
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			case tt.err != nil && err == nil:
				t.Fatal("expected error")
			}
			if report.Requests != 3 || report.Errors != 1 || len(report.Discoveries) != 1 {
				t.Errorf("unexpected report: %+v", report)
			}
			if report.Outcome != tt.outcome {
				t.Errorf("Outcome = %v, expected %v", report.Outcome, tt.outcome)
			}
		})
	}
}

func TestFinalSteps(t *testing.T) {
	t.Parallel()

	t.Run("persist", func(t *testing.T) {
		t.Parallel()

		saver := &fakeSaver{}
		r := model.NewRunReport(model.ModeFuzz, "http://example.com/")
		if err := NewPersistStep(saver, quietLogger()).Do(context.Background(), r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if saver.saved != r || r.ID != 7 {
			t.Errorf("run was not saved: %+v", r)
		}

		failing := &fakeSaver{err: errors.New("locked")}
		if err := NewPersistStep(failing, nil).Do(context.Background(), r); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		r := model.NewRunReport(model.ModeFuzz, "http://example.com/")
		if err := NewReportStep(report.NewSimpleWriter(&buf)).Do(context.Background(), r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "FUZZ SUMMARY") {
			t.Errorf("unexpected output: %s", buf.String())
		}
	})
}
