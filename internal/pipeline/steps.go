package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/webcrawler/internal/crawler"
	"github.com/nao1215/webcrawler/internal/dispatch"
	"github.com/nao1215/webcrawler/internal/model"
	"github.com/nao1215/webcrawler/internal/report"
	"github.com/nao1215/webcrawler/internal/tor"
)

// ErrInterrupted is dispatch.ErrInterrupted, re-exported for callers that
// only see the pipeline.
var ErrInterrupted = dispatch.ErrInterrupted

// TargetChecker probes the target. *httpclient.Client implements it.
type TargetChecker interface {
	CheckTarget(ctx context.Context, target string) error
}

// ProxyChecker probes the configured proxies. *httpclient.Client
// implements it.
type ProxyChecker interface {
	CheckProxy(ctx context.Context, target string) error
}

// TorChecker checks a Tor SOCKS5 proxy. *tor.Client implements it.
type TorChecker interface {
	CheckConnection(ctx context.Context) tor.ProxyStatus
	ProxyAddress() string
}

// Fuzzer runs the worker pool. *dispatch.Coordinator implements it.
type Fuzzer interface {
	Run(ctx context.Context) (*dispatch.Result, error)
}

// LinkCrawler follows links. *crawler.Crawler implements it.
type LinkCrawler interface {
	Crawl(ctx context.Context, target string) (*crawler.Result, error)
}

// RunSaver persists a finished run. *database.HistoryDB implements it.
type RunSaver interface {
	SaveRun(ctx context.Context, report *model.RunReport) (int64, error)
}

// TargetCheckStep fails the run when the target does not answer.
type TargetCheckStep struct {
	checker TargetChecker
}

// NewTargetCheckStep creates a TargetCheckStep.
func NewTargetCheckStep(checker TargetChecker) *TargetCheckStep {
	return &TargetCheckStep{checker: checker}
}

// Name returns the step name.
func (s *TargetCheckStep) Name() string {
	return "target_check"
}

// Do probes report.Target.
func (s *TargetCheckStep) Do(ctx context.Context, report *model.RunReport) error {
	return s.checker.CheckTarget(ctx, report.Target)
}

// ProxyCheckStep fails the run when a configured proxy does not work.
type ProxyCheckStep struct {
	checker ProxyChecker
}

// NewProxyCheckStep creates a ProxyCheckStep.
func NewProxyCheckStep(checker ProxyChecker) *ProxyCheckStep {
	return &ProxyCheckStep{checker: checker}
}

// Name returns the step name.
func (s *ProxyCheckStep) Name() string {
	return "proxy_check"
}

// Do probes the proxies through report.Target.
func (s *ProxyCheckStep) Do(ctx context.Context, report *model.RunReport) error {
	return s.checker.CheckProxy(ctx, report.Target)
}

// TorCheckStep fails the run when the Tor proxy is not usable.
type TorCheckStep struct {
	checker TorChecker
}

// NewTorCheckStep creates a TorCheckStep.
func NewTorCheckStep(checker TorChecker) *TorCheckStep {
	return &TorCheckStep{checker: checker}
}

// Name returns the step name.
func (s *TorCheckStep) Name() string {
	return "tor_check"
}

// Do checks the SOCKS5 handshake of the Tor proxy.
func (s *TorCheckStep) Do(ctx context.Context, _ *model.RunReport) error {
	if err := s.checker.CheckConnection(ctx).Error(); err != nil {
		return fmt.Errorf("tor proxy %s: %w", s.checker.ProxyAddress(), err)
	}
	return nil
}

// FuzzStep runs the worker pool and records its result.
type FuzzStep struct {
	fuzzer Fuzzer
}

// NewFuzzStep creates a FuzzStep.
func NewFuzzStep(fuzzer Fuzzer) *FuzzStep {
	return &FuzzStep{fuzzer: fuzzer}
}

// Name returns the step name.
func (s *FuzzStep) Name() string {
	return "fuzz"
}

// Do runs the fuzzer. Partial results are recorded before an error is
// returned.
func (s *FuzzStep) Do(ctx context.Context, report *model.RunReport) error {
	result, err := s.fuzzer.Run(ctx)
	if result != nil {
		report.Total = result.Total
		report.Requests = result.Requests
		report.Errors = result.Errors
		report.Hits = result.Hits
		report.Outcome = result.Outcome
	}
	return err
}

// CrawlStep runs the crawler and records its result.
type CrawlStep struct {
	crawler LinkCrawler
}

// NewCrawlStep creates a CrawlStep.
func NewCrawlStep(c LinkCrawler) *CrawlStep {
	return &CrawlStep{crawler: c}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls report.Target. An interrupted crawl keeps its partial result.
func (s *CrawlStep) Do(ctx context.Context, report *model.RunReport) error {
	result, err := s.crawler.Crawl(ctx, report.Target)
	if result != nil {
		report.Requests = result.Pages
		report.Errors = result.Errors
		report.Discoveries = result.Discoveries
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		report.Outcome = model.OutcomeInterrupted
		return ErrInterrupted
	}
	report.Outcome = model.OutcomeAborted
	return err
}

// PersistStep saves the run to the history database.
type PersistStep struct {
	saver  RunSaver
	logger *slog.Logger
}

// NewPersistStep creates a PersistStep.
func NewPersistStep(saver RunSaver, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{saver: saver, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do saves report.
func (s *PersistStep) Do(ctx context.Context, report *model.RunReport) error {
	id, err := s.saver.SaveRun(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	s.logger.Debug("run saved", "id", id)
	return nil
}

// ReportStep writes the run summary.
type ReportStep struct {
	writer report.Writer
}

// NewReportStep creates a ReportStep.
func NewReportStep(w report.Writer) *ReportStep {
	return &ReportStep{writer: w}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do writes report.
func (s *ReportStep) Do(_ context.Context, r *model.RunReport) error {
	if _, err := s.writer.Write(r); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
