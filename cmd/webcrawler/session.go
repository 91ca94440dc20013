package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nao1215/webcrawler/internal/config"
	"github.com/nao1215/webcrawler/internal/database"
	"github.com/nao1215/webcrawler/internal/httpclient"
	wclog "github.com/nao1215/webcrawler/internal/log"
	"github.com/nao1215/webcrawler/internal/model"
	"github.com/nao1215/webcrawler/internal/pipeline"
	"github.com/nao1215/webcrawler/internal/report"
	"github.com/nao1215/webcrawler/internal/tor"
	"github.com/spf13/cobra"
)

// session holds the resources shared by the steps of one run.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer

	client    *httpclient.Client
	torClient *tor.Client
	sink      *report.Sink

	// closers release resources in reverse order of acquisition.
	closers []func() error
}

// newSession starts Tor if requested and builds the HTTP client and the
// result sink.
func newSession(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*session, error) {
	s := &session{
		cfg: cfg,
		logger: wclog.NewLogger(cmd.ErrOrStderr(), wclog.Options{
			Verbose: cfg.Verbose,
			JSON:    getLogJSONFlag(cmd),
		}),
		stdout: cmd.OutOrStdout(),
		stderr: cmd.ErrOrStderr(),
	}
	slog.SetDefault(s.logger)

	if cfg.UseTor {
		if err := s.startTor(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}

	client, err := httpclient.New(cfg.Proxies, s.clientOptions()...)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}
	s.client = client

	sinkOpts := []report.SinkOption{}
	if cfg.NoColor {
		sinkOpts = append(sinkOpts, report.WithColor(false))
	}
	if cfg.OutputFile != "" {
		f, err := createOutputFile(cfg.OutputFile)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, f.Close)
		sinkOpts = append(sinkOpts, report.WithMirror(f))
	}
	s.sink = report.NewSink(s.stdout, sinkOpts...)

	return s, nil
}

func (s *session) clientOptions() []httpclient.Option {
	opts := []httpclient.Option{
		httpclient.WithHeaders(s.cfg.Headers),
		httpclient.WithCookies(s.cfg.Cookies),
		httpclient.WithUserAgent(s.cfg.UserAgent),
		httpclient.WithRandomUserAgent(s.cfg.RandomUserAgent),
		httpclient.WithFollowRedirects(s.cfg.FollowRedirects),
		httpclient.WithTimeout(s.cfg.Timeout),
		httpclient.WithMaxBodySize(s.cfg.MaxBodySize),
		httpclient.WithInsecureTLS(s.cfg.InsecureTLS),
	}
	if s.torClient != nil {
		opts = append(opts, httpclient.WithDialContext(s.torClient.DialContext))
	}
	return opts
}

// startTor connects to an external Tor proxy or starts an embedded daemon.
func (s *session) startTor(ctx context.Context) error {
	if s.cfg.UseExternalTor {
		client, err := tor.NewClient(s.cfg.TorProxyAddress)
		if err != nil {
			return fmt.Errorf("failed to create Tor client: %w", err)
		}
		s.torClient = client
		return nil
	}

	fmt.Fprintln(s.stderr, "Starting embedded Tor daemon...")
	fmt.Fprintf(s.stderr, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embedded := tor.NewEmbeddedTor(tor.WithStartupTimeout(s.cfg.TorStartupTimeout))
	if err := embedded.Start(ctx); err != nil {
		return fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	s.closers = append(s.closers, func() error {
		s.logger.Debug("stopping embedded Tor daemon")
		return embedded.Stop()
	})
	s.logger.Info("embedded Tor daemon started",
		"socksAddr", embedded.SocksAddr(),
		"controlAddr", embedded.ControlAddr(),
	)

	client, err := embedded.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create Tor client: %w", err)
	}
	s.torClient = client
	return nil
}

// Close releases every resource of the session.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("failed to release resource", "error", err)
		}
	}
	s.closers = nil
}

// printSettings prints the configuration table unless quiet.
func (s *session) printSettings(settings []report.Setting) {
	if s.cfg.Quiet {
		return
	}
	if err := report.ConfigTable(s.stdout, append(s.commonSettings(), settings...)); err != nil {
		s.logger.Warn("failed to print configuration", "error", err)
	}
	fmt.Fprintln(s.stdout)
}

func (s *session) commonSettings() []report.Setting {
	cfg := s.cfg
	transport := "direct"
	switch {
	case cfg.UseExternalTor:
		transport = "tor " + cfg.TorProxyAddress
	case cfg.UseTor:
		transport = "tor (embedded)"
	case len(cfg.Proxies) > 0:
		parts := make([]string, 0, len(cfg.Proxies))
		for scheme, proxy := range cfg.Proxies {
			parts = append(parts, scheme+" via "+proxy)
		}
		transport = strings.Join(parts, ", ")
	}

	userAgent := cfg.UserAgent
	if cfg.RandomUserAgent {
		userAgent = "random"
	}

	settings := []report.Setting{
		{Name: "Target", Value: cfg.Target},
		{Name: "Transport", Value: transport},
		{Name: "User-Agent", Value: userAgent},
		{Name: "Timeout", Value: cfg.Timeout.String()},
		{Name: "Follow redirects", Value: strconv.FormatBool(cfg.FollowRedirects)},
		{Name: "Retries", Value: strconv.Itoa(cfg.Retries)},
		{Name: "Ignore errors", Value: strconv.FormatBool(cfg.IgnoreErrors)},
		{Name: "Excluded hosts", Value: strings.Join(cfg.ExcludeDomains, ", ")},
		{Name: "Output", Value: cfg.OutputFile},
	}
	if cfg.Delay > 0 {
		settings = append(settings, report.Setting{Name: "Delay", Value: cfg.Delay.String()})
	}
	return settings
}

// run assembles the pipeline around work and executes it.
func (s *session) run(ctx context.Context, mode model.Mode, work pipeline.Step) error {
	p := pipeline.New(pipeline.WithLogger(s.logger))

	if s.torClient != nil {
		p.AddSteps(pipeline.NewTorCheckStep(s.torClient))
	}
	p.AddSteps(pipeline.NewTargetCheckStep(s.client))
	if s.client.HasProxies() {
		p.AddSteps(pipeline.NewProxyCheckStep(s.client))
	}
	p.AddSteps(work)

	if s.cfg.SaveToDB {
		db, err := database.Open(s.cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		s.logger.Debug("history database opened", "path", db.Path())
		p.AddFinalSteps(pipeline.NewPersistStep(db, s.logger))
	}

	summary := newReportWriter(s.cfg, s.stdout)
	if s.cfg.ReportFile != "" {
		f, err := createOutputFile(s.cfg.ReportFile)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, f.Close)
		// The terminal still gets the plain summary.
		summary = report.NewMultiWriter(
			newReportWriter(s.cfg, f),
			report.NewSimpleWriter(s.stdout, report.WithVerbose(s.cfg.Verbose)),
		)
	}
	p.AddFinalSteps(pipeline.NewReportStep(summary))

	s.logger.Debug("starting run", "mode", mode, "target", s.cfg.Target, "steps", p.StepNames())
	err := p.Execute(ctx, model.NewRunReport(mode, s.cfg.Target))
	if errors.Is(err, pipeline.ErrInterrupted) || errors.Is(err, context.Canceled) {
		s.sink.Println("[!] Interrupted, results are partial")
	}
	return err
}

// newReportWriter returns the summary writer selected by the flags.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}

// progressWriter returns where the progress bar is drawn, or nil when it is
// disabled.
func (s *session) progressWriter() io.Writer {
	if s.cfg.Quiet {
		return nil
	}
	return s.stderr
}

// createOutputFile creates path and its parent directories. Output may
// contain session cookies, so the file is readable by the owner only.
func createOutputFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// checkOnionTarget rejects malformed onion addresses and onion targets
// without a Tor transport.
func checkOnionTarget(cfg *config.Config) error {
	host := cfg.TargetHost()
	if !tor.IsOnionHost(host) {
		return nil
	}
	if err := tor.ValidateHost(host); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if !cfg.UseTor {
		return errors.New("configuration error: onion targets require --tor or --tor-proxy")
	}
	return nil
}

// runError adds a hint to errors the user can act on.
func runError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, httpclient.ErrTargetUnreachable):
		return fmt.Errorf("%w (check the url and your network)", err)
	case errors.Is(err, tor.ErrProxyCannotConnect):
		return fmt.Errorf("%w (make sure Tor is running)", err)
	default:
		return err
	}
}
