package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/nao1215/webcrawler/internal/config"
	"github.com/nao1215/webcrawler/internal/dispatch"
	"github.com/nao1215/webcrawler/internal/filter"
	"github.com/nao1215/webcrawler/internal/model"
	"github.com/nao1215/webcrawler/internal/pipeline"
	"github.com/nao1215/webcrawler/internal/report"
	"github.com/nao1215/webcrawler/internal/wordlist"
	"github.com/spf13/cobra"
)

// NewFuzzCmd creates the fuzz command.
func NewFuzzCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fuzz",
		Short: "Request wordlist-derived paths below a base URL",
		Long: `Fuzz requests target + word for every word of the wordlist.

Every word can be expanded with file extensions (-e php,txt requests admin,
admin.php and admin.txt) and suffixed with a slash (-s). A word is requested
at most once. Responses are printed unless a hide filter matches:

  --fc  hide status codes     (e.g. 404,403)
  --fl  hide content lengths  (e.g. 0,1234)
  --fs  hide Server headers   (e.g. nginx)
  --fr  hide responses whose headers or body match a regular expression

Only the first given filter kind is applied, in the order above.

A request that fails at the transport level is retried --retries times.
Without --ignore-errors the first request that still fails stops the run.

Examples:
  # Fuzz with 20 workers
  webcrawler fuzz -u https://example.com -w words.txt -t 20

  # Try PHP and backup extensions, hide 404 responses
  webcrawler fuzz -u https://example.com -w words.txt -e php,bak --fc 404

  # Authenticated fuzzing through Burp
  webcrawler fuzz -u https://example.com -w words.txt \
    --cookies 'session=abc' -P 'https;http://127.0.0.1:8080' -k`,
		Args: cobra.NoArgs,
		RunE: runFuzzCmd,
	}

	addTargetFlags(cmd)

	cmd.Flags().StringP("wordlist", "w", "", "Wordlist file, one word per line (required)")
	cmd.Flags().StringP("extensions", "e", "", "Extensions appended to every word, as 'php,txt'")
	cmd.Flags().BoolP("slash", "s", false, "Append '/' to every word")
	cmd.Flags().IntP("threads", "t", config.DefaultThreads, "Number of concurrent workers")
	cmd.Flags().StringP("method", "X", config.DefaultMethod, "HTTP method")
	cmd.Flags().String("data", "", "Request body for POST, PUT and PATCH")
	cmd.Flags().Float64("rate", 0, "Maximum requests per second across all workers (0 = unlimited)")

	// Hide filters
	cmd.Flags().String("fc", "", "Hide responses with these status codes, as '404,403'")
	cmd.Flags().String("fl", "", "Hide responses with these Content-Length values")
	cmd.Flags().String("fs", "", "Hide responses with these Server headers")
	cmd.Flags().String("fr", "", "Hide responses whose headers or body match this regular expression")

	return cmd
}

// runFuzzCmd executes the fuzz command.
func runFuzzCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildFuzzConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateFuzz(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	cfg.ApplySiteConfig(false)
	if err := checkOnionTarget(cfg); err != nil {
		return err
	}

	spec, err := filter.ParseSpec(cfg.FilterStatus, cfg.FilterLength, cfg.FilterServer, cfg.FilterRegex)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	source, err := wordlist.Open(cfg.Wordlist,
		wordlist.WithExtensions(cfg.Extensions),
		wordlist.WithTrailingSlash(cfg.AddSlash),
	)
	if err != nil {
		return err
	}
	defer source.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(ctx, cmd, cfg)
	if err != nil {
		return runError(err)
	}
	defer s.Close()

	s.printSettings(fuzzSettings(cfg, spec, source.Total()))

	coordinator := dispatch.NewCoordinator(cfg.Target, source, s.client,
		dispatch.WithThreads(cfg.Threads),
		dispatch.WithRetries(cfg.Retries),
		dispatch.WithIgnoreErrors(cfg.IgnoreErrors),
		dispatch.WithDelay(cfg.Delay),
		dispatch.WithRate(cfg.Rate),
		dispatch.WithMethod(cfg.Method, cfg.Data),
		dispatch.WithFilter(spec),
		dispatch.WithSink(s.sink),
		dispatch.WithLogger(s.logger),
		dispatch.WithProgress(s.progressWriter()),
	)

	err = s.run(ctx, model.ModeFuzz, pipeline.NewFuzzStep(coordinator))
	if err == nil {
		err = source.Err()
	}
	return runError(err)
}

// buildFuzzConfig reads the shared and the fuzz flags.
func buildFuzzConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}

	r := &flagReader{flags: cmd.Flags()}
	cfg.Wordlist = r.string("wordlist")
	cfg.AddSlash = r.bool("slash")
	cfg.Threads = r.int("threads")
	cfg.Method = r.string("method")
	cfg.Data = r.string("data")
	cfg.Rate = r.float64("rate")
	cfg.FilterStatus = r.list("fc")
	cfg.FilterLength = r.list("fl")
	cfg.FilterServer = r.list("fs")
	cfg.FilterRegex = r.string("fr")
	extensions := r.string("extensions")
	if r.err != nil {
		return nil, r.err
	}

	if cfg.Extensions, err = config.ParseExtensions(extensions); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fuzzSettings lists the fuzz specific rows of the configuration table.
func fuzzSettings(cfg *config.Config, spec filter.Spec, total int64) []report.Setting {
	words := cfg.Wordlist
	if total >= 0 {
		words += " (" + strconv.FormatInt(total, 10) + " requests)"
	}

	var hide string
	switch spec.Active() {
	case filter.KindStatus:
		hide = "status " + strings.Join(spec.Status, ",")
	case filter.KindLength:
		hide = "length " + strings.Join(spec.Lengths, ",")
	case filter.KindServer:
		hide = "server " + strings.Join(spec.Servers, ",")
	case filter.KindRegex:
		hide = "regex " + spec.Regex.String()
	}

	settings := []report.Setting{
		{Name: "Wordlist", Value: words},
		{Name: "Extensions", Value: strings.Join(cfg.Extensions, ", ")},
		{Name: "Add slash", Value: strconv.FormatBool(cfg.AddSlash)},
		{Name: "Threads", Value: strconv.Itoa(cfg.Threads)},
		{Name: "Method", Value: cfg.Method},
		{Name: "Hide", Value: hide},
	}
	if cfg.Rate > 0 {
		settings = append(settings, report.Setting{Name: "Rate", Value: strconv.FormatFloat(cfg.Rate, 'f', -1, 64) + "/s"})
	}
	return settings
}
