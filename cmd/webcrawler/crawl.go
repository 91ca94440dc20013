package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/nao1215/webcrawler/internal/config"
	"github.com/nao1215/webcrawler/internal/crawler"
	"github.com/nao1215/webcrawler/internal/model"
	"github.com/nao1215/webcrawler/internal/pipeline"
	"github.com/nao1215/webcrawler/internal/report"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Follow links recursively from a start page",
		Long: `Crawl fetches the target page, extracts every href and src attribute and
follows the links up to --depth levels.

Links to other hosts and to media files (images, videos, fonts, archives)
are printed but never fetched. Every URL is visited at most once, so link
cycles terminate.

Site specific settings from the configuration file apply to the target host:
cookies, headers, depth, and the ignorePatterns / followPatterns globs that
restrict which paths are followed.

Examples:
  # Crawl two levels deep
  webcrawler crawl -u https://example.com -d 2

  # Save every linked PDF and ZIP file
  webcrawler crawl -u https://example.com -D pdf,zip --download-dir ./loot

  # Crawl an onion service through an existing Tor proxy
  webcrawler crawl -u http://duckduckgogg42xjoc72x3sjasowoarfbgcmvfimaftt6twagswzczad.onion --tor-proxy 127.0.0.1:9050`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	addTargetFlags(cmd)

	cmd.Flags().IntP("depth", "d", config.DefaultDepth, "Maximum recursion depth")
	cmd.Flags().StringP("download", "D", "", "Save discovered files with these extensions, as 'pdf,zip'")
	cmd.Flags().String("download-dir", ".", "Directory for downloaded files")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildCrawlConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateCrawl(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	site := cfg.ApplySiteConfig(cmd.Flags().Changed("depth"))
	if err := checkOnionTarget(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(ctx, cmd, cfg)
	if err != nil {
		return runError(err)
	}
	defer s.Close()

	s.printSettings(crawlSettings(cfg, site))

	opts := []crawler.Option{
		crawler.WithMaxDepth(cfg.Depth),
		crawler.WithDelay(cfg.Delay),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
		crawler.WithExcludeDomains(cfg.ExcludeDomains),
		crawler.WithSink(s.sink),
		crawler.WithLogger(s.logger),
	}
	if len(cfg.DownloadExtensions) > 0 {
		opts = append(opts, crawler.WithDownload(cfg.DownloadExtensions, cfg.DownloadDir))
	}

	return runError(s.run(ctx, model.ModeCrawl, pipeline.NewCrawlStep(crawler.New(s.client, opts...))))
}

// buildCrawlConfig reads the shared and the crawl flags.
func buildCrawlConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}

	r := &flagReader{flags: cmd.Flags()}
	cfg.Depth = r.int("depth")
	cfg.DownloadDir = r.string("download-dir")
	download := r.string("download")
	if r.err != nil {
		return nil, r.err
	}

	if cfg.DownloadExtensions, err = parseDownloadExtensions(download); err != nil {
		return nil, err
	}
	return cfg, nil
}

// crawlSettings lists the crawl specific rows of the configuration table.
func crawlSettings(cfg *config.Config, site config.SiteConfig) []report.Setting {
	settings := []report.Setting{
		{Name: "Depth", Value: strconv.Itoa(cfg.Depth)},
		{Name: "Ignore patterns", Value: strings.Join(site.IgnorePatterns, ", ")},
		{Name: "Follow patterns", Value: strings.Join(site.FollowPatterns, ", ")},
	}
	if len(cfg.DownloadExtensions) > 0 {
		settings = append(settings, report.Setting{
			Name:  "Download",
			Value: strings.Join(cfg.DownloadExtensions, ", ") + " -> " + cfg.DownloadDir,
		})
	}
	return settings
}
