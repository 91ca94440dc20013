package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/webcrawler/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addTargetFlags registers the flags shared by fuzz and crawl.
func addTargetFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringP("url", "u", "", "Target base URL (required)")

	// Request flags
	flags.StringP("headers", "H", "", "Request headers as 'key=value&key=value'")
	flags.String("cookies", "", "Request cookies as 'name=value&name=value'")
	flags.StringP("proxies", "P", "", "Proxies as 'scheme;url,scheme;url' (e.g. 'https;http://127.0.0.1:8080')")
	flags.StringP("user-agent", "U", config.DefaultUserAgent, "User-Agent header")
	flags.Bool("rand-user-agent", false, "Pick a random User-Agent for every request")
	flags.BoolP("no-follow", "N", false, "Do not follow redirects")
	flags.BoolP("insecure", "k", false, "Skip TLS certificate verification")
	flags.Duration("timeout", config.DefaultTimeout, "Timeout for each request")
	flags.Int("retries", config.DefaultRetries, "Retries for a request that fails at the transport level")
	flags.Bool("ignore-errors", false, "Count failed requests and continue, without retries, instead of aborting")
	flags.Duration("delay", 0, "Pause between two requests of the same worker")
	flags.Int64("max-body-size", config.DefaultMaxBodySize, "Maximum number of response body bytes read")
	flags.StringP("exclude-url", "x", "", "Hosts never requested, as 'a.com,b.com' (subdomains included)")

	// Tor flags
	flags.Bool("tor", false, "Route requests through an embedded Tor daemon")
	flags.String("tor-proxy", "", "Route requests through an existing Tor SOCKS5 proxy (e.g. 127.0.0.1:9050)")
	flags.Duration("tor-timeout", config.DefaultTorStartupTimeout, "Timeout for embedded Tor startup")

	// Output flags
	flags.StringP("output", "o", "", "Mirror every result line to this file")
	flags.BoolP("quiet", "q", false, "Do not print the configuration table and the progress bar")
	flags.Bool("no-color", false, "Disable colored output")
	flags.Bool("json", false, "Write the summary as JSON (mutually exclusive with --markdown)")
	flags.Bool("markdown", false, "Write the summary as Markdown (mutually exclusive with --json)")
	flags.String("report", "", "Write the summary to this file instead of stdout")
	flags.Bool("no-save", false, "Do not save the run in the history database")
	flags.String("db-dir", config.XDGDataDir(), "Directory of the history database")

	// Configuration file
	flags.StringP("config", "c", "",
		"Configuration file path (default: .webcrawler in current or home directory)")
}

// flagReader reads flag values and keeps the first error.
type flagReader struct {
	flags *pflag.FlagSet
	err   error
}

func (r *flagReader) keep(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

func (r *flagReader) string(name string) string {
	v, err := r.flags.GetString(name)
	r.keep(err)
	return v
}

func (r *flagReader) bool(name string) bool {
	v, err := r.flags.GetBool(name)
	r.keep(err)
	return v
}

func (r *flagReader) int(name string) int {
	v, err := r.flags.GetInt(name)
	r.keep(err)
	return v
}

func (r *flagReader) int64(name string) int64 {
	v, err := r.flags.GetInt64(name)
	r.keep(err)
	return v
}

func (r *flagReader) float64(name string) float64 {
	v, err := r.flags.GetFloat64(name)
	r.keep(err)
	return v
}

func (r *flagReader) duration(name string) time.Duration {
	v, err := r.flags.GetDuration(name)
	r.keep(err)
	return v
}

// list parses a comma separated flag.
func (r *flagReader) list(name string) []string {
	items, err := config.ParseList(name, r.string(name))
	r.keep(err)
	return items
}

// buildConfig creates a Config from the shared flags and loads the
// configuration file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	r := &flagReader{flags: cmd.Flags()}

	cfg.Target = r.string("url")
	cfg.UserAgent = r.string("user-agent")
	cfg.RandomUserAgent = r.bool("rand-user-agent")
	cfg.FollowRedirects = !r.bool("no-follow")
	cfg.InsecureTLS = r.bool("insecure")
	cfg.Timeout = r.duration("timeout")
	cfg.Retries = r.int("retries")
	cfg.IgnoreErrors = r.bool("ignore-errors")
	cfg.Delay = r.duration("delay")
	cfg.MaxBodySize = r.int64("max-body-size")
	cfg.ExcludeDomains = r.list("exclude-url")

	cfg.UseTor = r.bool("tor")
	if proxy := r.string("tor-proxy"); proxy != "" {
		cfg.UseTor = true
		cfg.UseExternalTor = true
		cfg.TorProxyAddress = proxy
	}
	cfg.TorStartupTimeout = r.duration("tor-timeout")

	cfg.OutputFile = r.string("output")
	cfg.Quiet = r.bool("quiet")
	cfg.NoColor = r.bool("no-color")
	cfg.JSONReport = r.bool("json")
	cfg.MarkdownReport = r.bool("markdown")
	cfg.ReportFile = r.string("report")
	cfg.SaveToDB = !r.bool("no-save")
	cfg.DBDir = r.string("db-dir")
	cfg.ConfigFilePath = r.string("config")
	cfg.Verbose = getVerboseFlag(cmd)

	headers := r.string("headers")
	cookies := r.string("cookies")
	proxies := r.string("proxies")
	if r.err != nil {
		return nil, r.err
	}

	var err error
	if cfg.Headers, err = config.ParseKeyValues("headers", headers); err != nil {
		return nil, err
	}
	if cfg.Cookies, err = config.ParseKeyValues("cookies", cookies); err != nil {
		return nil, err
	}
	if cfg.Proxies, err = config.ParseProxies(proxies); err != nil {
		return nil, err
	}

	if err := loadSiteConfigs(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSiteConfigs loads the configuration file into cfg.SiteConfigs.
// An explicitly given file must exist; otherwise a missing file means an
// empty configuration.
func loadSiteConfigs(cfg *config.Config) error {
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		siteConfigs, err := config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.SiteConfigs = siteConfigs
	case cfg.ConfigFilePath != "":
		return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}
	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogJSONFlag retrieves the persistent log-json flag.
func getLogJSONFlag(cmd *cobra.Command) bool {
	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		logJSON, err = cmd.Root().PersistentFlags().GetBool("log-json")
		if err != nil {
			return false
		}
	}
	return logJSON
}

// parseDownloadExtensions parses the --download list. A leading '.' is
// optional and matching is case-insensitive.
func parseDownloadExtensions(input string) ([]string, error) {
	items, err := config.ParseList("download", input)
	if err != nil {
		return nil, err
	}
	exts := make([]string, 0, len(items))
	for _, item := range items {
		if ext := strings.ToLower(strings.TrimLeft(item, ".")); ext != "" {
			exts = append(exts, ext)
		}
	}
	return exts, nil
}
