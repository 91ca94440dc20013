package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/nao1215/webcrawler/internal/config"
	"github.com/nao1215/webcrawler/internal/database"
	"github.com/nao1215/webcrawler/internal/model"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [target-url]",
		Short: "List, show and compare saved runs",
		Long: `History reads the runs saved by fuzz and crawl.

Without arguments it lists every target in the database. With a target URL
it lists the runs for that target, newest first.

Examples:
  # List all targets
  webcrawler history

  # List the runs of a target
  webcrawler history https://example.com

  # Show one run in full
  webcrawler history --id 12

  # Show what changed between the two latest fuzz runs
  webcrawler history https://example.com --compare

  # Compare the two latest crawl runs, as Markdown
  webcrawler history https://example.com --compare --mode crawl

  # Delete runs older than 30 days
  webcrawler history --prune-days 30`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("id", "i", 0, "Show the run with this ID")
	cmd.Flags().Bool("compare", false, "Compare the two latest runs of the target")
	cmd.Flags().StringP("mode", "m", string(model.ModeFuzz), "Run mode used by --compare (fuzz or crawl)")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs listed (0 = all)")
	cmd.Flags().Int("prune-days", 0, "Delete runs older than this many days")
	cmd.Flags().Bool("json", false, "Show a run as JSON")
	cmd.Flags().Bool("markdown", false, "Show a run as Markdown")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")

	return cmd
}

// historyOptions holds the flags of the history command.
type historyOptions struct {
	target    string
	id        int64
	compare   bool
	mode      model.Mode
	limit     int
	pruneDays int
	json      bool
	markdown  bool
	dbDir     string
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := readHistoryOptions(cmd, args)
	if err != nil {
		return err
	}

	db, err := database.Open(opts.dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case opts.pruneDays > 0:
		return pruneRuns(ctx, out, db, opts.pruneDays)
	case opts.id > 0:
		return showRun(ctx, out, db, opts)
	case opts.compare:
		return compareLatestRuns(ctx, out, db, opts.target, opts.mode)
	case opts.target != "":
		return listRuns(ctx, out, db, opts.target, opts.limit)
	default:
		return listTargets(ctx, out, db)
	}
}

// readHistoryOptions reads and validates the flags.
func readHistoryOptions(cmd *cobra.Command, args []string) (*historyOptions, error) {
	r := &flagReader{flags: cmd.Flags()}
	opts := &historyOptions{
		id:        r.int64("id"),
		compare:   r.bool("compare"),
		mode:      model.Mode(r.string("mode")),
		limit:     r.int("limit"),
		pruneDays: r.int("prune-days"),
		json:      r.bool("json"),
		markdown:  r.bool("markdown"),
		dbDir:     r.string("db-dir"),
	}
	if r.err != nil {
		return nil, r.err
	}

	if len(args) == 1 {
		target, err := config.NormalizeTarget(args[0])
		if err != nil {
			return nil, err
		}
		opts.target = target
	}
	if opts.compare && opts.target == "" {
		return nil, errors.New("--compare requires a target url")
	}
	if opts.mode != model.ModeFuzz && opts.mode != model.ModeCrawl {
		return nil, fmt.Errorf("invalid mode %q: must be fuzz or crawl", opts.mode)
	}
	if opts.json && opts.markdown {
		return nil, config.ErrConflictingReportFormats
	}
	if opts.pruneDays < 0 {
		return nil, errors.New("--prune-days must be non-negative")
	}
	return opts, nil
}

// listTargets prints every target with saved runs.
func listTargets(ctx context.Context, out io.Writer, db *database.HistoryDB) error {
	targets, err := db.ListTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	if len(targets) == 0 {
		fmt.Fprintln(out, "No runs found in the database.")
		fmt.Fprintln(out, "\nUse 'webcrawler fuzz' or 'webcrawler crawl' to start a run.")
		return nil
	}

	fmt.Fprintf(out, "Targets (%d):\n\n", len(targets))
	for _, target := range targets {
		fmt.Fprintf(out, "  %s\n", target)
	}
	fmt.Fprintln(out, "\nUse 'webcrawler history <target-url>' to see the runs of a target.")
	return nil
}

// listRuns prints the runs of target as a table.
func listRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, target string, limit int) error {
	runs, err := db.ListRuns(ctx, target, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs found for %s\n", target)
		return nil
	}

	fmt.Fprintf(out, "Runs for %s (%d):\n\n", target, len(runs))
	table := tablewriter.NewWriter(out)
	table.Header([]string{"ID", "Mode", "Started", "Duration", "Requests", "Errors", "Results", "Status"})
	for _, run := range runs {
		results := run.Hits
		if run.Mode == model.ModeCrawl {
			results = run.Discoveries
		}
		if err := table.Append([]string{
			strconv.FormatInt(run.ID, 10),
			string(run.Mode),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(),
			strconv.FormatInt(run.Requests, 10),
			strconv.FormatInt(run.Errors, 10),
			strconv.Itoa(results),
			string(run.Outcome),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// showRun prints one run with the selected report writer.
func showRun(ctx context.Context, out io.Writer, db *database.HistoryDB, opts *historyOptions) error {
	run, err := db.GetRun(ctx, opts.id)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", opts.id, err)
	}

	cfg := config.NewConfig()
	cfg.JSONReport = opts.json
	cfg.MarkdownReport = opts.markdown
	cfg.Verbose = true
	_, err = newReportWriter(cfg, out).Write(run)
	return err
}

// pruneRuns deletes runs older than days.
func pruneRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, days int) error {
	cutoff := time.Now().AddDate(0, 0, -days)
	deleted, err := db.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted %d run(s) started before %s\n", deleted, cutoff.Format("2006-01-02"))
	return nil
}

// runDiff is the difference between two runs of the same target and mode.
type runDiff struct {
	Older   *model.RunReport
	Newer   *model.RunReport
	Added   []string
	Removed []string
	// Changed lists fuzz payloads whose status code differs.
	Changed []string
}

// diffRuns compares the results of older and newer. Fuzz runs are compared
// by payload and status code, crawl runs by discovered URL.
func diffRuns(older, newer *model.RunReport) runDiff {
	diff := runDiff{Older: older, Newer: newer}

	before := resultIndex(older)
	after := resultIndex(newer)

	for key, status := range after {
		prev, ok := before[key]
		switch {
		case !ok:
			diff.Added = append(diff.Added, key)
		case prev != status:
			diff.Changed = append(diff.Changed, fmt.Sprintf("%s (%s -> %s)", key, prev, status))
		}
	}
	for key := range before {
		if _, ok := after[key]; !ok {
			diff.Removed = append(diff.Removed, key)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Changed)
	return diff
}

// resultIndex maps every result of a run to a comparable value.
func resultIndex(r *model.RunReport) map[string]string {
	index := make(map[string]string, len(r.Hits)+len(r.Discoveries))
	for _, hit := range r.Hits {
		index[hit.Payload] = strconv.Itoa(hit.StatusCode)
	}
	for _, d := range r.Discoveries {
		index[d.URL] = ""
	}
	return index
}

// compareLatestRuns prints the difference between the two latest runs.
func compareLatestRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, target string, mode model.Mode) error {
	runs, err := db.LatestRuns(ctx, target, mode, 2)
	if err != nil {
		return fmt.Errorf("failed to load runs: %w", err)
	}
	if len(runs) < 2 {
		return fmt.Errorf("at least two %s runs of %s are needed for a comparison, found %d", mode, target, len(runs))
	}

	writeDiff(out, diffRuns(runs[1], runs[0]))
	return nil
}

// writeDiff prints diff in a unified-diff like layout.
func writeDiff(out io.Writer, diff runDiff) {
	fmt.Fprintf(out, "Comparing run %d (%s) with run %d (%s)\n\n",
		diff.Older.ID, diff.Older.StartedAt.Local().Format("2006-01-02 15:04"),
		diff.Newer.ID, diff.Newer.StartedAt.Local().Format("2006-01-02 15:04"))

	if len(diff.Added)+len(diff.Removed)+len(diff.Changed) == 0 {
		fmt.Fprintln(out, "No changes.")
		return
	}
	for _, key := range diff.Added {
		fmt.Fprintf(out, "+ %s\n", key)
	}
	for _, key := range diff.Removed {
		fmt.Fprintf(out, "- %s\n", key)
	}
	for _, key := range diff.Changed {
		fmt.Fprintf(out, "~ %s\n", key)
	}
	fmt.Fprintf(out, "\n%d new, %d gone, %d changed\n", len(diff.Added), len(diff.Removed), len(diff.Changed))
}
