package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/webcrawler/internal/model"
)

// FileName is the database file created in the data directory.
const FileName = "webcrawler.db"

// timestampLayout has a fixed width so that stored times sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores finished runs.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and the database file.
	CreateIfNotExists bool

	// EnableWAL turns on write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("database not found at %s", dbPath)
			}
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		mode = "rw"
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode+"&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := h.createTables(context.Background()); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return h, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

func (h *HistoryDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mode TEXT NOT NULL,
		target TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		requests INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		steps TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(target);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS hits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		payload TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		content_length TEXT NOT NULL,
		server TEXT NOT NULL,
		found_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_hits_run ON hits(run_id);

	CREATE TABLE IF NOT EXISTS discoveries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		found_on TEXT NOT NULL,
		depth INTEGER NOT NULL,
		media INTEGER NOT NULL DEFAULT 0,
		external INTEGER NOT NULL DEFAULT 0,
		malformed INTEGER NOT NULL DEFAULT 0,
		downloaded TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_discoveries_run ON discoveries(run_id);
	`
	_, err := h.db.ExecContext(ctx, schema)
	return err
}

// SaveRun stores report with its hits and discoveries in one transaction
// and sets report.ID.
func (h *HistoryDB) SaveRun(ctx context.Context, report *model.RunReport) (id int64, err error) {
	steps, err := json.Marshal(report.Steps)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize steps: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // returning the original error
		}
	}()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (mode, target, started_at, finished_at, total, requests, errors, outcome, error, steps)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(report.Mode),
		report.Target,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.Total,
		report.Requests,
		report.Errors,
		string(report.Outcome),
		report.Error,
		string(steps),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for _, hit := range report.Hits {
		if _, err = tx.ExecContext(ctx, `
		INSERT INTO hits (run_id, payload, status_code, content_length, server, found_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
			id, hit.Payload, hit.StatusCode, hit.ContentLength, hit.Server, formatTimestamp(hit.FoundAt),
		); err != nil {
			return 0, fmt.Errorf("failed to insert hit: %w", err)
		}
	}

	for _, d := range report.Discoveries {
		if _, err = tx.ExecContext(ctx, `
		INSERT INTO discoveries (run_id, url, found_on, depth, media, external, malformed, downloaded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, d.URL, d.FoundOn, d.Depth, d.Media, d.External, d.Malformed, d.Downloaded,
		); err != nil {
			return 0, fmt.Errorf("failed to insert discovery: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	report.ID = id
	return id, nil
}

// RunSummary is one row of the run list.
type RunSummary struct {
	ID          int64
	Mode        model.Mode
	Target      string
	StartedAt   time.Time
	FinishedAt  time.Time
	Requests    int64
	Errors      int64
	Outcome     model.Outcome
	Hits        int
	Discoveries int
}

// ListRuns returns runs newest first. An empty target lists every target.
// A limit of zero or less returns all runs.
func (h *HistoryDB) ListRuns(ctx context.Context, target string, limit int) ([]RunSummary, error) {
	query := `
	SELECT r.id, r.mode, r.target, r.started_at, r.finished_at, r.requests, r.errors, r.outcome,
		(SELECT COUNT(*) FROM hits WHERE run_id = r.id),
		(SELECT COUNT(*) FROM discoveries WHERE run_id = r.id)
	FROM runs r
	WHERE 1=1
	`
	args := make([]any, 0, 2)
	if target != "" {
		query += " AND r.target = ?"
		args = append(args, target)
	}
	query += " ORDER BY r.started_at DESC, r.id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			s                 RunSummary
			mode, outcome     string
			started, finished string
		)
		if err := rows.Scan(&s.ID, &mode, &s.Target, &started, &finished, &s.Requests, &s.Errors, &outcome, &s.Hits, &s.Discoveries); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.Mode = model.Mode(mode)
		s.Outcome = model.Outcome(outcome)
		s.StartedAt = parseTimestamp(started)
		s.FinishedAt = parseTimestamp(finished)
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// ListTargets returns every target that has at least one run.
func (h *HistoryDB) ListTargets(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, "SELECT DISTINCT target FROM runs ORDER BY target")
	if err != nil {
		return nil, fmt.Errorf("failed to query targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}
	return targets, rows.Err()
}

// GetRun loads the run with the given ID, including hits and discoveries.
func (h *HistoryDB) GetRun(ctx context.Context, id int64) (*model.RunReport, error) {
	var (
		report                       model.RunReport
		mode, outcome                string
		started, finished, stepsJSON string
	)
	err := h.db.QueryRowContext(ctx, `
	SELECT id, mode, target, started_at, finished_at, total, requests, errors, outcome, error, steps
	FROM runs WHERE id = ?`, id).Scan(
		&report.ID, &mode, &report.Target, &started, &finished,
		&report.Total, &report.Requests, &report.Errors, &outcome, &report.Error, &stepsJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	report.Mode = model.Mode(mode)
	report.Outcome = model.Outcome(outcome)
	report.StartedAt = parseTimestamp(started)
	report.FinishedAt = parseTimestamp(finished)
	if err := json.Unmarshal([]byte(stepsJSON), &report.Steps); err != nil {
		return nil, fmt.Errorf("failed to parse steps: %w", err)
	}

	if report.Hits, err = h.loadHits(ctx, id); err != nil {
		return nil, err
	}
	if report.Discoveries, err = h.loadDiscoveries(ctx, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// LatestRuns returns up to n most recent runs for target in the given mode,
// newest first, fully loaded.
func (h *HistoryDB) LatestRuns(ctx context.Context, target string, mode model.Mode, n int) ([]*model.RunReport, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT id FROM runs WHERE target = ? AND mode = ?
	ORDER BY started_at DESC, id DESC LIMIT ?`, target, string(mode), n)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close() //nolint:errcheck // already failing
		return nil, err
	}
	// The single connection must be free before GetRun queries again.
	if err := rows.Close(); err != nil {
		return nil, err
	}

	reports := make([]*model.RunReport, 0, len(ids))
	for _, id := range ids {
		report, err := h.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// DeleteRunsBefore removes runs started before t and returns how many were
// deleted.
func (h *HistoryDB) DeleteRunsBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := h.db.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", formatTimestamp(t))
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	return res.RowsAffected()
}

func (h *HistoryDB) loadHits(ctx context.Context, runID int64) ([]model.Hit, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT payload, status_code, content_length, server, found_at
	FROM hits WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query hits: %w", err)
	}
	defer rows.Close()

	var hits []model.Hit
	for rows.Next() {
		var (
			hit     model.Hit
			foundAt string
		)
		if err := rows.Scan(&hit.Payload, &hit.StatusCode, &hit.ContentLength, &hit.Server, &foundAt); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		hit.FoundAt = parseTimestamp(foundAt)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (h *HistoryDB) loadDiscoveries(ctx context.Context, runID int64) ([]model.Discovery, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT url, found_on, depth, media, external, malformed, downloaded
	FROM discoveries WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query discoveries: %w", err)
	}
	defer rows.Close()

	var discoveries []model.Discovery
	for rows.Next() {
		var d model.Discovery
		if err := rows.Scan(&d.URL, &d.FoundOn, &d.Depth, &d.Media, &d.External, &d.Malformed, &d.Downloaded); err != nil {
			return nil, fmt.Errorf("failed to scan discovery: %w", err)
		}
		discoveries = append(discoveries, d)
	}
	return discoveries, rows.Err()
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
