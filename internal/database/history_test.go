package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/webcrawler/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() }) //nolint:errcheck // test cleanup
	return db
}

func fuzzReport(target string, started time.Time) *model.RunReport {
	report := model.NewRunReport(model.ModeFuzz, target)
	report.StartedAt = started
	report.FinishedAt = started.Add(2 * time.Second)
	report.Total = 10
	report.Requests = 10
	report.Errors = 1
	report.Steps = []string{"target check", "fuzz"}
	report.Hits = []model.Hit{
		{Payload: target + "admin", StatusCode: 200, ContentLength: "12", Server: "nginx", FoundAt: started.Add(time.Second)},
		{Payload: target + "old", StatusCode: 301, ContentLength: model.Unknown, Server: model.Unknown, FoundAt: started.Add(time.Second)},
	}
	return report
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("missing database without create", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if _, err := db.SaveRun(context.Background(), fuzzReport("http://example.com/", time.Now())); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		_ = db.Close() //nolint:errcheck // test code

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), "", 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 {
			t.Errorf("expected 1 run after reopen, got %d", len(runs))
		}
	})
}

func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("fuzz run round trip", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		started := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)
		report := fuzzReport("http://example.com/", started)

		id, err := db.SaveRun(ctx, report)
		if err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		if id == 0 || report.ID != id {
			t.Errorf("expected report.ID to be set, got %d (id %d)", report.ID, id)
		}

		got, err := db.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Mode != model.ModeFuzz || got.Target != report.Target {
			t.Errorf("unexpected run: %+v", got)
		}
		if !got.StartedAt.Equal(started) || got.Duration() != 2*time.Second {
			t.Errorf("StartedAt = %v, Duration = %v", got.StartedAt, got.Duration())
		}
		if got.Total != 10 || got.Requests != 10 || got.Errors != 1 {
			t.Errorf("unexpected counters: %+v", got)
		}
		if len(got.Steps) != 2 || got.Steps[1] != "fuzz" {
			t.Errorf("Steps = %v", got.Steps)
		}
		if len(got.Hits) != 2 {
			t.Fatalf("expected 2 hits, got %d", len(got.Hits))
		}
		hit, want := got.Hits[1], report.Hits[1]
		if hit.Payload != want.Payload || hit.StatusCode != want.StatusCode ||
			hit.ContentLength != want.ContentLength || hit.Server != want.Server || !hit.FoundAt.Equal(want.FoundAt) {
			t.Errorf("hit = %+v, expected %+v", hit, want)
		}
	})

	t.Run("crawl run round trip", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		report := model.NewRunReport(model.ModeCrawl, "http://example.com/")
		report.FinishedAt = report.StartedAt.Add(time.Second)
		report.Outcome = model.OutcomeInterrupted
		report.Error = "interrupted by user"
		report.Discoveries = []model.Discovery{
			{URL: "http://example.com/a", FoundOn: "http://example.com/", Depth: 0},
			{URL: "http://example.com/a.pdf", FoundOn: "http://example.com/a", Depth: 1, Media: true, Downloaded: "/tmp/a.pdf"},
			{URL: "http://other.com/", FoundOn: "http://example.com/a", Depth: 1, External: true},
			{URL: "http://example.com/%zz", FoundOn: "http://example.com/a", Depth: 1, Malformed: true},
		}

		id, err := db.SaveRun(ctx, report)
		if err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		got, err := db.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Outcome != model.OutcomeInterrupted || got.Error != "interrupted by user" {
			t.Errorf("Outcome = %v, Error = %q", got.Outcome, got.Error)
		}
		if len(got.Discoveries) != 4 {
			t.Fatalf("expected 4 discoveries, got %d", len(got.Discoveries))
		}
		for i := range report.Discoveries {
			if got.Discoveries[i] != report.Discoveries[i] {
				t.Errorf("discovery %d = %+v, expected %+v", i, got.Discoveries[i], report.Discoveries[i])
			}
		}
	})

	t.Run("missing run", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if _, err := db.GetRun(ctx, 42); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, target := range []string{"http://a.com/", "http://b.com/", "http://a.com/"} {
		if _, err := db.SaveRun(ctx, fuzzReport(target, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	t.Run("all runs newest first", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, "", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if !runs[0].StartedAt.After(runs[1].StartedAt) {
			t.Error("expected newest run first")
		}
		if runs[0].Hits != 2 || runs[0].Discoveries != 0 {
			t.Errorf("unexpected counts: %+v", runs[0])
		}
	})

	t.Run("filtered by target with limit", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, "http://a.com/", 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(runs) != 1 || runs[0].Target != "http://a.com/" || !runs[0].StartedAt.Equal(base.Add(2*time.Hour)) {
			t.Errorf("unexpected runs: %+v", runs)
		}
	})

	t.Run("targets", func(t *testing.T) {
		t.Parallel()

		targets, err := db.ListTargets(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(targets) != 2 || targets[0] != "http://a.com/" || targets[1] != "http://b.com/" {
			t.Errorf("targets = %v", targets)
		}
	})

	t.Run("latest runs", func(t *testing.T) {
		t.Parallel()

		reports, err := db.LatestRuns(ctx, "http://a.com/", model.ModeFuzz, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reports) != 2 {
			t.Fatalf("expected 2 reports, got %d", len(reports))
		}
		if len(reports[0].Hits) != 2 || !reports[0].StartedAt.After(reports[1].StartedAt) {
			t.Errorf("unexpected reports: %+v", reports)
		}

		none, err := db.LatestRuns(ctx, "http://a.com/", model.ModeCrawl, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("expected no crawl runs, got %d", len(none))
		}
	})
}

func TestDeleteRunsBefore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	oldID, err := db.SaveRun(ctx, fuzzReport("http://a.com/", old))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.SaveRun(ctx, fuzzReport("http://a.com/", recent)); err != nil {
		t.Fatal(err)
	}

	n, err := db.DeleteRunsBefore(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d runs, expected 1", n)
	}
	if _, err := db.GetRun(ctx, oldID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected deleted run to be gone, got %v", err)
	}

	var orphans int
	if err := db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM hits WHERE run_id = ?", oldID).Scan(&orphans); err != nil {
		t.Fatal(err)
	}
	if orphans != 0 {
		t.Errorf("expected hits to be deleted with their run, found %d", orphans)
	}
}
