package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/brandscan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// newTestExtraction builds a finished extraction with two pages and two assets.
func newTestExtraction(domain string) *model.Extraction {
	e := model.NewExtraction("https://" + domain + "/")
	e.ID = "run-" + domain
	e.OutputDir = "/tmp/" + domain

	crawl := model.NewCrawlResult("https://" + domain + "/")
	crawl.Domain = domain
	crawl.AddPage(&model.PageRecord{URL: "https://" + domain + "/", StatusCode: 200, Title: "Home", HTML: []byte("<html></html>")})
	crawl.AddPage(&model.PageRecord{URL: "https://" + domain + "/about", Depth: 1, StatusCode: 200, Title: "About"})
	crawl.MediaURLs = []string{"https://" + domain + "/logo.png", "https://" + domain + "/hero.jpg"}
	e.Crawl = crawl

	manifest := model.NewAssetManifest()
	manifest.Add(&model.AssetRecord{Hash: "aaa", Class: model.ClassLogo, Key: "media/logos/logo.png", SourceURL: "https://" + domain + "/logo.png", Size: 100})
	manifest.Add(&model.AssetRecord{Hash: "bbb", Class: model.ClassMedia, Key: "media/hero.jpg", SourceURL: "https://" + domain + "/hero.jpg", Size: 200})
	manifest.Stats.ImagesDownloaded = 2
	manifest.Stats.LogosDetected = 1
	e.Manifest = manifest

	e.FinishedAt = e.StartedAt.Add(3 * time.Second)
	return e
}

// TestOpen tests database opening and creation.
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

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dbDir, Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		defer db.Close()
	})
}

// TestDefaultOptions tests the default options.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true")
	}
}

// TestSaveAndGetRun tests the run round trip.
func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	id, err := db.SaveRun(ctx, newTestExtraction("acme.test"))
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	got, err := db.GetRunByID(ctx, id)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got == nil {
		t.Fatal("expected run, got nil")
	}
	if got.ID != "run-acme.test" || got.Domain() != "acme.test" {
		t.Errorf("unexpected run %q for %q", got.ID, got.Domain())
	}
	if got.Manifest == nil || len(got.Manifest.Logos()) != 1 {
		t.Error("expected the manifest to survive the round trip")
	}

	missing, err := db.GetRunByID(ctx, id+100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown run")
	}
}

// TestGetLatestRun tests that the newest run wins.
func TestGetLatestRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	first := newTestExtraction("acme.test")
	first.ID = "first"
	second := newTestExtraction("acme.test")
	second.ID = "second"

	for _, e := range []*model.Extraction{first, second} {
		if _, err := db.SaveRun(ctx, e); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	latest, err := db.GetLatestRun(ctx, "acme.test")
	if err != nil {
		t.Fatalf("failed to get latest run: %v", err)
	}
	if latest == nil || latest.ID != "second" {
		t.Errorf("expected second run, got %+v", latest)
	}

	none, err := db.GetLatestRun(ctx, "other.test")
	if err != nil || none != nil {
		t.Errorf("expected nil, nil for unknown domain, got %v, %v", none, err)
	}
}

// TestRunHistory tests history listing.
func TestRunHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	for _, domain := range []string{"acme.test", "acme.test", "globex.test"} {
		if _, err := db.SaveRun(ctx, newTestExtraction(domain)); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	domains, err := db.ListDomains(ctx)
	if err != nil {
		t.Fatalf("failed to list domains: %v", err)
	}
	if len(domains) != 2 || domains[0] != "acme.test" || domains[1] != "globex.test" {
		t.Errorf("unexpected domains %v", domains)
	}

	history, err := db.GetRunHistory(ctx, "acme.test")
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(history))
	}
	if history[0].ID < history[1].ID {
		t.Error("expected newest run first")
	}
	meta := history[0]
	if meta.Summary.ImagesDownloaded != 2 || meta.Summary.LogosDetected != 1 || meta.Summary.PagesVisited != 2 {
		t.Errorf("unexpected summary %+v", meta.Summary)
	}
	if meta.Timestamp.IsZero() {
		t.Error("expected timestamp to be parsed")
	}
	if meta.OutputDir != "/tmp/acme.test" {
		t.Errorf("unexpected output dir %q", meta.OutputDir)
	}
}

// TestHasRecentRun tests recency checks.
func TestHasRecentRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	recent, err := db.HasRecentRun(ctx, "acme.test", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recent {
		t.Error("expected no recent run before saving")
	}

	if _, err := db.SaveRun(ctx, newTestExtraction("acme.test")); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	recent, err = db.HasRecentRun(ctx, "acme.test", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !recent {
		t.Error("expected recent run after saving")
	}
}

// TestFindAndDeleteAsset tests cross-run asset lookup and cascading deletes.
func TestFindAndDeleteAsset(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	first, err := db.SaveRun(ctx, newTestExtraction("acme.test"))
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	second, err := db.SaveRun(ctx, newTestExtraction("globex.test"))
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	locations, err := db.FindAsset(ctx, "aaa")
	if err != nil {
		t.Fatalf("failed to find asset: %v", err)
	}
	if len(locations) != 2 || locations[0].RunID != second || locations[0].Class != model.ClassLogo {
		t.Fatalf("unexpected locations %+v", locations)
	}

	if err := db.DeleteRun(ctx, first); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}
	locations, err = db.FindAsset(ctx, "aaa")
	if err != nil {
		t.Fatalf("failed to find asset: %v", err)
	}
	if len(locations) != 1 || locations[0].Domain != "globex.test" {
		t.Errorf("expected only the remaining run, got %+v", locations)
	}

	if err := db.DeleteRun(ctx, first); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

// TestJobs tests job state persistence.
func TestJobs(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	if _, ok, err := db.GetJob(ctx, "nope"); err != nil || ok {
		t.Fatalf("expected unknown job, got ok=%v err=%v", ok, err)
	}

	state := model.NewJobState("job-1", "https://acme.test")
	if err := db.PutJob(ctx, state); err != nil {
		t.Fatalf("failed to put job: %v", err)
	}

	state.Status = model.JobRunning
	state.Percentage = 40
	if err := db.PutJob(ctx, state); err != nil {
		t.Fatalf("failed to update job: %v", err)
	}

	got, ok, err := db.GetJob(ctx, "job-1")
	if err != nil || !ok {
		t.Fatalf("expected job, got ok=%v err=%v", ok, err)
	}
	if got.Status != model.JobRunning || got.Percentage != 40 {
		t.Errorf("unexpected job state %+v", got)
	}

	if err := db.DeleteJob(ctx, "job-1"); err != nil {
		t.Fatalf("failed to delete job: %v", err)
	}
	if _, ok, _ := db.GetJob(ctx, "job-1"); ok {
		t.Error("expected job to be deleted")
	}
}

// TestParseTimestamp tests timestamp parsing with various formats.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		zero  bool
	}{
		{"sqlite default", "2026-01-02 15:04:05", false},
		{"iso with z", "2026-01-02T15:04:05Z", false},
		{"rfc3339", "2026-01-02T15:04:05+09:00", false},
		{"garbage", "yesterday", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := parseTimestamp(tt.input); got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) = %v", tt.input, got)
			}
		})
	}
}
