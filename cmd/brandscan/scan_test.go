package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/brandscan/internal/config"
	"github.com/nao1215/brandscan/internal/database"
)

func logoPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := range 16 {
		for y := range 16 {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// newSite serves a two-page brand site with one logo.
func newSite(t *testing.T, name string) *httptest.Server {
	t.Helper()

	logo := logoPNG(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, `<html><head><title>`+name+`</title>
			<meta name="description" content="`+name+` builds dependable anvils."></head>
			<body><header><img src="/logo.png" alt="`+name+` logo"></header>
			<h1>Welcome to `+name+`</h1><a href="/about">About us</a></body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, `<html><body><p>Our mission is to serve builders.</p></body></html>`)
	})
	mux.HandleFunc("/logo.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(logo)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testScanConfig(t *testing.T, targets ...string) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Targets = targets
	cfg.CrawlDelay = 0
	cfg.Timeout = 5 * time.Second
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.DBDir = t.TempDir()
	cfg.SaveToDB = true
	cfg.NoColor = true
	cfg.SiteConfigs = &config.File{Sites: map[string]config.SiteConfig{}}
	return cfg
}

func hostOf(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	return u.Host
}

// TestNewScanCmd tests the scan command flags.
func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()
	flagsWithShort := map[string]string{
		"depth":       "d",
		"max-pages":   "p",
		"timeout":     "t",
		"max-media":   "M",
		"concurrency": "C",
		"batch":       "b",
		"output":      "o",
		"config":      "c",
		"json":        "j",
		"markdown":    "m",
		"xlsx":        "x",
		"report-file": "r",
	}
	for name, short := range flagsWithShort {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			t.Errorf("expected flag %q", name)
			continue
		}
		if f.Shorthand != short {
			t.Errorf("flag %q: expected shorthand %q, got %q", name, short, f.Shorthand)
		}
	}
	for _, name := range []string{"delay", "respect-robots", "same-domain", "user-agent", "proxy", "skip-videos", "no-optimize", "no-color", "log-json", "db-dir", "no-save", "skip-recent"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag %q", name)
		}
	}
}

// TestBuildConfig tests flag parsing into a Config.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), ".brandscan")
	if err := os.WriteFile(configPath, []byte("sites:\n  acme.test:\n    depth: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cmd := NewScanCmd()
	err := cmd.ParseFlags([]string{
		"-d", "5", "-p", "20", "--delay", "250ms", "-M", "0",
		"--skip-videos", "--no-optimize", "-C", "4", "-b", "3",
		"-o", "assets", "-j", "-r", "report.json", "--no-save",
		"-c", configPath,
	})
	if err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	cfg, err := buildConfig(cmd, []string{"acme.test", "globex.test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.MaxDepth != 5 || cfg.MaxPages != 20 || cfg.CrawlDelay != 250*time.Millisecond {
		t.Errorf("unexpected crawl settings: depth=%d pages=%d delay=%s", cfg.MaxDepth, cfg.MaxPages, cfg.CrawlDelay)
	}
	if cfg.MaxMedia != 0 || !cfg.SkipVideos || cfg.OptimizeImages || cfg.Concurrency != 4 {
		t.Errorf("unexpected asset settings: %+v", cfg)
	}
	if cfg.BatchSize != 3 || cfg.OutputDir != "assets" || !cfg.JSONReport || cfg.ReportFile != "report.json" {
		t.Errorf("unexpected output settings: %+v", cfg)
	}
	if cfg.SaveToDB {
		t.Error("expected --no-save to disable the database")
	}
	if len(cfg.Targets) != 2 {
		t.Errorf("expected 2 targets, got %v", cfg.Targets)
	}
	if got := cfg.SiteConfigs.GetSiteConfig("acme.test").Depth; got != 1 {
		t.Errorf("expected site depth 1 from the config file, got %d", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

// TestLoadSiteConfigs tests explicit and implicit config paths.
func TestLoadSiteConfigs(t *testing.T) {
	t.Parallel()

	_, err := loadSiteConfigs(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, config.ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound for an explicit missing file, got %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("sites: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadSiteConfigs(bad); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

// TestSiteNames tests output and report naming for several sites.
func TestSiteNames(t *testing.T) {
	t.Parallel()

	t.Run("siteName", func(t *testing.T) {
		t.Parallel()

		tests := map[string]string{
			"https://www.Acme.com/about": "acme.com",
			"http://127.0.0.1:8080/":     "127.0.0.1_8080",
			"http://[::1]:9000/":         "__1_9000",
			"not a url":                  "",
		}
		for in, want := range tests {
			if got := siteName(in); got != want {
				t.Errorf("siteName(%q) = %q, want %q", in, got, want)
			}
		}
	})

	t.Run("outputDirFor", func(t *testing.T) {
		t.Parallel()

		if got := outputDirFor("out", "https://acme.com/", false); got != "out" {
			t.Errorf("single site should use the root, got %q", got)
		}
		if got := outputDirFor("out", "https://acme.com/", true); got != filepath.Join("out", "acme.com") {
			t.Errorf("unexpected multi-site dir %q", got)
		}
	})

	t.Run("reportPathFor", func(t *testing.T) {
		t.Parallel()

		if got := reportPathFor("r/report.json", "https://acme.com/", false); got != "r/report.json" {
			t.Errorf("single site should keep the path, got %q", got)
		}
		if got := reportPathFor("r/report.json", "https://acme.com/", true); got != "r/report-acme.com.json" {
			t.Errorf("unexpected multi-site path %q", got)
		}
		if got := reportPathFor("report", "https://acme.com/", true); got != "report-acme.com" {
			t.Errorf("unexpected path without extension %q", got)
		}
	})
}

// TestRunScan runs complete extractions against local sites.
func TestRunScan(t *testing.T) {
	t.Parallel()

	t.Run("single site writes output and history", func(t *testing.T) {
		t.Parallel()

		site := newSite(t, "Acme")
		cfg := testScanConfig(t, site.URL)

		var stdout bytes.Buffer
		if err := runScan(context.Background(), cfg, slog.New(slog.DiscardHandler), &stdout); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, name := range []string{"info/raw.txt", "info/brand_brief.md", "extraction_report.txt"} {
			if _, err := os.Stat(filepath.Join(cfg.OutputDir, filepath.FromSlash(name))); err != nil {
				t.Errorf("expected %s: %v", name, err)
			}
		}
		raw, err := os.ReadFile(filepath.Join(cfg.OutputDir, "info", "raw.txt"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(raw), "Welcome to Acme") {
			t.Errorf("expected page text in raw.txt, got %q", raw)
		}
		if !strings.Contains(stdout.String(), "Extraction finished") {
			t.Errorf("expected progress output, got %q", stdout.String())
		}

		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		runs, err := db.GetRunHistory(context.Background(), hostOf(t, site.URL))
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 recorded run, got %d", len(runs))
		}
		if runs[0].Summary.PagesVisited != 2 {
			t.Errorf("expected 2 pages, got %d", runs[0].Summary.PagesVisited)
		}
	})

	t.Run("several sites get their own directory and report", func(t *testing.T) {
		t.Parallel()

		acme, globex := newSite(t, "Acme"), newSite(t, "Globex")
		cfg := testScanConfig(t, acme.URL, globex.URL)
		cfg.SaveToDB = false
		cfg.JSONReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "report.json")

		if err := runScan(context.Background(), cfg, slog.New(slog.DiscardHandler), io.Discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, site := range []*httptest.Server{acme, globex} {
			name := siteName(site.URL)
			if _, err := os.Stat(filepath.Join(cfg.OutputDir, name, "extraction_report.txt")); err != nil {
				t.Errorf("expected output for %s: %v", name, err)
			}

			data, err := os.ReadFile(reportPathFor(cfg.ReportFile, site.URL, true))
			if err != nil {
				t.Fatalf("expected report for %s: %v", name, err)
			}
			var decoded map[string]any
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Errorf("report for %s is not JSON: %v", name, err)
			}
		}
	})

	t.Run("unreachable sites fail the run", func(t *testing.T) {
		t.Parallel()

		dead := httptest.NewServer(http.NotFoundHandler())
		deadURL := dead.URL
		dead.Close()

		cfg := testScanConfig(t, deadURL)
		cfg.SaveToDB = false

		err := runScan(context.Background(), cfg, slog.New(slog.DiscardHandler), io.Discard)
		if !errors.Is(err, errAllFailed) {
			t.Errorf("expected errAllFailed, got %v", err)
		}
	})

	t.Run("skips recently extracted sites", func(t *testing.T) {
		t.Parallel()

		site := newSite(t, "Acme")
		cfg := testScanConfig(t, site.URL)
		ctx := context.Background()
		logger := slog.New(slog.DiscardHandler)

		if err := runScan(ctx, cfg, logger, io.Discard); err != nil {
			t.Fatalf("first run failed: %v", err)
		}

		cfg.SkipRecent = time.Hour
		var stdout bytes.Buffer
		if err := runScan(ctx, cfg, logger, &stdout); err != nil {
			t.Fatalf("second run failed: %v", err)
		}
		if !strings.Contains(stdout.String(), "Skipping") {
			t.Errorf("expected the site to be skipped, got %q", stdout.String())
		}

		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()
		runs, err := db.GetRunHistory(ctx, hostOf(t, site.URL))
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 {
			t.Errorf("expected the skipped run not to be recorded, got %d runs", len(runs))
		}
	})

	t.Run("invalid target", func(t *testing.T) {
		t.Parallel()

		cfg := testScanConfig(t, "ftp://acme.test/")
		cfg.SaveToDB = false

		if err := runScan(context.Background(), cfg, slog.New(slog.DiscardHandler), io.Discard); err == nil {
			t.Error("expected error for unsupported scheme")
		}
	})
}
