package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/brandscan/internal/config"
	"github.com/nao1215/brandscan/internal/database"
	"github.com/nao1215/brandscan/internal/fetcher"
	"github.com/nao1215/brandscan/internal/model"
	"github.com/nao1215/brandscan/internal/pipeline"
	"github.com/nao1215/brandscan/internal/report"
)

// errAllFailed is returned when no target produced any page.
var errAllFailed = errors.New("every extraction failed")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Extract brand assets from one or more websites",
		Long: `Scan crawls each website and extracts its brand assets.

For every target it writes:
- info/raw.txt: page text, one chunk per line
- info/brand_brief.md: detected name, tagline, tone, colors and fonts
- info/manifest.json: every stored asset with its hash and source URL
- html/: the raw HTML of each crawled page
- media/ and media/logos/: downloaded images and detected logos
- media/videos.txt: video references
- extraction_report.txt: a summary of the run

Examples:
  # Extract assets from a single site
  brandscan scan example.com

  # Crawl deeper, with a smaller page budget
  brandscan scan -d 5 -p 30 https://example.com

  # Several sites, two at a time
  brandscan scan -b 2 acme.com globex.com initech.com

  # Respect robots.txt and write a JSON report
  brandscan scan --respect-robots --json -r report.json example.com

  # Export the asset manifest as a spreadsheet
  brandscan scan --xlsx -r assets.xlsx example.com

Configuration file (.brandscan) example:
  sites:
    example.com:
      cookie: "session_id=abc123"
      depth: 2
      ignorePatterns:
        - "/blog/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Crawl flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the start URL")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to crawl per site")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Minimum spacing between page requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Bool("respect-robots", false,
		"Skip URLs disallowed by robots.txt instead of only warning")
	cmd.Flags().Bool("same-domain", true,
		"Stay on the exact host of the start URL (false also crawls sibling subdomains)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header for every request")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port)")

	// Asset flags
	cmd.Flags().IntP("max-media", "M", config.DefaultMaxMedia,
		"Maximum number of media files to download per site (0 = no limit)")
	cmd.Flags().Bool("skip-videos", false,
		"Do not record video references")
	cmd.Flags().Bool("no-optimize", false,
		"Store images as downloaded instead of normalized JPEGs")
	cmd.Flags().IntP("concurrency", "C", config.DefaultConcurrency,
		"Number of media downloads in flight per site")

	// Batch and output flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites extracted concurrently")
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Output directory (one subdirectory per site when scanning several)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .brandscan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false, "Output JSON report")
	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown report")
	cmd.Flags().BoolP("xlsx", "x", false, "Output XLSX report (requires --report-file)")
	cmd.Flags().StringP("report-file", "r", "",
		"Also write the report to a file (the console keeps a summary)")
	cmd.Flags().Bool("no-color", false, "Disable colored console output")
	cmd.Flags().Bool("log-json", false, "Write logs as JSON")

	// History flags
	cmd.Flags().String("db-dir", config.XDGDataDir(), "History database directory")
	cmd.Flags().Bool("no-save", false, "Do not record the run in the history database")
	cmd.Flags().Duration("skip-recent", 0,
		"Skip sites with a recorded run younger than this, e.g. 24h (0 = never skip)")

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, logJSON)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cfg, logger, cmd.OutOrStdout())
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()
	var err error

	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = flags.GetBool("respect-robots"); err != nil {
		return nil, err
	}
	if cfg.SameDomain, err = flags.GetBool("same-domain"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.MaxMedia, err = flags.GetInt("max-media"); err != nil {
		return nil, err
	}
	if cfg.SkipVideos, err = flags.GetBool("skip-videos"); err != nil {
		return nil, err
	}
	noOptimize, err := flags.GetBool("no-optimize")
	if err != nil {
		return nil, err
	}
	cfg.OptimizeImages = !noOptimize
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.XLSXReport, err = flags.GetBool("xlsx"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}
	if cfg.NoColor, err = flags.GetBool("no-color"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	if cfg.SkipRecent, err = flags.GetDuration("skip-recent"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath); err != nil {
		return nil, err
	}

	cfg.Targets = args
	return cfg, nil
}

// loadSiteConfigs loads the configuration file. A missing file is an
// error only when its path was given explicitly.
func loadSiteConfigs(explicitPath string) (*config.File, error) {
	path := config.FindConfigFile(explicitPath)
	if path == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return file, nil
}

// scanPlan is one target ready to run.
type scanPlan struct {
	extraction *model.Extraction
	pipeline   *pipeline.Pipeline
}

// runScan extracts every target of cfg.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	var db *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())
	}

	plans := make(map[*model.Extraction]*pipeline.Pipeline, len(cfg.Targets))
	extractions := make([]*model.Extraction, 0, len(cfg.Targets))
	multi := len(cfg.Targets) > 1
	for _, raw := range cfg.Targets {
		plan, err := planTarget(cfg, raw, multi, db, logger)
		if err != nil {
			return fmt.Errorf("invalid target %q: %w", raw, err)
		}
		if skip, err := recentlyExtracted(ctx, db, cfg.SkipRecent, plan.extraction); err != nil {
			logger.Warn("failed to check recent runs", "target", raw, "error", err)
		} else if skip {
			fmt.Fprintf(stdout, "Skipping %s: extracted within the last %s\n", raw, cfg.SkipRecent)
			continue
		}
		plans[plan.extraction] = plan.pipeline
		extractions = append(extractions, plan.extraction)
	}
	if len(extractions) == 0 {
		fmt.Fprintln(stdout, "Nothing to extract.")
		return nil
	}

	fmt.Fprintf(stdout, "Extracting brand assets from %d site(s)...\n\n", len(extractions))
	start := time.Now()

	bp := pipeline.NewBatchProcessor(
		func(e *model.Extraction) *pipeline.Pipeline { return plans[e] },
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	var mu sync.Mutex
	failed := 0
	err := bp.ProcessBatchWithCallback(ctx, extractions, func(e *model.Extraction, index int) {
		mu.Lock()
		defer mu.Unlock()

		if e.Crawl == nil || e.Crawl.PagesVisited == 0 {
			failed++
		}
		fmt.Fprintf(stdout, "[%d/%d] Extraction finished: %s\n", index+1, len(extractions), e.Target)
		if err := outputReport(cfg, e, stdout, multi); err != nil {
			logger.Error("report failed", "target", e.Target, "error", err)
		}
	})

	fmt.Fprintf(stdout, "\nCompleted in %s\n", time.Since(start).Round(time.Millisecond))

	if err != nil {
		return err
	}
	if failed == len(extractions) {
		return errAllFailed
	}
	return nil
}

// recentlyExtracted reports whether the target's domain has a run younger
// than window. It is always false without a database or window.
func recentlyExtracted(ctx context.Context, db *database.HistoryDB, window time.Duration, e *model.Extraction) (bool, error) {
	if db == nil || window <= 0 {
		return false, nil
	}
	u, err := url.Parse(e.Job.StartURL)
	if err != nil {
		return false, err
	}
	return db.HasRecentRun(ctx, u.Host, window)
}

// planTarget resolves raw against the configuration and builds its
// pipeline. Each target gets its own HTTP client so site cookies and
// headers never leak to another site.
func planTarget(cfg *config.Config, raw string, multi bool, db *database.HistoryDB, logger *slog.Logger) (scanPlan, error) {
	target, err := cfg.ResolveTarget(raw)
	if err != nil {
		return scanPlan{}, err
	}

	client, err := fetcher.NewHTTPClient(fetcher.ClientConfig{
		Timeout:      cfg.Timeout,
		ProxyAddress: cfg.ProxyAddress,
		Cookie:       target.Site.Cookie,
		Headers:      target.Site.Headers,
	})
	if err != nil {
		return scanPlan{}, err
	}

	extraction := model.NewExtraction(target.Job.StartURL)
	extraction.ID = uuid.NewString()
	extraction.Job = target.Job
	extraction.OutputDir = outputDirFor(cfg.OutputDir, target.Job.StartURL, multi)

	opts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineLogger(logger),
		pipeline.WithPipelineUserAgent(cfg.UserAgent),
		pipeline.WithPipelineTimeout(cfg.Timeout),
		pipeline.WithPipelineMaxBodySize(cfg.MaxBodySize),
		pipeline.WithPipelineMaxImageSize(cfg.MaxImageSize),
		pipeline.WithPipelineMaxMedia(target.MaxMedia),
		pipeline.WithPipelineConcurrency(cfg.Concurrency),
		pipeline.WithPipelineSkipVideos(cfg.SkipVideos),
		pipeline.WithPipelineOptimizeImages(cfg.OptimizeImages),
		pipeline.WithPipelineIgnorePatterns(target.Site.IgnorePatterns),
		pipeline.WithPipelineFollowPatterns(target.Site.FollowPatterns),
	}
	if filter := target.Site.MediaFilter(); filter != nil {
		opts = append(opts, pipeline.WithPipelineMediaFilter(filter))
	}
	if db != nil {
		opts = append(opts, pipeline.WithPipelineHistory(db))
	}

	p := pipeline.DefaultPipeline(client, []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	}, opts...)

	return scanPlan{extraction: extraction, pipeline: p}, nil
}

// siteName turns a start URL into a file name component: the host and
// port without "www.", e.g. "acme.com" or "127.0.0.1_8080".
func siteName(startURL string) string {
	u, err := url.Parse(startURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	return strings.NewReplacer(":", "_", "[", "", "]", "").Replace(host)
}

// outputDirFor returns the output directory of one site. Several sites
// each get a subdirectory named after their host.
func outputDirFor(root, startURL string, multi bool) string {
	name := siteName(startURL)
	if !multi || name == "" {
		return root
	}
	return filepath.Join(root, name)
}

// reportPathFor inserts the host before the extension when several sites
// share one report file name.
func reportPathFor(path, startURL string, multi bool) string {
	name := siteName(startURL)
	if !multi || name == "" {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + name + ext
}

// outputReport writes the report of e in the requested format. With a
// report file the console keeps a plain report (text format) or the
// counters (other formats).
func outputReport(cfg *config.Config, e *model.Extraction, stdout io.Writer, multi bool) error {
	console := report.NewSimpleWriter(stdout,
		report.WithVerbose(cfg.Verbose),
		report.WithColor(!cfg.NoColor),
	)
	if cfg.ReportFile == "" {
		w := formatWriter(cfg, stdout)
		if w == nil {
			w = console
		}
		_, err := w.Write(e)
		return err
	}

	path := reportPathFor(cfg.ReportFile, e.Job.StartURL, multi)
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided report path
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if w := formatWriter(cfg, f); w != nil {
		if _, err := w.Write(e); err != nil {
			return err
		}
		_, err := console.WriteSummary(e.Summarize())
		return err
	}

	plain := report.NewSimpleWriter(f, report.WithVerbose(cfg.Verbose), report.WithColor(false))
	_, err = report.NewMultiWriter(plain, console).Write(e)
	return err
}

// formatWriter returns the writer of the selected structured format, or
// nil for the plain text report.
func formatWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	case cfg.XLSXReport:
		return report.NewXLSXWriter(out)
	default:
		return nil
	}
}

// newClient builds the shared client of commands that have no per-site
// settings.
func newClient(cfg *config.Config) (*http.Client, error) {
	return fetcher.NewHTTPClient(fetcher.ClientConfig{
		Timeout:      cfg.Timeout,
		ProxyAddress: cfg.ProxyAddress,
	})
}
