package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/brandscan/internal/api"
	"github.com/nao1215/brandscan/internal/config"
	"github.com/nao1215/brandscan/internal/database"
	"github.com/nao1215/brandscan/internal/jobs"
	"github.com/nao1215/brandscan/internal/pipeline"
)

// Job store backends.
const (
	storeMemory = "memory"
	storeSQLite = "sqlite"
	storeRedis  = "redis"
)

// errUnknownStore is returned for an unsupported --store value.
var errUnknownStore = errors.New("unknown job store: choose memory, sqlite or redis")

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve brand extraction over HTTP",
		Long: `Serve starts an HTTP API that runs extractions in the background.

Endpoints:
  POST /api/scrape          start a job: {"url": "...", "maxDepth": 2, "maxPages": 50}
  GET  /api/progress/{id}   job status, percentage, current step and results
  GET  /api/download/{id}   zip archive of a completed job
  GET  /api/health          liveness probe

Job states are kept in memory by default. Use --store sqlite to keep them
in the history database, or --store redis to share them between servers.

Examples:
  # Serve on port 8080 with two concurrent jobs
  brandscan serve --addr :8080 --workers 2

  # Keep job states in Redis
  brandscan serve --store redis --redis-addr localhost:6379`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().Int("workers", jobs.DefaultWorkers, "Number of jobs running at once")
	cmd.Flags().Duration("job-timeout", jobs.DefaultJobTimeout, "Maximum run time of one job (0 = no limit)")
	cmd.Flags().String("store", storeMemory, "Job store: memory, sqlite or redis")
	cmd.Flags().String("redis-addr", "localhost:6379", "Redis address for --store redis")
	cmd.Flags().String("redis-prefix", jobs.DefaultRedisPrefix, "Redis key prefix for job states")
	cmd.Flags().Duration("redis-ttl", jobs.DefaultRedisTTL, "How long job states live in Redis")
	cmd.Flags().String("jobs-dir", filepath.Join(config.XDGCacheDir(), "jobs"), "Directory for job output")
	cmd.Flags().String("allowed-origin", "*", "Access-Control-Allow-Origin value")

	// Defaults for fields a request leaves out.
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth, "Default crawl depth")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages, "Default page budget")
	cmd.Flags().IntP("max-media", "M", config.DefaultMaxMedia, "Default media budget")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay, "Spacing between page requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each request")
	cmd.Flags().Bool("respect-robots", false, "Skip URLs disallowed by robots.txt")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User-Agent header for every request")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address (host:port)")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency, "Media downloads in flight per job")

	cmd.Flags().String("db-dir", config.XDGDataDir(), "History database directory")
	cmd.Flags().Bool("no-save", false, "Do not record finished jobs in the history database")
	cmd.Flags().Bool("log-json", false, "Write logs as JSON")

	return cmd
}

// serveOptions are the parsed flags of the serve command.
type serveOptions struct {
	addr          string
	workers       int
	jobTimeout    time.Duration
	store         string
	redisAddr     string
	redisPrefix   string
	redisTTL      time.Duration
	jobsDir       string
	allowedOrigin string
	dbDir         string
	save          bool
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, opts, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}

	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, logJSON)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfg, opts, logger)
}

func buildServeConfig(cmd *cobra.Command) (*config.Config, serveOptions, error) {
	cfg := config.NewConfig()
	var opts serveOptions
	var err error
	flags := cmd.Flags()

	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"addr", &opts.addr},
		{"store", &opts.store},
		{"redis-addr", &opts.redisAddr},
		{"redis-prefix", &opts.redisPrefix},
		{"jobs-dir", &opts.jobsDir},
		{"allowed-origin", &opts.allowedOrigin},
		{"db-dir", &opts.dbDir},
		{"user-agent", &cfg.UserAgent},
		{"proxy", &cfg.ProxyAddress},
	} {
		if *f.dst, err = flags.GetString(f.name); err != nil {
			return nil, opts, err
		}
	}
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"workers", &opts.workers},
		{"depth", &cfg.MaxDepth},
		{"max-pages", &cfg.MaxPages},
		{"max-media", &cfg.MaxMedia},
		{"concurrency", &cfg.Concurrency},
	} {
		if *f.dst, err = flags.GetInt(f.name); err != nil {
			return nil, opts, err
		}
	}
	for _, f := range []struct {
		name string
		dst  *time.Duration
	}{
		{"job-timeout", &opts.jobTimeout},
		{"redis-ttl", &opts.redisTTL},
		{"delay", &cfg.CrawlDelay},
		{"timeout", &cfg.Timeout},
	} {
		if *f.dst, err = flags.GetDuration(f.name); err != nil {
			return nil, opts, err
		}
	}
	if cfg.RespectRobots, err = flags.GetBool("respect-robots"); err != nil {
		return nil, opts, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, opts, err
	}
	opts.save = !noSave
	cfg.Verbose = getVerboseFlag(cmd)

	if err := cfg.ValidateSettings(); err != nil {
		return nil, opts, fmt.Errorf("configuration error: %w", err)
	}

	switch opts.store {
	case storeMemory, storeSQLite, storeRedis:
	default:
		return nil, opts, fmt.Errorf("%w: %q", errUnknownStore, opts.store)
	}
	return cfg, opts, nil
}

// openJobStore opens the configured job store. The returned function
// releases it.
func openJobStore(ctx context.Context, opts serveOptions, db *database.HistoryDB) (jobs.Store, func() error, error) {
	noop := func() error { return nil }

	switch opts.store {
	case storeSQLite:
		if db == nil {
			return nil, noop, errors.New("sqlite job store needs the history database")
		}
		return jobs.NewSQLStore(db), noop, nil
	case storeRedis:
		store := jobs.NewRedisStore(opts.redisAddr,
			jobs.WithRedisPrefix(opts.redisPrefix),
			jobs.WithRedisTTL(opts.redisTTL),
		)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close() //nolint:errcheck // the ping error is reported instead
			return nil, noop, err
		}
		return store, store.Close, nil
	case storeMemory:
		return jobs.NewMemoryStore(), noop, nil
	default:
		return nil, noop, fmt.Errorf("%w: %q", errUnknownStore, opts.store)
	}
}

func runServe(ctx context.Context, cfg *config.Config, opts serveOptions, logger *slog.Logger) error {
	var db *database.HistoryDB
	if opts.save || opts.store == storeSQLite {
		var err error
		db, err = database.Open(opts.dbDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
	}

	store, closeStore, err := openJobStore(ctx, opts, db)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close job store", "error", err)
		}
	}()

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	pipelineOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineUserAgent(cfg.UserAgent),
		pipeline.WithPipelineTimeout(cfg.Timeout),
		pipeline.WithPipelineMaxBodySize(cfg.MaxBodySize),
		pipeline.WithPipelineMaxImageSize(cfg.MaxImageSize),
		pipeline.WithPipelineConcurrency(cfg.Concurrency),
	}
	if opts.save {
		pipelineOpts = append(pipelineOpts, pipeline.WithPipelineHistory(db))
	}

	runner := jobs.NewRunner(store,
		jobs.WithWorkers(opts.workers),
		jobs.WithJobTimeout(opts.jobTimeout),
		jobs.WithRunnerLogger(logger),
	)
	srv := api.New(runner, client,
		api.WithLogger(logger),
		api.WithOutputRoot(opts.jobsDir),
		api.WithAllowedOrigin(opts.allowedOrigin),
		api.WithDefaults(api.DefaultsFromConfig(cfg)),
		api.WithPipelineOptions(pipelineOpts...),
	)

	logger.Info("starting api server",
		"addr", opts.addr,
		"store", opts.store,
		"workers", opts.workers,
		"jobs_dir", opts.jobsDir,
	)
	return srv.ListenAndServe(ctx, opts.addr)
}
