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

	"github.com/nao1215/brandscan/internal/asset"
	"github.com/nao1215/brandscan/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "brandscan.db"

// HistoryDB provides SQLite-based storage for extraction runs and job
// states. It manages connection pooling and provides methods for CRUD
// operations.
//
// Design decision: We use a single database file for all domains rather
// than separate files per domain. This keeps the history command a single
// query and makes backup a single file copy.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per finished extraction
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		domain TEXT NOT NULL,
		target TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		output_dir TEXT,
		extraction_json TEXT NOT NULL,
		summary_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);

	-- Pages fetched by a run
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		depth INTEGER,
		status_code INTEGER,
		title TEXT,
		content_hash TEXT,
		UNIQUE(run, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);

	-- Assets stored by a run
	CREATE TABLE IF NOT EXISTS assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		hash TEXT NOT NULL,
		key TEXT NOT NULL,
		class TEXT NOT NULL,
		source_url TEXT,
		size INTEGER,
		UNIQUE(run, hash)
	);

	CREATE INDEX IF NOT EXISTS idx_assets_hash ON assets(hash);

	-- Background job states
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		state_json TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a finished extraction with its pages and assets and
// returns the database ID of the run.
func (hdb *HistoryDB) SaveRun(ctx context.Context, e *model.Extraction) (int64, error) {
	extractionJSON, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize extraction: %w", err)
	}
	summaryJSON, err := json.Marshal(e.Summarize())
	if err != nil {
		return 0, fmt.Errorf("failed to serialize summary: %w", err)
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (run_id, domain, target, output_dir, extraction_json, summary_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.Domain(), e.Target, e.OutputDir, string(extractionJSON), string(summaryJSON))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	if e.Crawl != nil {
		for _, page := range e.Crawl.OrderedPages() {
			hash := ""
			if len(page.HTML) > 0 {
				hash = asset.HashBytes(page.HTML)
			}
			if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO pages (run, url, depth, status_code, title, content_hash)
			VALUES (?, ?, ?, ?, ?, ?)
			`, runID, page.URL, page.Depth, page.StatusCode, page.Title, hash); err != nil {
				return 0, fmt.Errorf("failed to insert page: %w", err)
			}
		}
	}

	if e.Manifest != nil {
		for _, rec := range e.Manifest.Ordered() {
			if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO assets (run, hash, key, class, source_url, size)
			VALUES (?, ?, ?, ?, ?, ?)
			`, runID, rec.Hash, rec.Key, string(rec.Class), rec.SourceURL, rec.Size); err != nil {
				return 0, fmt.Errorf("failed to insert asset: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// GetLatestRun retrieves the most recent run for a domain.
// It returns nil when the domain has no runs.
func (hdb *HistoryDB) GetLatestRun(ctx context.Context, domain string) (*model.Extraction, error) {
	query := `
	SELECT extraction_json FROM runs
	WHERE domain = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`
	return hdb.queryExtraction(ctx, query, domain)
}

// GetRunByID retrieves a run by its database ID.
// It returns nil when no such run exists.
func (hdb *HistoryDB) GetRunByID(ctx context.Context, id int64) (*model.Extraction, error) {
	return hdb.queryExtraction(ctx, `SELECT extraction_json FROM runs WHERE id = ?`, id)
}

func (hdb *HistoryDB) queryExtraction(ctx context.Context, query string, args ...any) (*model.Extraction, error) {
	var extractionJSON string
	err := hdb.db.QueryRowContext(ctx, query, args...).Scan(&extractionJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // absence is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var e model.Extraction
	if err := json.Unmarshal([]byte(extractionJSON), &e); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	return &e, nil
}

// ListDomains returns every domain that has at least one run.
func (hdb *HistoryDB) ListDomains(ctx context.Context) ([]string, error) {
	rows, err := hdb.db.QueryContext(ctx, `SELECT DISTINCT domain FROM runs ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, domain)
	}

	return domains, rows.Err()
}

// RunMetadata contains summary information about a run.
// This is used for displaying history without loading the full extraction.
type RunMetadata struct {
	// ID is the database ID of the run.
	ID int64

	// RunID is the extraction ID, the job ID for API runs.
	RunID string

	// Domain is the crawled host.
	Domain string

	// Timestamp is when the run was saved.
	Timestamp time.Time

	// OutputDir is where the run was written.
	OutputDir string

	// Summary holds the run's counters.
	Summary model.Summary
}

// GetRunHistory retrieves run metadata for a domain, newest first.
func (hdb *HistoryDB) GetRunHistory(ctx context.Context, domain string) ([]RunMetadata, error) {
	query := `
	SELECT id, run_id, domain, timestamp, output_dir, summary_json
	FROM runs
	WHERE domain = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := hdb.db.QueryContext(ctx, query, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var runID, outputDir sql.NullString
		var timestamp, summaryJSON string

		if err := rows.Scan(&meta.ID, &runID, &meta.Domain, &timestamp, &outputDir, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		meta.RunID = runID.String
		meta.OutputDir = outputDir.String
		meta.Timestamp = parseTimestamp(timestamp)
		if err := json.Unmarshal([]byte(summaryJSON), &meta.Summary); err != nil {
			meta.Summary = model.Summary{Domain: meta.Domain}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// HasRecentRun checks if a domain was extracted within the specified duration.
func (hdb *HistoryDB) HasRecentRun(ctx context.Context, domain string, duration time.Duration) (bool, error) {
	query := `
	SELECT COUNT(*) FROM runs
	WHERE domain = ? AND timestamp > datetime('now', ?)
	`

	// SQLite datetime modifier format
	modifier := fmt.Sprintf("-%d seconds", int(duration.Seconds()))

	var count int
	if err := hdb.db.QueryRowContext(ctx, query, domain, modifier).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check recent run: %w", err)
	}

	return count > 0, nil
}

// AssetLocation is one stored copy of an asset.
type AssetLocation struct {
	RunID     int64
	Domain    string
	Key       string
	Class     model.AssetClass
	SourceURL string
}

// FindAsset returns every run that stored the asset with the given content
// hash, newest first.
func (hdb *HistoryDB) FindAsset(ctx context.Context, hash string) ([]AssetLocation, error) {
	query := `
	SELECT a.run, r.domain, a.key, a.class, a.source_url
	FROM assets a JOIN runs r ON r.id = a.run
	WHERE a.hash = ?
	ORDER BY a.run DESC
	`

	rows, err := hdb.db.QueryContext(ctx, query, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to find asset: %w", err)
	}
	defer rows.Close()

	var locations []AssetLocation
	for rows.Next() {
		var loc AssetLocation
		var class string
		var source sql.NullString
		if err := rows.Scan(&loc.RunID, &loc.Domain, &loc.Key, &class, &source); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		loc.Class = model.AssetClass(class)
		loc.SourceURL = source.String
		locations = append(locations, loc)
	}

	return locations, rows.Err()
}

// DeleteRun removes a run with its pages and assets.
func (hdb *HistoryDB) DeleteRun(ctx context.Context, id int64) error {
	result, err := hdb.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
