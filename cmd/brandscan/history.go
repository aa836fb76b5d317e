package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/brandscan/internal/config"
	"github.com/nao1215/brandscan/internal/database"
	"github.com/nao1215/brandscan/internal/model"
	"github.com/nao1215/brandscan/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [domain]",
		Short: "Browse and compare recorded extraction runs",
		Long: `History reads the runs recorded by 'brandscan scan' and the API server.

Without arguments it lists every recorded domain. With a domain it lists
the runs of that domain, newest first.

Examples:
  # List recorded domains
  brandscan history

  # List the runs of a domain
  brandscan history example.com

  # Compare the latest two runs (new and removed assets, pages, brand changes)
  brandscan history --compare example.com

  # Compare the latest run with a specific run
  brandscan history --compare --with-run-id 3 example.com

  # Show the report of a run
  brandscan history --show 3

  # Find every run that stored an asset with this content hash
  brandscan history --find-asset 1a2b3c...

  # Delete a run
  brandscan history --delete 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Bool("compare", false, "Compare the latest run of the domain with an earlier one")
	cmd.Flags().Int64P("with-run-id", "i", 0, "Run ID to compare with (default: the previous run)")
	cmd.Flags().Int64("show", 0, "Print the report of a run")
	cmd.Flags().String("find-asset", "", "List the runs that stored an asset with this hash")
	cmd.Flags().Int64("delete", 0, "Delete a run and its page and asset records")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output in Markdown format")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "History database directory")

	return cmd
}

// historyOptions are the parsed flags of the history command.
type historyOptions struct {
	domain    string
	compare   bool
	withRunID int64
	show      int64
	findAsset string
	deleteID  int64
	json      bool
	markdown  bool
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	var opts historyOptions
	var err error
	flags := cmd.Flags()

	if opts.compare, err = flags.GetBool("compare"); err != nil {
		return err
	}
	if opts.withRunID, err = flags.GetInt64("with-run-id"); err != nil {
		return err
	}
	if opts.show, err = flags.GetInt64("show"); err != nil {
		return err
	}
	if opts.findAsset, err = flags.GetString("find-asset"); err != nil {
		return err
	}
	if opts.deleteID, err = flags.GetInt64("delete"); err != nil {
		return err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	if len(args) == 1 {
		opts.domain = normalizeDomain(args[0])
	}

	// Validate before opening the database so bad flags leave no file behind.
	if opts.compare && opts.domain == "" {
		return errors.New("a domain is required for --compare")
	}
	if opts.json && opts.markdown {
		return config.ErrConflictingReportFormats
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(cmd.Context(), db, opts, cmd.OutOrStdout())
}

// normalizeDomain accepts "example.com", "https://www.example.com/" and
// similar forms.
func normalizeDomain(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, prefix := range []string{"http://", "https://"} {
		s = strings.TrimPrefix(s, prefix)
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}

func runHistory(ctx context.Context, db *database.HistoryDB, opts historyOptions, w io.Writer) error {
	switch {
	case opts.deleteID > 0:
		if err := db.DeleteRun(ctx, opts.deleteID); err != nil {
			return fmt.Errorf("failed to delete run %d: %w", opts.deleteID, err)
		}
		fmt.Fprintf(w, "Deleted run %d\n", opts.deleteID)
		return nil
	case opts.show > 0:
		return showRun(ctx, db, opts, w)
	case opts.findAsset != "":
		return findAsset(ctx, db, opts.findAsset, w)
	case opts.compare:
		return compareHistory(ctx, db, opts, w)
	case opts.domain != "":
		return listRuns(ctx, db, opts.domain, w)
	default:
		return listDomains(ctx, db, w)
	}
}

func listDomains(ctx context.Context, db *database.HistoryDB, w io.Writer) error {
	domains, err := db.ListDomains(ctx)
	if err != nil {
		return fmt.Errorf("failed to list domains: %w", err)
	}
	if len(domains) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		fmt.Fprintln(w, "\nUse 'brandscan scan <url>' to extract a site.")
		return nil
	}

	fmt.Fprintf(w, "Recorded domains (%d):\n\n", len(domains))
	for _, d := range domains {
		fmt.Fprintf(w, "  • %s\n", d)
	}
	fmt.Fprintln(w, "\nUse 'brandscan history <domain>' to see its runs.")
	return nil
}

func listRuns(ctx context.Context, db *database.HistoryDB, domain string, w io.Writer) error {
	runs, err := db.GetRunHistory(ctx, domain)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs recorded for %s\n", domain)
		return nil
	}

	fmt.Fprintf(w, "Runs of %s (%d):\n\n", domain, len(runs))
	fmt.Fprintf(w, "  %-6s  %-19s  %6s  %6s  %5s  %9s  %s\n", "ID", "Date", "Pages", "Images", "Logos", "Size", "Status")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 72))
	for _, r := range runs {
		s := r.Summary
		fmt.Fprintf(w, "  %-6d  %-19s  %6d  %6d  %5d  %9s  %s\n",
			r.ID,
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			s.PagesVisited, s.ImagesDownloaded, s.LogosDetected,
			humanize.Bytes(uint64(max(s.BytesStored, 0))),
			runStatus(s),
		)
	}
	fmt.Fprintln(w, "\nUse 'brandscan history --compare <domain>' to compare the latest two runs.")
	return nil
}

func runStatus(s model.Summary) string {
	switch {
	case s.TimedOut:
		return "partial"
	case s.Error != "":
		return "error"
	default:
		return "ok"
	}
}

func showRun(ctx context.Context, db *database.HistoryDB, opts historyOptions, w io.Writer) error {
	e, err := db.GetRunByID(ctx, opts.show)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", opts.show, err)
	}
	if e == nil {
		return fmt.Errorf("%w: %d", database.ErrRunNotFound, opts.show)
	}

	var rw report.Writer
	switch {
	case opts.json:
		rw = report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case opts.markdown:
		rw = report.NewMarkdownWriter(w)
	default:
		rw = report.NewSimpleWriter(w, report.WithVerbose(true), report.WithColor(false))
	}
	_, err = rw.Write(e)
	return err
}

func findAsset(ctx context.Context, db *database.HistoryDB, hash string, w io.Writer) error {
	locations, err := db.FindAsset(ctx, strings.ToLower(strings.TrimSpace(hash)))
	if err != nil {
		return fmt.Errorf("failed to find asset: %w", err)
	}
	if len(locations) == 0 {
		fmt.Fprintf(w, "No run stored an asset with hash %s\n", hash)
		return nil
	}

	fmt.Fprintf(w, "Asset %s found in %d run(s):\n\n", hash, len(locations))
	for _, loc := range locations {
		fmt.Fprintf(w, "  run %-6d  %-25s  [%s] %s\n", loc.RunID, loc.Domain, loc.Class, loc.Key)
		fmt.Fprintf(w, "              from %s\n", loc.SourceURL)
	}
	return nil
}

func compareHistory(ctx context.Context, db *database.HistoryDB, opts historyOptions, w io.Writer) error {
	runs, err := db.GetRunHistory(ctx, opts.domain)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}
	if len(runs) == 0 {
		return fmt.Errorf("no runs recorded for %s", opts.domain)
	}

	previousID := opts.withRunID
	if previousID == 0 {
		if len(runs) < 2 {
			return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
		}
		previousID = runs[1].ID
	}
	if previousID == runs[0].ID {
		return fmt.Errorf("run %d is the latest run; choose an earlier one", previousID)
	}

	current, err := db.GetRunByID(ctx, runs[0].ID)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", runs[0].ID, err)
	}
	previous, err := db.GetRunByID(ctx, previousID)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", previousID, err)
	}
	if current == nil || previous == nil {
		return fmt.Errorf("%w: %d", database.ErrRunNotFound, previousID)
	}
	if d := previous.Domain(); d != opts.domain {
		return fmt.Errorf("run %d belongs to %s, not %s", previousID, d, opts.domain)
	}

	result := compareRuns(previous, current)
	switch {
	case opts.json:
		return writeComparisonJSON(w, result)
	case opts.markdown:
		return writeComparisonMarkdown(w, result)
	default:
		return writeComparisonText(w, result)
	}
}
