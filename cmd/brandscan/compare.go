package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/nao1215/brandscan/internal/model"
)

// RunComparison holds the differences between two runs of one domain.
type RunComparison struct {
	// Domain is the crawled host.
	Domain string `json:"domain"`

	// Previous and Current describe the compared runs.
	Previous RunInfo `json:"previous"`
	Current  RunInfo `json:"current"`

	// NewAssets are stored in Current but not in Previous, by content hash.
	NewAssets []AssetChange `json:"new_assets,omitempty"`

	// RemovedAssets were stored in Previous but not in Current.
	RemovedAssets []AssetChange `json:"removed_assets,omitempty"`

	// UnchangedAssets counts hashes present in both runs.
	UnchangedAssets int `json:"unchanged_assets"`

	// NewPages and RemovedPages are crawled page URLs.
	NewPages     []string `json:"new_pages,omitempty"`
	RemovedPages []string `json:"removed_pages,omitempty"`

	// BrandChanges lists brand brief fields whose value changed.
	BrandChanges []BrandChange `json:"brand_changes,omitempty"`
}

// RunInfo describes one side of a comparison.
type RunInfo struct {
	ID      string        `json:"id"`
	Date    time.Time     `json:"date"`
	Summary model.Summary `json:"summary"`
}

// AssetChange is an asset that appeared or disappeared.
type AssetChange struct {
	Hash      string           `json:"hash"`
	Class     model.AssetClass `json:"class"`
	Key       string           `json:"key"`
	SourceURL string           `json:"source_url"`
}

// BrandChange is a brand brief field with its old and new value.
type BrandChange struct {
	Field    string `json:"field"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// compareRuns compares two extractions of the same domain.
func compareRuns(previous, current *model.Extraction) *RunComparison {
	result := &RunComparison{
		Domain:   current.Domain(),
		Previous: runInfo(previous),
		Current:  runInfo(current),
	}

	prevAssets := assetsByHash(previous.Manifest)
	currAssets := assetsByHash(current.Manifest)
	if current.Manifest != nil {
		for _, rec := range current.Manifest.Ordered() {
			if _, ok := prevAssets[rec.Hash]; ok {
				result.UnchangedAssets++
				continue
			}
			result.NewAssets = append(result.NewAssets, assetChange(rec))
		}
	}
	if previous.Manifest != nil {
		for _, rec := range previous.Manifest.Ordered() {
			if _, ok := currAssets[rec.Hash]; !ok {
				result.RemovedAssets = append(result.RemovedAssets, assetChange(rec))
			}
		}
	}

	prevPages, currPages := pageURLs(previous.Crawl), pageURLs(current.Crawl)
	for _, u := range currPages {
		if !slices.Contains(prevPages, u) {
			result.NewPages = append(result.NewPages, u)
		}
	}
	for _, u := range prevPages {
		if !slices.Contains(currPages, u) {
			result.RemovedPages = append(result.RemovedPages, u)
		}
	}

	result.BrandChanges = compareBriefs(previous.Brand, current.Brand)
	return result
}

func runInfo(e *model.Extraction) RunInfo {
	return RunInfo{ID: e.ID, Date: e.StartedAt, Summary: e.Summarize()}
}

func assetsByHash(m *model.AssetManifest) map[string]*model.AssetRecord {
	if m == nil {
		return map[string]*model.AssetRecord{}
	}
	return m.Assets
}

func assetChange(rec *model.AssetRecord) AssetChange {
	return AssetChange{Hash: rec.Hash, Class: rec.Class, Key: rec.Key, SourceURL: rec.SourceURL}
}

func pageURLs(c *model.CrawlResult) []string {
	if c == nil {
		return nil
	}
	return c.Order
}

// compareBriefs lists the fields that differ. A nil brief counts as empty.
func compareBriefs(previous, current *model.BrandBrief) []BrandChange {
	if previous == nil {
		previous = &model.BrandBrief{}
	}
	if current == nil {
		current = &model.BrandBrief{}
	}

	fields := []struct {
		name       string
		prev, curr string
	}{
		{"name", previous.Name, current.Name},
		{"tagline", previous.Tagline, current.Tagline},
		{"mission", previous.Mission, current.Mission},
		{"services", strings.Join(previous.Services, ", "), strings.Join(current.Services, ", ")},
		{"audience", strings.Join(previous.Audience, ", "), strings.Join(current.Audience, ", ")},
		{"tone", strings.Join(previous.Tone, ", "), strings.Join(current.Tone, ", ")},
		{"colors", strings.Join(previous.Colors, ", "), strings.Join(current.Colors, ", ")},
		{"fonts", strings.Join(previous.Fonts, ", "), strings.Join(current.Fonts, ", ")},
	}

	var changes []BrandChange
	for _, f := range fields {
		if f.prev != f.curr {
			changes = append(changes, BrandChange{Field: f.name, Previous: f.prev, Current: f.curr})
		}
	}
	return changes
}

func writeComparisonJSON(w io.Writer, result *RunComparison) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func writeComparisonMarkdown(w io.Writer, result *RunComparison) error {
	md := markdown.NewMarkdown(w)
	md.H1("Run Comparison: " + result.Domain)
	md.PlainText("")

	prev, curr := result.Previous.Summary, result.Current.Summary
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Date", result.Previous.Date.Format("2006-01-02 15:04"), result.Current.Date.Format("2006-01-02 15:04"), "-"},
			counterRow("Pages crawled", prev.PagesVisited, curr.PagesVisited),
			counterRow("Images stored", prev.ImagesDownloaded, curr.ImagesDownloaded),
			counterRow("Logos", prev.LogosDetected, curr.LogosDetected),
			counterRow("Videos", prev.VideosProcessed, curr.VideosProcessed),
		},
	})
	md.PlainText("")

	if len(result.NewAssets) > 0 {
		md.H2(fmt.Sprintf("New Assets (%d)", len(result.NewAssets)))
		md.BulletList(assetLines(result.NewAssets)...)
	}
	if len(result.RemovedAssets) > 0 {
		md.H2(fmt.Sprintf("Removed Assets (%d)", len(result.RemovedAssets)))
		md.BulletList(assetLines(result.RemovedAssets)...)
	}
	if len(result.NewPages) > 0 {
		md.H2(fmt.Sprintf("New Pages (%d)", len(result.NewPages)))
		md.BulletList(result.NewPages...)
	}
	if len(result.RemovedPages) > 0 {
		md.H2(fmt.Sprintf("Removed Pages (%d)", len(result.RemovedPages)))
		md.BulletList(result.RemovedPages...)
	}
	if len(result.BrandChanges) > 0 {
		md.H2("Brand Changes")
		rows := make([][]string, 0, len(result.BrandChanges))
		for _, c := range result.BrandChanges {
			rows = append(rows, []string{c.Field, orDash(c.Previous), orDash(c.Current)})
		}
		md.Table(markdown.TableSet{Header: []string{"Field", "Previous", "Current"}, Rows: rows})
	}
	md.PlainText("")
	md.PlainTextf("*%d assets unchanged*", result.UnchangedAssets)

	return md.Build()
}

func writeComparisonText(w io.Writer, result *RunComparison) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run Comparison: %s\n", result.Domain)
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "\nPrevious run: %s\n", result.Previous.Date.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Current run:  %s\n", result.Current.Date.Format("2006-01-02 15:04:05"))

	prev, curr := result.Previous.Summary, result.Current.Summary
	fmt.Fprintf(&sb, "\n  %-15s  %-10s  %-10s  %-10s\n", "Counter", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 50) + "\n")
	for _, row := range [][]string{
		counterRow("Pages crawled", prev.PagesVisited, curr.PagesVisited),
		counterRow("Images stored", prev.ImagesDownloaded, curr.ImagesDownloaded),
		counterRow("Logos", prev.LogosDetected, curr.LogosDetected),
		counterRow("Videos", prev.VideosProcessed, curr.VideosProcessed),
	} {
		fmt.Fprintf(&sb, "  %-15s  %-10s  %-10s  %-10s\n", row[0], row[1], row[2], row[3])
	}

	if len(result.NewAssets) > 0 {
		fmt.Fprintf(&sb, "\nNew Assets (%d):\n", len(result.NewAssets))
		for _, line := range assetLines(result.NewAssets) {
			sb.WriteString("  [+] " + line + "\n")
		}
	}
	if len(result.RemovedAssets) > 0 {
		fmt.Fprintf(&sb, "\nRemoved Assets (%d):\n", len(result.RemovedAssets))
		for _, line := range assetLines(result.RemovedAssets) {
			sb.WriteString("  [-] " + line + "\n")
		}
	}
	if len(result.NewPages) > 0 {
		fmt.Fprintf(&sb, "\nNew Pages (%d):\n", len(result.NewPages))
		for _, u := range result.NewPages {
			sb.WriteString("  [+] " + u + "\n")
		}
	}
	if len(result.RemovedPages) > 0 {
		fmt.Fprintf(&sb, "\nRemoved Pages (%d):\n", len(result.RemovedPages))
		for _, u := range result.RemovedPages {
			sb.WriteString("  [-] " + u + "\n")
		}
	}
	if len(result.BrandChanges) > 0 {
		sb.WriteString("\nBrand Changes:\n")
		for _, c := range result.BrandChanges {
			fmt.Fprintf(&sb, "  %s: %s -> %s\n", c.Field, orDash(c.Previous), orDash(c.Current))
		}
	}
	fmt.Fprintf(&sb, "\nUnchanged: %d assets\n", result.UnchangedAssets)

	_, err := io.WriteString(w, sb.String())
	return err
}

func counterRow(label string, prev, curr int) []string {
	return []string{label, strconv.Itoa(prev), strconv.Itoa(curr), formatDelta(curr - prev)}
}

func assetLines(changes []AssetChange) []string {
	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		lines = append(lines, fmt.Sprintf("[%s] %s (%s)", c.Class, c.Key, c.SourceURL))
	}
	return lines
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
