package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/nao1215/brandscan/internal/model"
	"github.com/nao1215/brandscan/internal/output"
)

const ruleWidth = 70

// SimpleWriter outputs the human-readable extraction report.
// The same text, without colors, is saved as extraction_report.txt.
//
// Design decision: Colors are off unless WithColor(true) is given because:
// 1. The saved report and piped output must stay plain text
// 2. The CLI already knows whether stdout is a terminal
type SimpleWriter struct {
	baseWriter

	// verbose lists every failed media URL.
	verbose bool

	heading *color.Color
	banner  *color.Color
	warn    *color.Color
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor enables or disables ANSI colors.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		for _, c := range []*color.Color{w.heading, w.banner, w.warn} {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		heading:    color.New(color.FgCyan),
		banner:     color.New(color.FgGreen, color.Bold),
		warn:       color.New(color.FgYellow),
	}
	WithColor(false)(w)

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full extraction report.
func (w *SimpleWriter) Write(extraction *model.Extraction) (int, error) {
	summary := extraction.Summarize()

	var sb strings.Builder
	w.writeHeader(&sb, summary)
	w.writeScraping(&sb, summary)
	w.writeAssets(&sb, summary)
	w.writeFailures(&sb, extraction.Manifest)
	w.writeBrand(&sb, extraction.Brand)
	w.writeLayout(&sb, extraction.OutputDir)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// WriteSummary outputs the counters of one run.
func (w *SimpleWriter) WriteSummary(summary model.Summary) (int, error) {
	var sb strings.Builder
	w.writeHeader(&sb, summary)
	w.writeScraping(&sb, summary)
	w.writeAssets(&sb, summary)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary model.Summary) {
	rule := strings.Repeat("=", ruleWidth)
	sb.WriteString("\n")
	sb.WriteString(w.banner.Sprint(rule))
	sb.WriteString("\n")
	sb.WriteString(w.banner.Sprint("                         EXTRACTION REPORT"))
	sb.WriteString("\n")
	sb.WriteString(w.banner.Sprint(rule))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Target:   %s\n", summary.Target)
	if summary.Duration > 0 {
		fmt.Fprintf(sb, "Duration: %s\n", summary.Duration.Round(time.Millisecond))
	}
	line := fmt.Sprintf("Status:   %s", status(summary))
	if summary.TimedOut || summary.Error != "" {
		line = w.warn.Sprint(line)
	}
	sb.WriteString(line)
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) section(sb *strings.Builder, title string) {
	sb.WriteString(w.heading.Sprint(title))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeScraping(sb *strings.Builder, summary model.Summary) {
	w.section(sb, "SCRAPING SUMMARY")
	fmt.Fprintf(sb, "   * Pages crawled: %d\n", summary.PagesVisited)
	fmt.Fprintf(sb, "   * Pages failed: %d\n", summary.PagesFailed)
	fmt.Fprintf(sb, "   * Domain: %s\n", summary.Domain)
	fmt.Fprintf(sb, "   * Text chunks: %d\n", summary.TextChunks)
	fmt.Fprintf(sb, "   * Media URLs found: %d\n", summary.MediaFound)
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeAssets(sb *strings.Builder, summary model.Summary) {
	w.section(sb, "ASSET PROCESSING")
	fmt.Fprintf(sb, "   * Images downloaded: %d\n", summary.ImagesDownloaded)
	fmt.Fprintf(sb, "   * Images optimized: %d\n", summary.ImagesOptimized)
	fmt.Fprintf(sb, "   * Logos detected: %d\n", summary.LogosDetected)
	fmt.Fprintf(sb, "   * Duplicates skipped: %d\n", summary.DuplicatesSkipped)
	fmt.Fprintf(sb, "   * Video URLs saved: %d\n", summary.VideosProcessed)
	fmt.Fprintf(sb, "   * Failed downloads: %d\n", summary.FailedDownloads)
	fmt.Fprintf(sb, "   * Bytes stored: %s\n", humanize.Bytes(uint64(max(summary.BytesStored, 0))))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, manifest *model.AssetManifest) {
	if !w.verbose || manifest == nil {
		return
	}
	var failed []model.Outcome
	for _, o := range manifest.Outcomes {
		if o.Kind == model.OutcomeFailed {
			failed = append(failed, o)
		}
	}
	if len(failed) == 0 {
		return
	}

	w.section(sb, "FAILED DOWNLOADS")
	for _, o := range failed {
		fmt.Fprintf(sb, "   * %s\n", o.URL)
		if o.Error != "" {
			fmt.Fprintf(sb, "     %s\n", w.warn.Sprint(o.Error))
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeBrand(sb *strings.Builder, brief *model.BrandBrief) {
	if brief.IsEmpty() {
		return
	}

	w.section(sb, "BRAND ANALYSIS")
	fmt.Fprintf(sb, "   * Brand Name: %s\n", orDash(brief.Name))
	fmt.Fprintf(sb, "   * Tagline: %s\n", orDash(brief.Tagline))
	fmt.Fprintf(sb, "   * Tone: %s\n", orDash(strings.Join(brief.Tone, ", ")))
	fmt.Fprintf(sb, "   * Target Audience: %s\n", orDash(strings.Join(brief.Audience, ", ")))
	fmt.Fprintf(sb, "   * Services Identified: %d\n", len(brief.Services))
	fmt.Fprintf(sb, "   * Colors Extracted: %d\n", len(brief.Colors))
	fmt.Fprintf(sb, "   * Fonts Found: %d\n", len(brief.Fonts))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeLayout(sb *strings.Builder, dir string) {
	if dir == "" {
		return
	}

	w.section(sb, "OUTPUT STRUCTURE")
	fmt.Fprintf(sb, "   * Main Directory: %s\n", dir)
	for _, entry := range []struct{ label, rel string }{
		{"Media Files", output.MediaDir},
		{"Logo Files", output.LogosDir},
		{"Brand Brief", output.BriefFile},
		{"Raw Text", output.RawTextFile},
		{"HTML Pages", output.HTMLDir},
		{"Video URLs", output.VideosFile},
	} {
		fmt.Fprintf(sb, "   * %s: %s\n", entry.label, filepath.Join(dir, filepath.FromSlash(entry.rel)))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(w.banner.Sprint(strings.Repeat("=", ruleWidth)))
	sb.WriteString("\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
