package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/brandscan/internal/model"
)

// maxAssetRows bounds the asset table of the Markdown report.
const maxAssetRows = 50

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(extraction *model.Extraction) (int, error) {
	summary := extraction.Summarize()
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeSummary(md, summary)
	w.writeAssets(md, extraction.Manifest)
	w.writeVideos(md, extraction.Manifest)
	w.writeBrand(md, extraction.Brand)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs the counters of one run in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeSummary(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary model.Summary) {
	md.H1("brandscan Extraction Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + summary.Target + "`"},
			{"Domain", summary.Domain},
			{"Duration", summary.Duration.String()},
			{"Status", w.getStatusText(summary)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on run state.
func (w *MarkdownWriter) getStatusText(summary model.Summary) string {
	if summary.TimedOut {
		return "⚠️ Timed Out (partial results)"
	}
	if summary.Error != "" {
		return "❌ Error - " + summary.Error
	}
	return "✅ Complete"
}

// writeSummary writes the counters table, chart and alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, summary model.Summary) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Pages crawled", strconv.Itoa(summary.PagesVisited)},
			{"Pages failed", strconv.Itoa(summary.PagesFailed)},
			{"Text chunks", strconv.Itoa(summary.TextChunks)},
			{"Media URLs found", strconv.Itoa(summary.MediaFound)},
			{"Images downloaded", strconv.Itoa(summary.ImagesDownloaded)},
			{"Images optimized", strconv.Itoa(summary.ImagesOptimized)},
			{"Logos detected", strconv.Itoa(summary.LogosDetected)},
			{"Duplicates skipped", strconv.Itoa(summary.DuplicatesSkipped)},
			{"Failed downloads", strconv.Itoa(summary.FailedDownloads)},
			{"Video URLs", strconv.Itoa(summary.VideosProcessed)},
			{"**Bytes stored**", "**" + humanize.Bytes(uint64(max(summary.BytesStored, 0))) + "**"},
		},
	})
	md.PlainText("")

	if summary.MediaFound > 0 {
		w.writePieChart(md, summary)
	}
	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart of media outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Media Outcomes"),
		piechart.WithShowData(true),
	)

	if logos := summary.LogosDetected; logos > 0 {
		chart.LabelAndIntValue("Logos", uint64(logos))
	}
	if media := summary.ImagesDownloaded - summary.LogosDetected; media > 0 {
		chart.LabelAndIntValue("Other images", uint64(media))
	}
	if summary.DuplicatesSkipped > 0 {
		chart.LabelAndIntValue("Duplicates", uint64(summary.DuplicatesSkipped))
	}
	if summary.FailedDownloads > 0 {
		chart.LabelAndIntValue("Failed", uint64(summary.FailedDownloads))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert describing how the run went.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary model.Summary) {
	switch {
	case summary.Error != "":
		md.Cautionf("The extraction failed: %s", summary.Error)
	case summary.TimedOut:
		md.Warningf("The extraction was cancelled before it finished. Results are partial.")
	case summary.FailedDownloads > 0:
		md.Importantf("%d media download(s) failed.", summary.FailedDownloads)
	case summary.ImagesDownloaded == 0:
		md.Note("No images were stored.")
	default:
		md.Tip("All discovered media was processed.")
	}
	md.PlainText("")
}

// writeAssets writes the stored asset table, logos first.
func (w *MarkdownWriter) writeAssets(md *markdown.Markdown, manifest *model.AssetManifest) {
	md.H2("Assets")
	md.PlainText("")

	if manifest == nil || len(manifest.Order) == 0 {
		md.PlainText("No assets stored.")
		md.PlainText("")
		return
	}

	records := manifest.Logos()
	for _, rec := range manifest.Ordered() {
		if rec.Class != model.ClassLogo {
			records = append(records, rec)
		}
	}

	rows := make([][]string, 0, min(len(records), maxAssetRows))
	for _, rec := range records[:min(len(records), maxAssetRows)] {
		rows = append(rows, []string{
			"`" + rec.Key + "`",
			string(rec.Class),
			humanize.Bytes(uint64(max(rec.Size, 0))),
			dimensions(rec),
			truncateString(rec.SourceURL, 60),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Key", "Class", "Size", "Dimensions", "Source"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(records) > maxAssetRows {
		md.PlainTextf("*%d more asset(s) listed in info/manifest.json.*", len(records)-maxAssetRows)
		md.PlainText("")
	}
}

func dimensions(rec *model.AssetRecord) string {
	if rec.Width == 0 || rec.Height == 0 {
		return "-"
	}
	return strconv.Itoa(rec.Width) + "x" + strconv.Itoa(rec.Height)
}

// writeVideos writes the referenced video URLs.
func (w *MarkdownWriter) writeVideos(md *markdown.Markdown, manifest *model.AssetManifest) {
	if manifest == nil || len(manifest.Videos) == 0 {
		return
	}

	md.H2("Videos")
	md.PlainText("")
	urls := make([]string, 0, len(manifest.Videos))
	for _, v := range manifest.Videos {
		urls = append(urls, v.URL)
	}
	md.BulletList(urls...)
	md.PlainText("")
}

// writeBrand writes a short view of the brand brief.
func (w *MarkdownWriter) writeBrand(md *markdown.Markdown, brief *model.BrandBrief) {
	if brief.IsEmpty() {
		return
	}

	md.H2("Brand")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Name", orDash(brief.Name)},
			{"Tagline", orDash(brief.Tagline)},
			{"Tone", orDash(strings.Join(brief.Tone, ", "))},
			{"Audience", orDash(strings.Join(brief.Audience, ", "))},
			{"Colors", orDash(strings.Join(brief.Colors, " "))},
			{"Fonts", orDash(strings.Join(brief.Fonts, ", "))},
		},
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [brandscan](https://github.com/nao1215/brandscan)*")
}
