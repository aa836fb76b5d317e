package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/brandscan/internal/model"
)

// Sheet names of the workbook.
const (
	SheetSummary = "Summary"
	SheetAssets  = "Assets"
	SheetVideos  = "Videos"
	SheetPages   = "Pages"
)

// sheetData is the content of one worksheet.
type sheetData struct {
	name   string
	header []string
	rows   [][]any
}

// XLSXWriter outputs the asset manifest as an Excel workbook with one
// sheet per concern, for people who review brand assets in a spreadsheet.
type XLSXWriter struct {
	baseWriter
}

// NewXLSXWriter creates an XLSXWriter that outputs to the given writer.
func NewXLSXWriter(output io.Writer) *XLSXWriter {
	return &XLSXWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the workbook of a whole extraction.
func (w *XLSXWriter) Write(extraction *model.Extraction) (int, error) {
	return w.build(extraction.Summarize(), extraction)
}

// WriteSummary outputs a workbook with only the summary sheet.
func (w *XLSXWriter) WriteSummary(summary model.Summary) (int, error) {
	return w.build(summary, nil)
}

func (w *XLSXWriter) build(summary model.Summary, extraction *model.Extraction) (int, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	// The default sheet becomes the summary.
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return 0, fmt.Errorf("failed to create summary sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1E40AF"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}

	sheets := []sheetData{
		{SheetSummary, []string{"Counter", "Value"}, summaryRows(summary)},
	}
	if extraction != nil {
		sheets = append(sheets,
			sheetData{SheetAssets, []string{
				"Key", "Class", "Content Type", "Size", "Original Size",
				"Width", "Height", "Normalized", "Hash", "Source URL",
			}, assetRows(extraction.Manifest)},
			sheetData{SheetVideos, []string{"#", "URL"}, videoRows(extraction.Manifest)},
			sheetData{SheetPages, []string{"URL", "Depth", "Status", "Title", "Media", "Links"}, pageRows(extraction.Crawl)},
		)
	}

	for _, sheet := range sheets {
		if sheet.name != SheetSummary {
			if _, err := f.NewSheet(sheet.name); err != nil {
				return 0, fmt.Errorf("failed to create sheet %s: %w", sheet.name, err)
			}
		}
		if err := writeSheet(f, sheet.name, sheet.header, sheet.rows, header); err != nil {
			return 0, err
		}
	}

	n, err := f.WriteTo(w.output)
	if err != nil {
		return int(n), fmt.Errorf("failed to write workbook: %w", err)
	}
	return int(n), nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, headerStyle int) error {
	for i, col := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return fmt.Errorf("failed to write %s header: %w", sheet, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to style %s header: %w", sheet, err)
		}

		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(min(max(len(col)+5, 15), 50))
		if err := f.SetColWidth(sheet, colName, colName, width); err != nil {
			return fmt.Errorf("failed to size %s columns: %w", sheet, err)
		}
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, r+1, err)
		}
	}
	return nil
}

func summaryRows(s model.Summary) [][]any {
	return [][]any{
		{"Target", s.Target},
		{"Domain", s.Domain},
		{"Status", status(s)},
		{"Duration (s)", s.Duration.Seconds()},
		{"Pages crawled", s.PagesVisited},
		{"Pages failed", s.PagesFailed},
		{"Text chunks", s.TextChunks},
		{"Media URLs found", s.MediaFound},
		{"Images downloaded", s.ImagesDownloaded},
		{"Images optimized", s.ImagesOptimized},
		{"Logos detected", s.LogosDetected},
		{"Duplicates skipped", s.DuplicatesSkipped},
		{"Failed downloads", s.FailedDownloads},
		{"Video URLs", s.VideosProcessed},
		{"Bytes stored", s.BytesStored},
	}
}

func assetRows(m *model.AssetManifest) [][]any {
	if m == nil {
		return nil
	}
	rows := make([][]any, 0, len(m.Order))
	for _, rec := range m.Ordered() {
		rows = append(rows, []any{
			rec.Key, string(rec.Class), rec.ContentType, rec.Size, rec.OriginalSize,
			rec.Width, rec.Height, rec.Normalized, rec.Hash, rec.SourceURL,
		})
	}
	return rows
}

func videoRows(m *model.AssetManifest) [][]any {
	if m == nil {
		return nil
	}
	rows := make([][]any, 0, len(m.Videos))
	for _, v := range m.Videos {
		rows = append(rows, []any{v.Ordinal, v.URL})
	}
	return rows
}

func pageRows(c *model.CrawlResult) [][]any {
	if c == nil {
		return nil
	}
	rows := make([][]any, 0, len(c.Order))
	for _, p := range c.OrderedPages() {
		rows = append(rows, []any{p.URL, p.Depth, p.StatusCode, p.Title, len(p.MediaURLs), len(p.Links)})
	}
	return rows
}
