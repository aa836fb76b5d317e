// Package report renders extraction runs for people and tools.
//
// Formats:
//   - SimpleWriter: the console report, colored with fatih/color; the
//     same writer produces extraction_report.txt in the output directory
//   - JSONWriter: the whole run plus its counters
//   - MarkdownWriter: a shareable document built with nao1215/markdown
//   - XLSXWriter: an excelize workbook with asset, video and page sheets
//
// Every writer implements Writer, so the CLI, the history command and the
// output step pick a format without knowing its details. MultiWriter sends
// one run to several of them.
package report
