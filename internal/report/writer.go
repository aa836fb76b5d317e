package report

import (
	"io"

	"github.com/nao1215/brandscan/internal/model"
)

// Writer renders an extraction in one format. Both methods return the
// number of bytes written.
type Writer interface {
	// Write renders the whole run.
	Write(extraction *model.Extraction) (int, error)

	// WriteSummary renders only the counters. The scan command prints them
	// on the console when the full report goes to a file.
	WriteSummary(summary model.Summary) (int, error)
}

// MultiWriter fans one report out to several Writers, each with its own
// format and destination. It stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a MultiWriter.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders extraction with every writer and sums the byte counts.
func (m *MultiWriter) Write(extraction *model.Extraction) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(extraction)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary renders summary with every writer.
func (m *MultiWriter) WriteSummary(summary model.Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// truncateString cuts s to maxLen bytes, ending with "..." when there is
// room for it.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// status describes how an extraction ended.
func status(summary model.Summary) string {
	switch {
	case summary.TimedOut:
		return "TIMED OUT (partial results)"
	case summary.Error != "":
		return "ERROR - " + summary.Error
	default:
		return "Complete"
	}
}
