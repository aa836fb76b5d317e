package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/brandscan/internal/model"
)

// JSONWriter writes the full run, or its counters, as one JSON document
// followed by a newline.
type JSONWriter struct {
	baseWriter
	prefix  string
	indent  string
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent indents nested values with indent, each line starting with
// prefix. An empty indent keeps the output compact.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.prefix, w.indent = prefix, indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion stamps reports with the brandscan version.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter on output.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport wraps an extraction with its summary and the tool version.
//
// Design decision: We wrap the extraction rather than adding fields to it
// because the version and summary are output concerns.
type JSONReport struct {
	// Version is the brandscan version that generated this report.
	Version string `json:"version,omitempty"`

	// Summary is the counter view for quick access.
	Summary model.Summary `json:"summary"`

	// Extraction is the full run.
	Extraction *model.Extraction `json:"extraction"`
}

// Write outputs the full extraction wrapped with its summary.
func (w *JSONWriter) Write(extraction *model.Extraction) (int, error) {
	return w.writeJSON(&JSONReport{
		Version:    w.version,
		Summary:    extraction.Summarize(),
		Extraction: extraction,
	})
}

// WriteSummary outputs only the summary in JSON format.
func (w *JSONWriter) WriteSummary(summary model.Summary) (int, error) {
	return w.writeJSON(summary)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent(w.prefix, w.indent)
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}
