package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
)

// PlainTableWriter writes kubectl-style tables: uppercase headers, columns
// separated by spaces, no borders. Widths are measured in display cells with
// color escape sequences ignored, so colored status cells stay aligned.
type PlainTableWriter struct {
	headers     []string
	rows        [][]string
	widths      []int
	padding     int
	showHeaders bool
	output      io.Writer
}

// NewPlainTableWriter creates a writer that shows headers.
func NewPlainTableWriter(output io.Writer) *PlainTableWriter {
	return &PlainTableWriter{
		padding:     3,
		showHeaders: true,
		output:      output,
	}
}

// SetHeaders sets the columns. Headers are shown uppercased.
func (w *PlainTableWriter) SetHeaders(headers ...string) {
	w.headers = make([]string, len(headers))
	w.widths = make([]int, len(headers))
	for i, h := range headers {
		w.headers[i] = strings.ToUpper(h)
		w.widths[i] = text.RuneWidthWithoutEscSequences(w.headers[i])
	}
}

// SetNoHeaders controls whether to suppress the header row.
func (w *PlainTableWriter) SetNoHeaders(noHeaders bool) {
	w.showHeaders = !noHeaders
}

// AppendRow adds a row. Missing cells are blank and extra cells are dropped.
func (w *PlainTableWriter) AppendRow(cells ...string) {
	row := make([]string, len(w.headers))
	copy(row, cells)
	for i, cell := range row {
		if width := text.RuneWidthWithoutEscSequences(cell); width > w.widths[i] {
			w.widths[i] = width
		}
	}
	w.rows = append(w.rows, row)
}

// Len returns the number of data rows.
func (w *PlainTableWriter) Len() int { return len(w.rows) }

// Render writes the table. Nothing is written for a table without columns or
// for an empty table whose headers are suppressed.
func (w *PlainTableWriter) Render() error {
	if len(w.headers) == 0 || (len(w.rows) == 0 && !w.showHeaders) {
		return nil
	}
	if w.showHeaders {
		if err := w.writeRow(w.headers); err != nil {
			return err
		}
	}
	for _, row := range w.rows {
		if err := w.writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

func (w *PlainTableWriter) writeRow(row []string) error {
	var sb strings.Builder
	last := len(row) - 1
	for i, cell := range row {
		sb.WriteString(cell)
		if i < last {
			gap := w.widths[i] - text.RuneWidthWithoutEscSequences(cell) + w.padding
			sb.WriteString(strings.Repeat(" ", gap))
		}
	}
	_, err := fmt.Fprintln(w.output, strings.TrimRight(sb.String(), " "))
	return err
}
