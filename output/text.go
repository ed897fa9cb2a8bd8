// Package output serializes per-vertex results.
package output

import (
	"bufio"
	"io"
	"strconv"

	"github.com/Ahmed-Sermani/okapi/graph"
	"golang.org/x/xerrors"
)

// TextWriter writes one line per vertex: the vertex id, a tab and the
// space-separated result fields. Floats use the shortest representation
// that parses back to the same value.
type TextWriter struct {
	w   *bufio.Writer
	buf []byte
}

// NewTextWriter returns a TextWriter that writes to w. Callers must invoke
// Flush once all results have been written.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w)}
}

// WriteResult appends the line for vertex id.
func (t *TextWriter) WriteResult(id graph.ID, fields []float64) error {
	t.buf = append(t.buf[:0], id.String()...)
	for i, f := range fields {
		if i == 0 {
			t.buf = append(t.buf, '\t')
		} else {
			t.buf = append(t.buf, ' ')
		}
		t.buf = strconv.AppendFloat(t.buf, f, 'g', -1, 64)
	}
	t.buf = append(t.buf, '\n')

	if _, err := t.w.Write(t.buf); err != nil {
		return xerrors.Errorf("write result for %q: %w", id, err)
	}
	return nil
}

// Flush writes any buffered lines to the underlying writer.
func (t *TextWriter) Flush() error {
	return t.w.Flush()
}
