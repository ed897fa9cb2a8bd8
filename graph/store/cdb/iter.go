package cdb

import (
	"database/sql"

	"github.com/Ahmed-Sermani/okapi/graph"
	"github.com/lib/pq"
	"golang.org/x/xerrors"
)

type edgeIterator struct {
	rows        *sql.Rows
	lastErr     error
	latchedEdge *graph.Edge
}

func (i *edgeIterator) Next() bool {
	if i.lastErr != nil || !i.rows.Next() {
		return false
	}

	edge := &graph.Edge{}
	i.lastErr = i.rows.Scan(&edge.Src.Kind, &edge.Src.Num, &edge.Dst.Kind, &edge.Dst.Num, &edge.Weight)
	if i.lastErr != nil {
		return false
	}
	i.latchedEdge = edge
	return true
}

func (i *edgeIterator) Error() error {
	return i.lastErr
}

func (i *edgeIterator) Close() error {
	if err := i.rows.Close(); err != nil {
		return xerrors.Errorf("edge iter: %w", err)
	}
	return nil
}

func (i *edgeIterator) Edge() *graph.Edge {
	return i.latchedEdge
}

// ResultIterator walks the stored results of a job.
type ResultIterator struct {
	rows    *sql.Rows
	lastErr error

	id     graph.ID
	fields []float64
}

func (i *ResultIterator) Next() bool {
	if i.lastErr != nil || !i.rows.Next() {
		return false
	}

	var fields []float64
	i.lastErr = i.rows.Scan(&i.id.Kind, &i.id.Num, pq.Array(&fields))
	if i.lastErr != nil {
		return false
	}
	i.fields = fields
	return true
}

// Result returns the vertex id and fields at the current iterator position.
func (i *ResultIterator) Result() (graph.ID, []float64) {
	return i.id, i.fields
}

func (i *ResultIterator) Error() error {
	return i.lastErr
}

func (i *ResultIterator) Close() error {
	if err := i.rows.Close(); err != nil {
		return xerrors.Errorf("result iter: %w", err)
	}
	return nil
}
