package cdb

import (
	"database/sql"

	"github.com/Ahmed-Sermani/okapi/graph"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/xerrors"
)

// Schema creates the tables used by the store. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS edges (
  id SERIAL PRIMARY KEY,
  src_kind INT2 NOT NULL,
  src INT8 NOT NULL,
  dst_kind INT2 NOT NULL,
  dst INT8 NOT NULL,
  weight FLOAT8 NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS results (
  job_id UUID NOT NULL,
  kind INT2 NOT NULL,
  num INT8 NOT NULL,
  fields FLOAT8[] NOT NULL,
  PRIMARY KEY (job_id, kind, num)
);
`

const (
	appendEdgeQuery = `
  INSERT INTO edges (src_kind, src, dst_kind, dst, weight) VALUES ($1, $2, $3, $4, $5)
  `
	iterEdgesQuery = `
  SELECT src_kind, src, dst_kind, dst, weight FROM edges ORDER BY id
  `
	upsertResultQuery = `
  INSERT INTO results (job_id, kind, num, fields) VALUES ($1, $2, $3, $4)
  ON CONFLICT (job_id, kind, num) DO UPDATE SET fields=$4
  `
	iterResultsQuery = `
  SELECT kind, num, fields FROM results WHERE job_id=$1 ORDER BY kind, num
  `
	rmResultsQuery = `
  DELETE FROM results WHERE job_id=$1
  `
)

var _ graph.EdgeStore = (*CockroachDBStore)(nil)

// CockroachDBStore is a graph.EdgeStore backed by CockroachDB or any
// PostgreSQL-compatible database. It also persists the per-vertex results of
// finished jobs.
type CockroachDBStore struct {
	db *sql.DB
}

func NewCockroachDBStore(dsn string) (*CockroachDBStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	return &CockroachDBStore{db}, nil
}

func (c *CockroachDBStore) Close() error {
	return c.db.Close()
}

// EnsureSchema creates the edges and results tables if they are missing.
func (c *CockroachDBStore) EnsureSchema() error {
	if _, err := c.db.Exec(Schema); err != nil {
		return xerrors.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (c *CockroachDBStore) AppendEdge(edge *graph.Edge) error {
	_, err := c.db.Exec(appendEdgeQuery, edge.Src.Kind, edge.Src.Num, edge.Dst.Kind, edge.Dst.Num, edge.Weight)
	if err != nil {
		return xerrors.Errorf("append edge: %w", err)
	}
	return nil
}

func (c *CockroachDBStore) Edges() (graph.EdgeIterator, error) {
	rows, err := c.db.Query(iterEdgesQuery)
	if err != nil {
		return nil, xerrors.Errorf("edges: %w", err)
	}
	return &edgeIterator{rows: rows}, nil
}

// ResultWriter returns a writer that stores results under jobID.
func (c *CockroachDBStore) ResultWriter(jobID uuid.UUID) *ResultWriter {
	return &ResultWriter{db: c.db, jobID: jobID}
}

// Results returns an iterator over the results stored for jobID, sorted by
// vertex id.
func (c *CockroachDBStore) Results(jobID uuid.UUID) (*ResultIterator, error) {
	rows, err := c.db.Query(iterResultsQuery, jobID)
	if err != nil {
		return nil, xerrors.Errorf("results: %w", err)
	}
	return &ResultIterator{rows: rows}, nil
}

// RemoveResults deletes every result row of jobID.
func (c *CockroachDBStore) RemoveResults(jobID uuid.UUID) error {
	if _, err := c.db.Exec(rmResultsQuery, jobID); err != nil {
		return xerrors.Errorf("remove results: %w", err)
	}
	return nil
}

// ResultWriter upserts one row per vertex into the results table.
type ResultWriter struct {
	db    *sql.DB
	jobID uuid.UUID
}

// JobID returns the job the writer stores results for.
func (w *ResultWriter) JobID() uuid.UUID { return w.jobID }

func (w *ResultWriter) WriteResult(id graph.ID, fields []float64) error {
	if _, err := w.db.Exec(upsertResultQuery, w.jobID, id.Kind, id.Num, pq.Array(fields)); err != nil {
		return xerrors.Errorf("write result for vertex %q: %w", id, err)
	}
	return nil
}
