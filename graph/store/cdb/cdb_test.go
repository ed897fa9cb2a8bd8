package cdb

import (
	"database/sql"
	"os"
	"testing"

	"github.com/Ahmed-Sermani/okapi/graph"
	"github.com/Ahmed-Sermani/okapi/graph/graphtest"
	"github.com/google/uuid"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(CockroachDBStoreTestSuite))

type CockroachDBStoreTestSuite struct {
	graphtest.SuiteBase
	store *CockroachDBStore
	db    *sql.DB
}

func Test(t *testing.T) {
	gc.TestingT(t)
}

func (s *CockroachDBStoreTestSuite) SetUpSuite(c *gc.C) {
	dsn := os.Getenv("CDB_DSN")
	if dsn == "" {
		c.Skip("missing cdb dsn; skipping cdb test package")
	}

	store, err := NewCockroachDBStore(dsn)
	c.Assert(err, gc.IsNil)
	c.Assert(store.EnsureSchema(), gc.IsNil)
	s.SetStore(store)
	s.store = store
	s.db = store.db
}

func (s *CockroachDBStoreTestSuite) TearDownSuite(c *gc.C) {
	if s.db != nil {
		s.flushDB(c)
		c.Assert(s.db.Close(), gc.IsNil)
	}
}

func (s *CockroachDBStoreTestSuite) SetUpTest(c *gc.C) {
	s.flushDB(c)
}

func (s *CockroachDBStoreTestSuite) TestWriteAndReadResults(c *gc.C) {
	jobID := uuid.New()
	w := s.store.ResultWriter(jobID)
	c.Assert(w.JobID(), gc.Equals, jobID)

	c.Assert(w.WriteResult(graph.ItemID(2), []float64{0.5, -1}), gc.IsNil)
	c.Assert(w.WriteResult(graph.UserID(1), []float64{3}), gc.IsNil)
	// rewriting a vertex replaces its fields
	c.Assert(w.WriteResult(graph.ItemID(2), []float64{0.25, 1e300}), gc.IsNil)

	// results of other jobs are not visible
	c.Assert(s.store.ResultWriter(uuid.New()).WriteResult(graph.UserID(9), []float64{1}), gc.IsNil)

	it, err := s.store.Results(jobID)
	c.Assert(err, gc.IsNil)

	type row struct {
		id     graph.ID
		fields []float64
	}
	var got []row
	for it.Next() {
		id, fields := it.Result()
		got = append(got, row{id, fields})
	}
	c.Assert(it.Error(), gc.IsNil)
	c.Assert(it.Close(), gc.IsNil)
	c.Assert(got, gc.DeepEquals, []row{
		{graph.UserID(1), []float64{3}},
		{graph.ItemID(2), []float64{0.25, 1e300}},
	})

	c.Assert(s.store.RemoveResults(jobID), gc.IsNil)
	it, err = s.store.Results(jobID)
	c.Assert(err, gc.IsNil)
	c.Assert(it.Next(), gc.Equals, false)
	c.Assert(it.Close(), gc.IsNil)
}

func (s *CockroachDBStoreTestSuite) flushDB(c *gc.C) {
	_, err := s.db.Exec("DELETE FROM edges")
	c.Assert(err, gc.IsNil)
	_, err = s.db.Exec("DELETE FROM results")
	c.Assert(err, gc.IsNil)
}
