package memory

import (
	"testing"

	"github.com/Ahmed-Sermani/okapi/graph/graphtest"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(InMemoryEdgeListTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type InMemoryEdgeListTestSuite struct {
	graphtest.SuiteBase
	store *EdgeList
}

func (s *InMemoryEdgeListTestSuite) SetUpTest(c *gc.C) {
	s.store = NewEdgeList()
	s.SetStore(s.store)
}

func (s *InMemoryEdgeListTestSuite) TestNilEdge(c *gc.C) {
	err := s.store.AppendEdge(nil)
	c.Assert(xerrors.Is(err, ErrNilEdge), gc.Equals, true)
	c.Assert(s.store.Len(), gc.Equals, 0)
}
