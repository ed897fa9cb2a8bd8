// Package graphtest contains a check.v1 suite that every graph.EdgeStore
// implementation is expected to pass.
package graphtest

import (
	"github.com/Ahmed-Sermani/okapi/graph"
	gc "gopkg.in/check.v1"
)

// SuiteBase defines a re-usable set of edge store tests. Implementations
// embed it and call SetStore from their SetUpTest hook.
type SuiteBase struct {
	s graph.EdgeStore
}

// SetStore configures the test-suite to run all tests against s.
func (b *SuiteBase) SetStore(s graph.EdgeStore) {
	b.s = s
}

func (b *SuiteBase) TestEmptyStore(c *gc.C) {
	it, err := b.s.Edges()
	c.Assert(err, gc.IsNil)
	c.Assert(it.Next(), gc.Equals, false)
	c.Assert(it.Error(), gc.IsNil)
	c.Assert(it.Close(), gc.IsNil)
}

func (b *SuiteBase) TestAppendAndIterate(c *gc.C) {
	exp := []graph.Edge{
		{Src: graph.NewID(3), Dst: graph.NewID(-1), Weight: 1},
		{Src: graph.NewID(1), Dst: graph.NewID(2), Weight: 0.25},
		{Src: graph.UserID(7), Dst: graph.ItemID(7), Weight: 4.5},
		// duplicates are kept
		{Src: graph.NewID(1), Dst: graph.NewID(2), Weight: 0.25},
	}
	for i := range exp {
		c.Assert(b.s.AppendEdge(&exp[i]), gc.IsNil)
	}

	c.Assert(b.collect(c), gc.DeepEquals, exp)
}

func (b *SuiteBase) TestIteratorSnapshot(c *gc.C) {
	c.Assert(b.s.AppendEdge(&graph.Edge{Src: graph.NewID(1), Dst: graph.NewID(2), Weight: 1}), gc.IsNil)

	it, err := b.s.Edges()
	c.Assert(err, gc.IsNil)

	c.Assert(b.s.AppendEdge(&graph.Edge{Src: graph.NewID(2), Dst: graph.NewID(3), Weight: 1}), gc.IsNil)

	var count int
	for it.Next() {
		count++
	}
	c.Assert(it.Error(), gc.IsNil)
	c.Assert(it.Close(), gc.IsNil)
	c.Assert(count, gc.Equals, 1, gc.Commentf("iterator must not observe edges appended after its creation"))
}

func (b *SuiteBase) TestReturnedEdgeIsACopy(c *gc.C) {
	c.Assert(b.s.AppendEdge(&graph.Edge{Src: graph.NewID(1), Dst: graph.NewID(2), Weight: 1}), gc.IsNil)

	it, err := b.s.Edges()
	c.Assert(err, gc.IsNil)
	c.Assert(it.Next(), gc.Equals, true)
	it.Edge().Weight = 42
	c.Assert(it.Close(), gc.IsNil)

	c.Assert(b.collect(c)[0].Weight, gc.Equals, 1.0)
}

func (b *SuiteBase) collect(c *gc.C) []graph.Edge {
	it, err := b.s.Edges()
	c.Assert(err, gc.IsNil)

	var edges []graph.Edge
	for it.Next() {
		edges = append(edges, *it.Edge())
	}
	c.Assert(it.Error(), gc.IsNil)
	c.Assert(it.Close(), gc.IsNil)
	return edges
}
