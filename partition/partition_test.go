package partition

import (
	"math"
	"testing"

	"github.com/Ahmed-Sermani/okapi/graph"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(RangeTestSuite))
var _ = gc.Suite(new(HashTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type RangeTestSuite struct{}

func (s *RangeTestSuite) TestNewRangeErrors(c *gc.C) {
	_, err := NewRange(10, 10, 1)
	c.Assert(err, gc.ErrorMatches, "range start id must be less than the end id")

	_, err = NewRange(0, 10, 0)
	c.Assert(err, gc.ErrorMatches, "number of partitions must be at least equal to 1")

	_, err = NewRange(0, 2, 5)
	c.Assert(err, gc.ErrorMatches, "range is too small to be split into 5 partitions")
}

func (s *RangeTestSuite) TestEvenSplit(c *gc.C) {
	r, err := NewFullRange(4)
	c.Assert(err, gc.IsNil)

	expExtents := [][2]int64{
		{math.MinInt64, -4611686018427387904},
		{-4611686018427387904, 0},
		{0, 4611686018427387904},
		{4611686018427387904, math.MaxInt64},
	}

	for i, exp := range expExtents {
		c.Logf("extent: %d", i)
		gotFrom, gotTo, err := r.PartitionExtents(i)
		c.Assert(err, gc.IsNil)
		c.Assert(gotFrom, gc.Equals, exp[0])
		c.Assert(gotTo, gc.Equals, exp[1])
	}
}

func (s *RangeTestSuite) TestOddSplit(c *gc.C) {
	r, err := NewFullRange(3)
	c.Assert(err, gc.IsNil)

	expExtents := [][2]int64{
		{math.MinInt64, -3074457345618258603},
		{-3074457345618258603, 3074457345618258602},
		{3074457345618258602, math.MaxInt64},
	}

	for i, exp := range expExtents {
		c.Logf("extent: %d", i)
		gotFrom, gotTo, err := r.PartitionExtents(i)
		c.Assert(err, gc.IsNil)
		c.Assert(gotFrom, gc.Equals, exp[0])
		c.Assert(gotTo, gc.Equals, exp[1])
	}
}

func (s *RangeTestSuite) TestPartitionExtentsError(c *gc.C) {
	r, err := NewRange(0, 100, 2)
	c.Assert(err, gc.IsNil)

	_, _, err = r.PartitionExtents(2)
	c.Assert(err, gc.ErrorMatches, "invalid partition index")
}

func (s *RangeTestSuite) TestPartitionOf(c *gc.C) {
	r, err := NewRange(0, 100, 4)
	c.Assert(err, gc.IsNil)
	c.Assert(r.NumPartitions(), gc.Equals, 4)

	specs := []struct {
		num int64
		exp int
	}{
		{-5, 0},
		{0, 0},
		{24, 0},
		{25, 1},
		{49, 1},
		{50, 2},
		{75, 3},
		{99, 3},
		{100, 3},
		{math.MaxInt64, 3},
	}
	for _, spec := range specs {
		c.Assert(r.PartitionOf(graph.NewID(spec.num)), gc.Equals, spec.exp, gc.Commentf("id %d", spec.num))
	}
}

type HashTestSuite struct{}

func (s *HashTestSuite) TestInvalidCount(c *gc.C) {
	_, err := NewHash(0)
	c.Assert(err, gc.ErrorMatches, "number of partitions must be at least equal to 1")
}

func (s *HashTestSuite) TestDeterministicAndInBounds(c *gc.C) {
	h, err := NewHash(7)
	c.Assert(err, gc.IsNil)
	c.Assert(h.NumPartitions(), gc.Equals, 7)

	seen := make(map[int]bool)
	for num := int64(-500); num < 500; num++ {
		id := graph.NewID(num)
		p := h.PartitionOf(id)
		c.Assert(p >= 0 && p < 7, gc.Equals, true)
		c.Assert(h.PartitionOf(id), gc.Equals, p)
		seen[p] = true
	}
	c.Assert(seen, gc.HasLen, 7, gc.Commentf("every partition should receive vertices"))
}

func (s *HashTestSuite) TestKindAffectsPlacement(c *gc.C) {
	h, err := NewHash(1024)
	c.Assert(err, gc.IsNil)

	var differ bool
	for num := int64(0); num < 16; num++ {
		if h.PartitionOf(graph.UserID(num)) != h.PartitionOf(graph.ItemID(num)) {
			differ = true
		}
	}
	c.Assert(differ, gc.Equals, true)
}
