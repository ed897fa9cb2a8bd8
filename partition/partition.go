// Package partition assigns graph vertices to a fixed number of partitions.
package partition

import (
	"math"
	"math/big"

	"github.com/Ahmed-Sermani/okapi/graph"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
)

// Assigner is implemented by types that map a vertex id to the partition
// owning it. PartitionOf must be deterministic and return a value in
// [0, NumPartitions()).
type Assigner interface {
	PartitionOf(id graph.ID) int
	NumPartitions() int
}

var (
	_ Assigner = Hash{}
	_ Assigner = Range{}
)

// Hash assigns vertices to partitions by hashing their ids.
type Hash struct {
	numPartitions int
}

// NewHash returns a hash-based assigner with numPartitions partitions.
func NewHash(numPartitions int) (Hash, error) {
	if numPartitions <= 0 {
		return Hash{}, xerrors.Errorf("number of partitions must be at least equal to 1")
	}
	return Hash{numPartitions: numPartitions}, nil
}

func (h Hash) PartitionOf(id graph.ID) int {
	return int(id.Hash() % uint64(h.numPartitions))
}

func (h Hash) NumPartitions() int { return h.numPartitions }

// Range represents a contiguous region of numeric vertex ids which is split
// into a number of partitions.
type Range struct {
	start       int64
	rangeSplits []int64
}

// NewFullRange creates a new range that uses the full int64 id space and
// splits it into the provided number of partitions.
func NewFullRange(numPartitions int) (Range, error) {
	return NewRange(math.MinInt64, math.MaxInt64, numPartitions)
}

// NewRange creates a new range [start, end) and splits it into the
// provided number of partitions.
func NewRange(start, end int64, numPartitions int) (Range, error) {
	if start >= end {
		return Range{}, xerrors.Errorf("range start id must be less than the end id")
	} else if numPartitions <= 0 {
		return Range{}, xerrors.Errorf("number of partitions must be at least equal to 1")
	}

	// Calculate the size of each partition as: ((end - start + 1) / numPartitions)
	bigStart := big.NewInt(start)
	partSize := big.NewInt(0).Sub(big.NewInt(end), bigStart)
	partSize = partSize.Div(partSize.Add(partSize, big.NewInt(1)), big.NewInt(int64(numPartitions)))
	if partSize.Sign() == 0 {
		return Range{}, xerrors.Errorf("range is too small to be split into %d partitions", numPartitions)
	}

	var (
		tokenRange = big.NewInt(0)
		ranges     = make([]int64, numPartitions)
	)
	for partition := 0; partition < numPartitions; partition++ {
		if partition == numPartitions-1 {
			ranges[partition] = end
			continue
		}

		tokenRange.Mul(partSize, big.NewInt(int64(partition+1)))
		ranges[partition] = tokenRange.Add(tokenRange, bigStart).Int64()
	}

	return Range{start: start, rangeSplits: ranges}, nil
}

// PartitionExtents returns the [start, end) range for the requested partition.
func (r Range) PartitionExtents(partition int) (int64, int64, error) {
	if partition < 0 || partition >= len(r.rangeSplits) {
		return 0, 0, xerrors.Errorf("invalid partition index")
	}

	if partition == 0 {
		return r.start, r.rangeSplits[0], nil
	}
	return r.rangeSplits[partition-1], r.rangeSplits[partition], nil
}

// PartitionOf returns the partition whose extents contain id.Num. Ids below
// the range belong to the first partition and ids at or above its end to
// the last one.
func (r Range) PartitionOf(id graph.ID) int {
	idx, found := slices.BinarySearch(r.rangeSplits, id.Num)
	if found {
		idx++
	}
	if idx >= len(r.rangeSplits) {
		idx = len(r.rangeSplits) - 1
	}
	return idx
}

func (r Range) NumPartitions() int { return len(r.rangeSplits) }
