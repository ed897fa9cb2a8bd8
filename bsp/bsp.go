/*
   Package bsp implements the BSP https://en.wikipedia.org/wiki/Bulk_synchronous_parallel computing model to aid in
   processing graph data
*/
package bsp

import (
	"fmt"

	"golang.org/x/xerrors"
)

var (
	ErrUnknownEdgeSource = xerrors.New("source vertex is not part of the graph")

	// ErrInvalidMessageDestination is returned by calls to SendMessage and
	// BroadcastToNeighbors when the destination cannot be resolved to a
	// vertex of the graph.
	ErrInvalidMessageDestination = xerrors.New("invalid message destination")

	// ErrUnknownAggregator is returned (or raised from compute functions)
	// when an aggregator name was never registered.
	ErrUnknownAggregator = xerrors.New("unknown aggregator")

	// ErrEngineTimeout is matched by every *EngineTimeoutError.
	ErrEngineTimeout = xerrors.New("engine limit exceeded")
)

// EngineTimeoutError is returned by an Executor when a run exceeds its
// superstep or wall-clock budget.
type EngineTimeoutError struct {
	// LastSuperstep is the last fully completed superstep or -1 if none
	// completed.
	LastSuperstep int
	Reason        string
}

func (e *EngineTimeoutError) Error() string {
	return fmt.Sprintf("bsp: %s (last completed superstep: %d)", e.Reason, e.LastSuperstep)
}

func (e *EngineTimeoutError) Is(target error) bool { return target == ErrEngineTimeout }

type Aggregator interface {
	Type() string
	Set(val any)
	Get() any
	// updates the Aggregator value based on the current value.
	Aggregate(val any)
}

// AggregatorFactory returns a new Aggregator instance whose value is the
// identity element of its reduction.
type AggregatorFactory func() Aggregator
