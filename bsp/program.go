package bsp

import (
	"math/rand"

	"github.com/Ahmed-Sermani/okapi/bsp/message"
	"github.com/Ahmed-Sermani/okapi/graph"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Program is the vertex-centric part of an algorithm. Compute is invoked
// once per superstep for every vertex that is active or has pending
// messages. Calls for vertices of the same shard happen sequentially in
// ascending vertex id order.
type Program[VT, ET any] interface {
	Compute(sc *StepContext[VT, ET], v *Vertex[VT, ET], msgIt message.Iterator) error
}

// ComputeFunc is a function that a graph instance invokes on each vertex when
// executing a superstep.
type ComputeFunc[VT, ET any] func(sc *StepContext[VT, ET], v *Vertex[VT, ET], msgIt message.Iterator) error

// Compute implements Program.
func (f ComputeFunc[VT, ET]) Compute(sc *StepContext[VT, ET], v *Vertex[VT, ET], msgIt message.Iterator) error {
	return f(sc, v, msgIt)
}

// MasterProgram is implemented by algorithms that need a global
// coordination step. MasterCompute runs once per superstep, after every
// vertex finished its compute call and the aggregators have been reduced.
type MasterProgram interface {
	MasterCompute(m *Master) error
}

// MasterFunc adapts a function to the MasterProgram interface.
type MasterFunc func(m *Master) error

// MasterCompute implements MasterProgram.
func (f MasterFunc) MasterCompute(m *Master) error { return f(m) }

// StepContext gives compute functions access to the engine while a
// superstep is executing. Each shard owns one StepContext; it must not be
// retained after Compute returns.
type StepContext[VT, ET any] struct {
	g  *Graph[VT, ET]
	sh *shard[VT, ET]

	cur        *Vertex[VT, ET]
	rnd        *rand.Rand
	randSeeded bool
}

// Superstep returns the index of the executing superstep.
func (sc *StepContext[VT, ET]) Superstep() int { return sc.g.superstep }

// NumVertices returns the number of vertices in the graph.
func (sc *StepContext[VT, ET]) NumVertices() int { return len(sc.g.vertices) }

// NumEdges returns the number of edges in the graph.
func (sc *StepContext[VT, ET]) NumEdges() int { return sc.g.numEdges }

// Logger returns the engine logger.
func (sc *StepContext[VT, ET]) Logger() *logrus.Entry { return sc.g.logger }

// SendMessage queues msg for delivery to the vertex with the specified
// destination ID. Recipients process the message in the next superstep.
func (sc *StepContext[VT, ET]) SendMessage(dst graph.ID, msg message.Message) error {
	dstVertex := sc.g.vertices[dst]
	if dstVertex == nil {
		return xerrors.Errorf("can't deliver message to %q: %w", dst, ErrInvalidMessageDestination)
	}

	sc.sh.outbox[dstVertex.shard] = append(sc.sh.outbox[dstVertex.shard], envelope[VT, ET]{
		src: sc.cur.id,
		dst: dstVertex,
		msg: msg,
	})
	return nil
}

// BroadcastToNeighbors sends msg along every out-edge of v. Neighbors will
// receive the message in the next super-step.
func (sc *StepContext[VT, ET]) BroadcastToNeighbors(v *Vertex[VT, ET], msg message.Message) error {
	for _, e := range v.edges {
		if err := sc.SendMessage(e.dstID, msg); err != nil {
			return err
		}
	}
	return nil
}

// Aggregate contributes val to the named aggregator. The reduced value
// becomes visible to every vertex in the next superstep. Using a name that
// was never registered aborts the superstep with ErrUnknownAggregator.
func (sc *StepContext[VT, ET]) Aggregate(name string, val any) {
	aggr := sc.sh.aggregators[name]
	if aggr == nil {
		panic(xerrors.Errorf("aggregate %q: %w", name, ErrUnknownAggregator))
	}
	aggr.Aggregate(val)
}

// AggregatedValue returns the value of the named aggregator as frozen at
// the end of the previous superstep, or nil if no such aggregator exists.
func (sc *StepContext[VT, ET]) AggregatedValue(name string) any {
	return sc.g.aggregators.value(name)
}

// Rand returns a random generator seeded from the job seed, the id of the
// vertex being computed and the superstep. The same inputs always produce
// the same sequence.
func (sc *StepContext[VT, ET]) Rand() *rand.Rand {
	if !sc.randSeeded {
		sc.rnd.Seed(vertexSeed(sc.g.seed, sc.cur.id, sc.g.superstep))
		sc.randSeeded = true
	}
	return sc.rnd
}

// Master is handed to MasterProgram.MasterCompute after each superstep.
type Master struct {
	superstep    int
	numVertices  int
	numEdges     int
	activeInStep int
	aggregators  *aggregatorRegistry
	logger       *logrus.Entry

	halted      bool
	keepRunning bool
}

// Superstep returns the index of the superstep that just completed.
func (m *Master) Superstep() int { return m.superstep }

func (m *Master) NumVertices() int { return m.numVertices }

func (m *Master) NumEdges() int { return m.numEdges }

// ActiveInStep returns the number of vertices computed in the superstep.
func (m *Master) ActiveInStep() int { return m.activeInStep }

func (m *Master) Logger() *logrus.Entry { return m.logger }

// AggregatedValue returns the reduced value of the named aggregator for the
// superstep that just completed.
func (m *Master) AggregatedValue(name string) any {
	return m.aggregators.value(name)
}

// SetAggregatedValue overrides the named aggregator. Vertices observe the
// new value in the next superstep.
func (m *Master) SetAggregatedValue(name string, val any) error {
	return m.aggregators.set(name, val)
}

// Halt terminates the run after this superstep.
func (m *Master) Halt() { m.halted = true }

// KeepRunning re-activates every vertex for the next superstep.
func (m *Master) KeepRunning() { m.keepRunning = true }

// splitmix64 is the finalizer of the SplitMix64 generator.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

func vertexSeed(seed int64, id graph.ID, superstep int) int64 {
	x := splitmix64(uint64(seed) ^ id.Hash())
	return int64(splitmix64(x ^ uint64(superstep)))
}
