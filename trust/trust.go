/*
   Trust propagation in the manner of SybilRank
   (Cao et al., "Aiding the Detection of Fake Accounts in Large Scale
   Social Online Services", NSDI 2012).

   A fixed amount of trust is split among a set of trusted seed vertices
   and then spread by a short random walk: every round each vertex pushes
   its score to its neighbors, proportionally to the edge weights. The walk
   is stopped after O(log N) rounds, before it converges to the stationary
   distribution, so that trust stays concentrated in the region of the
   graph around the seeds. Finally every score is divided by the weighted
   degree of its vertex, which ranks vertices by how much trust they
   received per unit of connectivity. Fake accounts, which are poorly
   connected to the honest region, end up with low scores.
*/
package trust

import (
	"context"

	"github.com/Ahmed-Sermani/okapi/bsp"
	"github.com/Ahmed-Sermani/okapi/bsp/aggregators"
	"github.com/Ahmed-Sermani/okapi/config"
	"github.com/Ahmed-Sermani/okapi/graph"
	"golang.org/x/xerrors"
)

// Value is the state of a vertex.
type Value struct {
	Score  float64
	Degree float64
	Seed   bool
}

// Propagator executes trust propagation on a weighted graph.
type Propagator struct {
	g        *bsp.Graph[*Value, float64]
	cfg      Config
	numSeeds int

	executorFactory bsp.ExecutorFactory[*Value, float64]
}

// NewPropagator returns a new Propagator instance using the provided config
// options.
func NewPropagator(cfg Config) (*Propagator, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("trust propagator config validation failed: %w", err)
	}

	g, err := bsp.NewGraph(bsp.GraphConfig[*Value, float64]{
		EngineConfig: cfg.Engine,
		Program:      &program{cfg: cfg},
	})
	if err != nil {
		return nil, err
	}

	return &Propagator{
		cfg:             cfg,
		g:               g,
		executorFactory: bsp.NewExecutor[*Value, float64],
	}, nil
}

// Close releases any resources allocated by this Propagator instance.
func (p *Propagator) Close() error {
	return p.g.Close()
}

// SetExecutorFactory configures the propagator to use a custom executor
// factory when the Executor method is invoked.
func (p *Propagator) SetExecutorFactory(factory bsp.ExecutorFactory[*Value, float64]) {
	p.executorFactory = factory
}

// AddVertex inserts a new vertex to the graph with the given id. Existing
// vertices are left untouched.
func (p *Propagator) AddVertex(id graph.ID) {
	if p.g.Vertex(id) == nil {
		p.g.AddVertex(id, new(Value))
	}
}

// AddEdge inserts a directed edge from e.Src to e.Dst weighted by e.Weight.
// Self-loops are ignored.
func (p *Propagator) AddEdge(e *graph.Edge) error {
	if e.Src == e.Dst {
		return nil
	}
	p.AddVertex(e.Src)
	p.AddVertex(e.Dst)
	return p.g.AddEdge(e.Src, e.Dst, e.Weight)
}

// AddSeed marks id as a trusted seed, adding the vertex if needed.
func (p *Propagator) AddSeed(id graph.ID) {
	p.AddVertex(id)
	if v := p.g.Vertex(id).Value(); !v.Seed {
		v.Seed = true
		p.numSeeds++
	}
}

// SetSeeds marks every id in ids as a trusted seed.
func (p *Propagator) SetSeeds(ids []graph.ID) {
	for _, id := range ids {
		p.AddSeed(id)
	}
}

// Graph returns the underlying bsp.Graph instance.
func (p *Propagator) Graph() *bsp.Graph[*Value, float64] {
	return p.g
}

// Executor creates and returns a bsp.Executor for running the propagation
// once the graph layout and the seeds have been set up.
func (p *Propagator) Executor() *bsp.Executor[*Value, float64] {
	p.g.RegisterAggregator(aggrSeeds, aggregators.NewIntAggregator)
	p.g.RegisterPersistentAggregator(aggrSeedTrust, aggregators.NewFloat64Aggregator)
	p.g.RegisterPersistentAggregator(aggrRounds, aggregators.NewIntAggregator)
	p.g.RegisterPersistentAggregator(aggrPhase, aggregators.NewIntAggregator)
	return p.executorFactory(p.g, bsp.ExecutorHooks[*Value, float64]{})
}

// Run propagates trust until the scores have been normalized.
func (p *Propagator) Run(ctx context.Context) error {
	if p.numSeeds == 0 {
		return &config.Error{Param: "trust.seeds", Reason: "at least one seed vertex is required"}
	}
	return p.Executor().RunToCompletion(ctx)
}

// Results invokes visitFn with the score of every vertex in ascending id
// order.
func (p *Propagator) Results(visitFn func(id graph.ID, fields []float64) error) error {
	return p.g.VisitVertices(func(v *bsp.Vertex[*Value, float64]) error {
		return visitFn(v.ID(), []float64{v.Value().Score})
	})
}

// Scores invokes visitFn with the score of every vertex in ascending id
// order.
func (p *Propagator) Scores(visitFn func(id graph.ID, score float64) error) error {
	return p.g.VisitVertices(func(v *bsp.Vertex[*Value, float64]) error {
		return visitFn(v.ID(), v.Value().Score)
	})
}

// Superstep returns the number of supersteps executed so far.
func (p *Propagator) Superstep() int { return p.g.Superstep() }

// Rounds returns the number of propagation rounds of the current run.
func (p *Propagator) Rounds() int {
	rounds, _ := p.g.AggregatedValue(aggrRounds).(int)
	return rounds
}
