/*
   Pairwise learning to rank from implicit feedback.

   Users and items share one id space; items are the ids inside the
   configured item range. Every iteration takes three supersteps: users
   sample relevant items (their own edges) and irrelevant ones (other ids of
   the item range) and ask them for their factors, items answer, and users
   apply a Bayesian personalized ranking step on each (relevant, irrelevant)
   pair and send the items their share of the gradient.
*/
package ranking

import (
	"context"
	"math"

	"github.com/Ahmed-Sermani/okapi/bsp"
	"github.com/Ahmed-Sermani/okapi/bsp/aggregators"
	"github.com/Ahmed-Sermani/okapi/graph"
	"golang.org/x/xerrors"
)

// Value is the state of a user or item vertex.
type Value struct {
	Factors []float64
}

// Learner trains latent factors for ranking items per user.
type Learner struct {
	g   *bsp.Graph[*Value, float64]
	cfg Config

	executorFactory bsp.ExecutorFactory[*Value, float64]
}

// NewLearner returns a new Learner instance using the provided config
// options.
func NewLearner(cfg Config) (*Learner, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("ranking config validation failed: %w", err)
	}

	g, err := bsp.NewGraph(bsp.GraphConfig[*Value, float64]{
		EngineConfig: cfg.Engine,
		Program:      &program{cfg: cfg},
	})
	if err != nil {
		return nil, err
	}

	return &Learner{
		cfg:             cfg,
		g:               g,
		executorFactory: bsp.NewExecutor[*Value, float64],
	}, nil
}

// Close releases any resources allocated by this Learner instance.
func (l *Learner) Close() error {
	return l.g.Close()
}

// SetExecutorFactory configures the learner to use a custom executor
// factory when the Executor method is invoked.
func (l *Learner) SetExecutorFactory(factory bsp.ExecutorFactory[*Value, float64]) {
	l.executorFactory = factory
}

// AddEdge records an interaction of user e.Src with item e.Dst.
func (l *Learner) AddEdge(e *graph.Edge) error {
	l.ensureVertex(e.Src)
	l.ensureVertex(e.Dst)
	return l.g.AddEdge(e.Src, e.Dst, e.Weight)
}

func (l *Learner) ensureVertex(id graph.ID) {
	if l.g.Vertex(id) == nil {
		l.g.AddVertex(id, nil)
	}
}

// Graph returns the underlying bsp.Graph instance.
func (l *Learner) Graph() *bsp.Graph[*Value, float64] {
	return l.g
}

// Executor creates and returns a bsp.Executor for training once the graph
// has been loaded. Item ids of the configured range that are missing from
// the graph are added so that they can be sampled as irrelevant items.
func (l *Learner) Executor() *bsp.Executor[*Value, float64] {
	for num := l.cfg.MinItemID; ; num++ {
		l.ensureVertex(graph.NewID(num))
		if num == l.cfg.MaxItemID {
			break
		}
	}

	l.g.RegisterAggregator(aggrLoss, aggregators.NewFloat64Aggregator)
	l.g.RegisterAggregator(aggrPairs, aggregators.NewIntAggregator)
	l.g.RegisterAggregator(aggrShortfall, aggregators.NewIntAggregator)
	l.g.RegisterPersistentAggregator(aggrLastLoss, aggregators.NewFloat64Aggregator)
	l.g.RegisterPersistentAggregator(aggrIteration, aggregators.NewIntAggregator)
	return l.executorFactory(l.g, bsp.ExecutorHooks[*Value, float64]{})
}

// Run trains the model until every iteration has completed.
func (l *Learner) Run(ctx context.Context) error {
	return l.Executor().RunToCompletion(ctx)
}

// Results invokes visitFn with the factors of every vertex in ascending id
// order.
func (l *Learner) Results(visitFn func(id graph.ID, fields []float64) error) error {
	return l.g.VisitVertices(func(v *bsp.Vertex[*Value, float64]) error {
		if v.Value() == nil {
			return visitFn(v.ID(), nil)
		}
		return visitFn(v.ID(), v.Value().Factors)
	})
}

// Superstep returns the number of supersteps executed so far.
func (l *Learner) Superstep() int { return l.g.Superstep() }

// Loss returns the mean pairwise loss of the last completed iteration or NaN
// before the first one.
func (l *Learner) Loss() float64 {
	if it, _ := l.g.AggregatedValue(aggrIteration).(int); it == 0 {
		return math.NaN()
	}
	loss, _ := l.g.AggregatedValue(aggrLastLoss).(float64)
	return loss
}
