/*
   SVD++ matrix factorization for rating prediction, see
   Koren, "Factorization meets the neighborhood: a multifaceted
   collaborative filtering model" (KDD 2008).

   The rating graph is bipartite: every rating becomes a user->item and an
   item->user edge annotated with the rating. Training alternates between
   users and items. Items send their bias and factors to their raters;
   each user predicts the rating, updates its own bias, factors and
   implicit feedback weights by stochastic gradient descent and answers
   with the prediction error, which the item uses to update itself in the
   following superstep.
*/
package svdpp

import (
	"context"
	"math"

	"github.com/Ahmed-Sermani/okapi/bsp"
	"github.com/Ahmed-Sermani/okapi/bsp/aggregators"
	"github.com/Ahmed-Sermani/okapi/graph"
	"golang.org/x/xerrors"
)

// Recommender trains an SVD++ model on a rating graph.
type Recommender struct {
	g   *bsp.Graph[*Value, float64]
	cfg Config

	executorFactory bsp.ExecutorFactory[*Value, float64]
	exec            *bsp.Executor[*Value, float64]
}

// NewRecommender returns a new Recommender instance using the provided
// config options.
func NewRecommender(cfg Config) (*Recommender, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("svd++ config validation failed: %w", err)
	}

	g, err := bsp.NewGraph(bsp.GraphConfig[*Value, float64]{
		EngineConfig: cfg.Engine,
		Program:      &program{cfg: cfg},
	})
	if err != nil {
		return nil, err
	}

	return &Recommender{
		cfg:             cfg,
		g:               g,
		executorFactory: bsp.NewExecutor[*Value, float64],
	}, nil
}

// Close releases any resources allocated by this Recommender instance.
func (r *Recommender) Close() error {
	return r.g.Close()
}

// SetExecutorFactory configures the recommender to use a custom executor
// factory when the Executor method is invoked.
func (r *Recommender) SetExecutorFactory(factory bsp.ExecutorFactory[*Value, float64]) {
	r.executorFactory = factory
}

// AddRating records that user rated item with the given value.
func (r *Recommender) AddRating(user, item int64, rating float64) error {
	return r.addRating(graph.UserID(user), graph.ItemID(item), rating)
}

// AddEdge records a rating from an edge list where the source is the user,
// the destination the item and the weight the rating.
func (r *Recommender) AddEdge(e *graph.Edge) error {
	return r.AddRating(e.Src.Num, e.Dst.Num, e.Weight)
}

func (r *Recommender) addRating(user, item graph.ID, rating float64) error {
	for _, id := range []graph.ID{user, item} {
		if r.g.Vertex(id) == nil {
			r.g.AddVertex(id, nil)
		}
	}
	if err := r.g.AddEdge(user, item, rating); err != nil {
		return err
	}
	return r.g.AddEdge(item, user, rating)
}

// Graph returns the underlying bsp.Graph instance.
func (r *Recommender) Graph() *bsp.Graph[*Value, float64] {
	return r.g
}

// Executor creates and returns a bsp.Executor for training the model once
// the rating graph has been loaded.
func (r *Recommender) Executor() *bsp.Executor[*Value, float64] {
	r.registerAggregators()
	r.exec = r.executorFactory(r.g, bsp.ExecutorHooks[*Value, float64]{})
	return r.exec
}

// Run trains the model until every iteration has completed.
func (r *Recommender) Run(ctx context.Context) error {
	return r.Executor().RunToCompletion(ctx)
}

func (r *Recommender) registerAggregators() {
	r.g.RegisterAggregator(aggrRatingSum, aggregators.NewFloat64Aggregator)
	r.g.RegisterAggregator(aggrRatingCount, aggregators.NewIntAggregator)
	r.g.RegisterAggregator(aggrSSE, aggregators.NewFloat64Aggregator)
	r.g.RegisterAggregator(aggrPredictions, aggregators.NewIntAggregator)
	r.g.RegisterAggregator(aggrClamped, aggregators.NewIntAggregator)
	r.g.RegisterPersistentAggregator(aggrMean, aggregators.NewFloat64Aggregator)
	r.g.RegisterPersistentAggregator(aggrRMSE, aggregators.NewFloat64Aggregator)
	r.g.RegisterPersistentAggregator(aggrIteration, aggregators.NewIntAggregator)
}

// Results invokes visitFn for every vertex in ascending id order (users
// before items). The fields are the bias followed by the latent factors.
func (r *Recommender) Results(visitFn func(id graph.ID, fields []float64) error) error {
	return r.g.VisitVertices(func(v *bsp.Vertex[*Value, float64]) error {
		val := v.Value()
		if val == nil {
			return visitFn(v.ID(), nil)
		}
		fields := make([]float64, 0, 1+len(val.Factors))
		fields = append(fields, val.Bias)
		fields = append(fields, val.Factors...)
		return visitFn(v.ID(), fields)
	})
}

// Superstep returns the number of supersteps executed so far.
func (r *Recommender) Superstep() int { return r.g.Superstep() }

// Mean returns the global mean rating computed in the first superstep.
func (r *Recommender) Mean() float64 {
	mean, _ := r.g.AggregatedValue(aggrMean).(float64)
	return mean
}

// RMSE returns the root mean squared training error of the last iteration
// or NaN before the first one has completed.
func (r *Recommender) RMSE() float64 {
	if it, _ := r.g.AggregatedValue(aggrIteration).(int); it == 0 {
		return math.NaN()
	}
	rmse, _ := r.g.AggregatedValue(aggrRMSE).(float64)
	return rmse
}
