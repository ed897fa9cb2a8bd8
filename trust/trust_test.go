package trust_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/Ahmed-Sermani/okapi/bsp"
	"github.com/Ahmed-Sermani/okapi/config"
	"github.com/Ahmed-Sermani/okapi/graph"
	"github.com/Ahmed-Sermani/okapi/trust"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(TrustTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type TrustTestSuite struct{}

// sybilGraph is a small social graph with symmetric weighted edges.
var sybilGraph = []graph.Edge{
	edge(1, 2, 5), edge(2, 1, 5),
	edge(2, 4, 4), edge(4, 2, 4),
	edge(4, 5, 3), edge(5, 4, 3),
	edge(3, 5, 3), edge(5, 3, 3),
	edge(1, 3, 2), edge(3, 1, 2),
	edge(3, 7, 1), edge(7, 3, 1),
	edge(6, 7, 3), edge(7, 6, 3),
	edge(6, 9, 3), edge(9, 6, 3),
	edge(8, 9, 2), edge(9, 8, 2),
	edge(7, 8, 3), edge(8, 7, 3),
}

func (s *TrustTestSuite) TestEndToEnd(c *gc.C) {
	p := s.newPropagator(c, 1)
	defer func() { c.Assert(p.Close(), gc.IsNil) }()

	c.Assert(p.Run(context.TODO()), gc.IsNil)
	c.Assert(p.Rounds(), gc.Equals, 4)
	// init, seeding, four propagation rounds and normalization
	c.Assert(p.Superstep(), gc.Equals, 7)

	lines := results(c, p)
	c.Assert(lines, gc.HasLen, 9)
	for i, line := range lines {
		c.Assert(line, gc.Matches, fmt.Sprintf(`%d\t.*`, i+1))
	}

	err := p.Scores(func(id graph.ID, score float64) error {
		c.Assert(score >= 0 && !math.IsInf(score, 0) && !math.IsNaN(score), gc.Equals, true, gc.Commentf("vertex %v", id))
		return nil
	})
	c.Assert(err, gc.IsNil)
}

func (s *TrustTestSuite) TestMassConservation(c *gc.C) {
	p := s.newPropagator(c, 2)
	defer func() { c.Assert(p.Close(), gc.IsNil) }()

	sums := make(map[int]float64)
	p.SetExecutorFactory(func(g *bsp.Graph[*trust.Value, float64], cb bsp.ExecutorHooks[*trust.Value, float64]) *bsp.Executor[*trust.Value, float64] {
		cb.PostStep = func(_ context.Context, g *bsp.Graph[*trust.Value, float64], _ int) error {
			var sum float64
			for _, v := range g.Vertices() {
				sum += v.Value().Score
			}
			sums[g.Superstep()] = sum
			return nil
		}
		return bsp.NewExecutor(g, cb)
	})
	c.Assert(p.Run(context.TODO()), gc.IsNil)

	for superstep := 1; superstep <= p.Rounds()+1; superstep++ {
		c.Assert(math.Abs(sums[superstep]-9) < 1e-9, gc.Equals, true, gc.Commentf("superstep %d: total trust %v", superstep, sums[superstep]))
	}
}

func (s *TrustTestSuite) TestMassConservationWithDecay(c *gc.C) {
	cfg := trust.Config{Decay: 0.3, TotalTrust: 100, Rounds: 6}
	p, err := trust.NewPropagator(cfg)
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(p.Close(), gc.IsNil) }()
	load(c, p)
	p.SetSeeds([]graph.ID{graph.NewID(1)})

	var sums []float64
	p.SetExecutorFactory(func(g *bsp.Graph[*trust.Value, float64], cb bsp.ExecutorHooks[*trust.Value, float64]) *bsp.Executor[*trust.Value, float64] {
		cb.PostStep = func(_ context.Context, g *bsp.Graph[*trust.Value, float64], _ int) error {
			if g.Superstep() >= 1 && g.Superstep() <= 7 {
				var sum float64
				for _, v := range g.Vertices() {
					sum += v.Value().Score
				}
				sums = append(sums, sum)
			}
			return nil
		}
		return bsp.NewExecutor(g, cb)
	})
	c.Assert(p.Run(context.TODO()), gc.IsNil)

	c.Assert(sums, gc.HasLen, 7)
	for i, sum := range sums {
		c.Assert(math.Abs(sum-100) < 1e-9, gc.Equals, true, gc.Commentf("superstep %d: total trust %v", i+1, sum))
	}
}

func (s *TrustTestSuite) TestDanglingVertexKeepsItsTrust(c *gc.C) {
	p, err := trust.NewPropagator(trust.Config{Rounds: 2})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(p.Close(), gc.IsNil) }()

	e := edge(1, 2, 1)
	c.Assert(p.AddEdge(&e), gc.IsNil)
	p.AddSeed(graph.NewID(1))
	c.Assert(p.Run(context.TODO()), gc.IsNil)

	scores := make(map[graph.ID]float64)
	err = p.Scores(func(id graph.ID, score float64) error {
		scores[id] = score
		return nil
	})
	c.Assert(err, gc.IsNil)
	c.Assert(scores, gc.DeepEquals, map[graph.ID]float64{
		graph.NewID(1): 0,
		graph.NewID(2): 2,
	})
}

func (s *TrustTestSuite) TestScoresAreNormalizedByDegree(c *gc.C) {
	p, err := trust.NewPropagator(trust.Config{Rounds: 1})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(p.Close(), gc.IsNil) }()

	for _, e := range []graph.Edge{edge(1, 2, 2), edge(2, 1, 2)} {
		e := e
		c.Assert(p.AddEdge(&e), gc.IsNil)
	}
	p.AddSeed(graph.NewID(1))
	c.Assert(p.Run(context.TODO()), gc.IsNil)

	// vertex 1 starts with all the trust and hands it over to vertex 2 in
	// a single round; the degree of both vertices is 2
	scores := make(map[graph.ID]float64)
	err = p.Scores(func(id graph.ID, score float64) error {
		scores[id] = score
		return nil
	})
	c.Assert(err, gc.IsNil)
	c.Assert(scores, gc.DeepEquals, map[graph.ID]float64{
		graph.NewID(1): 0,
		graph.NewID(2): 1,
	})
}

func (s *TrustTestSuite) TestFinalScoreIsLastRoundOverDegree(c *gc.C) {
	p := s.newPropagator(c, 2)
	defer func() { c.Assert(p.Close(), gc.IsNil) }()

	propagated := make(map[int]map[graph.ID]float64)
	p.SetExecutorFactory(func(g *bsp.Graph[*trust.Value, float64], cb bsp.ExecutorHooks[*trust.Value, float64]) *bsp.Executor[*trust.Value, float64] {
		cb.PostStep = func(_ context.Context, g *bsp.Graph[*trust.Value, float64], _ int) error {
			step := make(map[graph.ID]float64)
			for id, v := range g.Vertices() {
				step[id] = v.Value().Score
			}
			propagated[g.Superstep()] = step
			return nil
		}
		return bsp.NewExecutor(g, cb)
	})
	c.Assert(p.Run(context.TODO()), gc.IsNil)

	degrees := make(map[graph.ID]float64)
	for i := range sybilGraph {
		degrees[sybilGraph[i].Src] += sybilGraph[i].Weight
	}

	last := propagated[p.Rounds()+1]
	c.Assert(last, gc.HasLen, 9)
	final := make(map[graph.ID]float64)
	err := p.Scores(func(id graph.ID, score float64) error {
		final[id] = score
		return nil
	})
	c.Assert(err, gc.IsNil)
	c.Assert(final, gc.HasLen, 9)
	for id, score := range final {
		c.Assert(degrees[id] > 0, gc.Equals, true)
		c.Assert(score, gc.Equals, last[id]/degrees[id], gc.Commentf("vertex %v", id))
	}
	c.Assert(math.Abs(final[graph.NewID(1)]-0.24175305042651982) < 1e-12, gc.Equals, true, gc.Commentf("vertex 1: %v", final[graph.NewID(1)]))
	c.Assert(math.Abs(final[graph.NewID(9)]-0.030306122448979587) < 1e-12, gc.Equals, true, gc.Commentf("vertex 9: %v", final[graph.NewID(9)]))
}

func (s *TrustTestSuite) TestRunsAreReproducible(c *gc.C) {
	var runs [][]string
	for _, workers := range []int{1, 1, 4} {
		p := s.newPropagator(c, workers)
		c.Assert(p.Run(context.TODO()), gc.IsNil)
		runs = append(runs, results(c, p))
		c.Assert(p.Close(), gc.IsNil)
	}
	c.Assert(runs[1], gc.DeepEquals, runs[0])
	c.Assert(runs[2], gc.DeepEquals, runs[0])
}

func (s *TrustTestSuite) TestSeedsAreRequired(c *gc.C) {
	p, err := trust.NewPropagator(trust.Config{})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(p.Close(), gc.IsNil) }()
	load(c, p)

	err = p.Run(context.TODO())
	c.Assert(err, gc.ErrorMatches, `config: parameter "trust.seeds": at least one seed vertex is required`)
	c.Assert(xerrors.Is(err, config.ErrConfiguration), gc.Equals, true)

	// the master refuses to start as well when the executor is used
	// directly
	err = p.Executor().RunToCompletion(context.TODO())
	c.Assert(xerrors.Is(err, config.ErrConfiguration), gc.Equals, true)
}

func (s *TrustTestSuite) TestConfigValidation(c *gc.C) {
	_, err := trust.NewPropagator(trust.Config{Decay: 1, Rounds: -1})
	c.Assert(err, gc.ErrorMatches, `(?s)trust propagator config validation failed: .*Decay must be in the \[0, 1\) range.*Rounds must not be negative.*`)

	cfg, err := trust.ConfigFromParams(config.New(map[string]string{
		"trust.decay":  "0.25",
		"trust.rounds": "3",
	}))
	c.Assert(err, gc.IsNil)
	c.Assert(cfg.Decay, gc.Equals, 0.25)
	c.Assert(cfg.Rounds, gc.Equals, 3)
}

func (s *TrustTestSuite) newPropagator(c *gc.C, workers int) *trust.Propagator {
	var cfg trust.Config
	cfg.Engine.ComputeWorkers = workers
	p, err := trust.NewPropagator(cfg)
	c.Assert(err, gc.IsNil)
	load(c, p)
	p.SetSeeds([]graph.ID{graph.NewID(1), graph.NewID(2), graph.NewID(5)})
	return p
}

func load(c *gc.C, p *trust.Propagator) {
	for i := range sybilGraph {
		c.Assert(p.AddEdge(&sybilGraph[i]), gc.IsNil)
	}
}

func results(c *gc.C, p *trust.Propagator) []string {
	var lines []string
	err := p.Results(func(id graph.ID, fields []float64) error {
		lines = append(lines, fmt.Sprintf("%s\t%v", id, fields))
		return nil
	})
	c.Assert(err, gc.IsNil)
	return lines
}

func edge(src, dst int64, weight float64) graph.Edge {
	return graph.Edge{Src: graph.NewID(src), Dst: graph.NewID(dst), Weight: weight}
}
