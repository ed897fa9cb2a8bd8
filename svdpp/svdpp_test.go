package svdpp_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/Ahmed-Sermani/okapi/config"
	"github.com/Ahmed-Sermani/okapi/graph"
	"github.com/Ahmed-Sermani/okapi/svdpp"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(SvdppTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type SvdppTestSuite struct{}

func (s *SvdppTestSuite) TestUpdateValue(c *gc.C) {
	user := []float64{0.1, 0.2, 0.3}
	item := []float64{0.2, 0.1, 0.4}

	svdpp.UpdateValue(user, item, 1, 0.005, 0.01)

	expected := []float64{0.100995, 0.20049, 0.301985}
	for i := range expected {
		assertApprox(c, user[i], expected[i], 1e-9)
	}
}

func (s *SvdppTestSuite) TestUpdateBaseline(c *gc.C) {
	assertApprox(c, svdpp.UpdateBaseline(0.5, -1, 0.005, 0.01), 0.494975, 1e-9)
	assertApprox(c, svdpp.UpdateBaseline(0.5, 1, 0.005, 0.01), 0.504975, 1e-9)
}

func (s *SvdppTestSuite) TestPredictRating(c *gc.C) {
	user := []float64{0.1, 0.2, 0.3}
	item := []float64{0.2, 0.1, 0.4}
	weights := []float64{0.4, 0.6, 0.8}

	pred := svdpp.PredictRating(3, 4, 2, user, item, 10, weights, 0, 5)
	c.Assert(pred, gc.Equals, 5.0)

	pred = svdpp.PredictRating(3, -2, 2, user, item, 10, weights, 0, 5)
	assertApprox(c, pred, 3.305464, 1e-5)

	pred = svdpp.PredictRating(-3, -2, 2, user, item, 10, weights, 0, 5)
	c.Assert(pred, gc.Equals, 0.0)
}

func (s *SvdppTestSuite) TestPredictRatingWithoutImplicitFeedback(c *gc.C) {
	user := []float64{0.1, 0.2, 0.3}
	item := []float64{0.2, 0.1, 0.4}

	pred := svdpp.PredictRating(3, -1, 0.5, user, item, 0, nil, 0, 5)
	assertApprox(c, pred, 2.5+0.02+0.02+0.12, 1e-12)
}

func (s *SvdppTestSuite) TestValueSerialization(c *gc.C) {
	specs := []svdpp.Value{
		{Bias: 0.5, Factors: []float64{0.1, 0.2, 0.3}, Weights: []float64{0, math.MaxFloat64, 0.3}},
		{Bias: -1.25, Factors: []float64{0.1}},
		{},
	}

	for specIndex, spec := range specs {
		c.Logf("[spec %d]", specIndex)
		data, err := spec.MarshalBinary()
		c.Assert(err, gc.IsNil)

		var got svdpp.Value
		c.Assert(got.UnmarshalBinary(data), gc.IsNil)
		c.Assert(got, gc.DeepEquals, spec)
	}
}

func (s *SvdppTestSuite) TestValueDeserializationErrors(c *gc.C) {
	v := svdpp.Value{Bias: 1, Factors: []float64{1, 2}}
	data, err := v.MarshalBinary()
	c.Assert(err, gc.IsNil)

	var got svdpp.Value
	err = got.UnmarshalBinary(data[:8+4+8])
	c.Assert(err, gc.ErrorMatches, "factors: corrupt svdpp value")

	err = got.UnmarshalBinary(append(data, 0))
	c.Assert(err, gc.ErrorMatches, "1 trailing bytes: corrupt svdpp value")
}

func (s *SvdppTestSuite) TestEndToEnd(c *gc.C) {
	lines, rec := s.train(c, 1)
	defer func() { c.Assert(rec.Close(), gc.IsNil) }()
	c.Assert(lines, gc.HasLen, 4)
	c.Assert(lines[0], gc.Matches, `u1\t.*`)
	c.Assert(lines[1], gc.Matches, `u2\t.*`)
	c.Assert(lines[2], gc.Matches, `i1\t.*`)
	c.Assert(lines[3], gc.Matches, `i2\t.*`)

	// one initialization superstep followed by two per iteration
	c.Assert(rec.Superstep(), gc.Equals, 11)
	c.Assert(rec.Mean(), gc.Equals, 2.5)
	c.Assert(math.IsNaN(rec.RMSE()), gc.Equals, false)
	c.Assert(rec.RMSE() > 0, gc.Equals, true)
}

func (s *SvdppTestSuite) TestRunsAreReproducible(c *gc.C) {
	var runs [][]string
	for _, workers := range []int{1, 1, 4} {
		lines, rec := s.train(c, workers)
		c.Assert(rec.Close(), gc.IsNil)
		runs = append(runs, lines)
	}
	first, again, parallel := runs[0], runs[1], runs[2]

	c.Assert(again, gc.DeepEquals, first)
	c.Assert(parallel, gc.DeepEquals, first)
}

func (s *SvdppTestSuite) TestConfigValidation(c *gc.C) {
	_, err := svdpp.NewRecommender(svdpp.Config{Iterations: -1, MinRating: 5, MaxRating: 1})
	c.Assert(err, gc.ErrorMatches, "(?s)svd\\+\\+ config validation failed: .*Iterations must be positive.*MinRating must be less than MaxRating.*")
}

func (s *SvdppTestSuite) TestConfigFromParams(c *gc.C) {
	cfg, err := svdpp.ConfigFromParams(config.New(map[string]string{
		"svdpp.dim":          "2",
		"svdpp.iterations":   "5",
		"svdpp.factor_gamma": "0.02",
		"bsp.workers":        "3",
	}))
	c.Assert(err, gc.IsNil)
	c.Assert(cfg.Dim, gc.Equals, 2)
	c.Assert(cfg.Iterations, gc.Equals, 5)
	c.Assert(cfg.FactorGamma, gc.Equals, 0.02)
	c.Assert(cfg.Engine.ComputeWorkers, gc.Equals, 3)

	_, err = svdpp.ConfigFromParams(config.New(map[string]string{"svdpp.dim": "two"}))
	c.Assert(err, gc.ErrorMatches, `(?s).*parameter "svdpp.dim".*`)
}

// train runs five iterations over the 2x2 rating graph and returns the
// results formatted one line per vertex. Callers must close the returned
// recommender.
func (s *SvdppTestSuite) train(c *gc.C, workers int) ([]string, *svdpp.Recommender) {
	cfg := svdpp.Config{
		Dim:          2,
		Iterations:   5,
		BiasLambda:   0.005,
		BiasGamma:    0.01,
		FactorLambda: 0.005,
		FactorGamma:  0.01,
		MaxRating:    5,
	}
	cfg.Engine.ComputeWorkers = workers
	cfg.Engine.Seed = 42

	rec, err := svdpp.NewRecommender(cfg)
	c.Assert(err, gc.IsNil)

	ratings := []graph.Edge{
		{Src: graph.NewID(1), Dst: graph.NewID(1), Weight: 1},
		{Src: graph.NewID(1), Dst: graph.NewID(2), Weight: 2},
		{Src: graph.NewID(2), Dst: graph.NewID(1), Weight: 3},
		{Src: graph.NewID(2), Dst: graph.NewID(2), Weight: 4},
	}
	for i := range ratings {
		c.Assert(rec.AddEdge(&ratings[i]), gc.IsNil)
	}

	c.Assert(rec.Run(context.TODO()), gc.IsNil)

	var lines []string
	err = rec.Results(func(id graph.ID, fields []float64) error {
		c.Assert(fields, gc.HasLen, 3)
		lines = append(lines, fmt.Sprintf("%s\t%v", id, fields))
		return nil
	})
	c.Assert(err, gc.IsNil)
	return lines, rec
}

func assertApprox(c *gc.C, got, exp, tolerance float64) {
	c.Assert(math.Abs(got-exp) <= tolerance, gc.Equals, true, gc.Commentf("expected %v to be within %v of %v", got, tolerance, exp))
}
