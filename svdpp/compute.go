package svdpp

import (
	"math"

	"github.com/Ahmed-Sermani/okapi/bsp"
	"github.com/Ahmed-Sermani/okapi/bsp/message"
	"github.com/Ahmed-Sermani/okapi/graph"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
)

// ErrUnexpectedMessage is returned when a vertex receives a message it does
// not know how to process.
var ErrUnexpectedMessage = xerrors.New("unexpected message")

// Aggregator names.
const (
	aggrRatingSum   = "svdpp.rating_sum"
	aggrRatingCount = "svdpp.rating_count"
	aggrMean        = "svdpp.mean"
	aggrSSE         = "svdpp.sse"
	aggrPredictions = "svdpp.predictions"
	aggrClamped     = "svdpp.clamped"
	aggrRMSE        = "svdpp.rmse"
	aggrIteration   = "svdpp.iteration"
)

// ItemFactorsMessage carries the current parameters of an item to one of its
// raters together with the rating on the connecting edge.
type ItemFactorsMessage struct {
	Bias    float64
	Factors []float64
	Rating  float64
}

func (ItemFactorsMessage) Type() string { return "item_factors" }

// UserUpdateMessage is the reply of a user to an item: the prediction error
// and the effective user vector the item gradient is computed against.
type UserUpdateMessage struct {
	Error float64
	User  []float64
}

func (UserUpdateMessage) Type() string { return "user_update" }

// program implements bsp.Program and bsp.MasterProgram for SVD++.
type program struct {
	cfg Config
}

func (p *program) Compute(sc *bsp.StepContext[*Value, float64], v *bsp.Vertex[*Value, float64], msgIt message.Iterator) error {
	superstep := sc.Superstep()
	if superstep == 0 {
		return p.init(sc, v)
	}

	switch v.ID().Kind {
	case graph.User:
		if superstep%2 == 1 {
			return p.computeUser(sc, v, msgIt)
		}
	case graph.Item:
		if superstep%2 == 0 {
			return p.computeItem(sc, v, msgIt)
		}
	}
	v.VoteToHalt()
	return nil
}

func (p *program) init(sc *bsp.StepContext[*Value, float64], v *bsp.Vertex[*Value, float64]) error {
	rnd := sc.Rand()
	val := &Value{Factors: make([]float64, p.cfg.Dim)}
	for i := range val.Factors {
		val.Factors[i] = rnd.Float64() * p.cfg.InitScale
	}
	v.SetValue(val)
	defer v.VoteToHalt()

	if v.ID().Kind == graph.User {
		val.Weights = make([]float64, p.cfg.Dim)
		for i := range val.Weights {
			val.Weights[i] = rnd.Float64() * p.cfg.InitScale
		}
		for _, e := range v.Edges() {
			sc.Aggregate(aggrRatingSum, e.Value())
			sc.Aggregate(aggrRatingCount, 1)
		}
		return nil
	}
	return p.sendFactors(sc, v)
}

// sendFactors sends the item parameters to every user that rated it.
func (p *program) sendFactors(sc *bsp.StepContext[*Value, float64], v *bsp.Vertex[*Value, float64]) error {
	val := v.Value()
	factors := slices.Clone(val.Factors)
	for _, e := range v.Edges() {
		msg := ItemFactorsMessage{Bias: val.Bias, Factors: factors, Rating: e.Value()}
		if err := sc.SendMessage(e.DstID(), msg); err != nil {
			return err
		}
	}
	return nil
}

func (p *program) computeUser(sc *bsp.StepContext[*Value, float64], v *bsp.Vertex[*Value, float64], msgIt message.Iterator) error {
	var (
		val        = v.Value()
		mean, _    = sc.AggregatedValue(aggrMean).(float64)
		numRatings = len(v.Edges())
		scale      = 1 / math.Sqrt(float64(numRatings))
		weightGrad = make([]float64, len(val.Factors))
	)
	for msgIt.Next() {
		msg, ok := msgIt.Message().(ItemFactorsMessage)
		if !ok {
			return xerrors.Errorf("user received %q from %q: %w", msgIt.Message().Type(), msgIt.Sender(), ErrUnexpectedMessage)
		}

		pred, clamped := predict(mean, val.Bias, msg.Bias, val.Factors, msg.Factors, numRatings, val.Weights, p.cfg.MinRating, p.cfg.MaxRating)
		errRating := msg.Rating - pred
		eff := effectiveUserVector(val.Factors, val.Weights, numRatings)

		val.Bias = UpdateBaseline(val.Bias, errRating, p.cfg.BiasGamma, p.cfg.BiasLambda)
		UpdateValue(val.Factors, msg.Factors, errRating, p.cfg.FactorGamma, p.cfg.FactorLambda)
		for i, q := range msg.Factors {
			weightGrad[i] = q * scale
		}
		UpdateValue(val.Weights, weightGrad, errRating, p.cfg.FactorGamma, p.cfg.FactorLambda)

		if err := sc.SendMessage(msgIt.Sender(), UserUpdateMessage{Error: errRating, User: eff}); err != nil {
			return err
		}

		sc.Aggregate(aggrSSE, errRating*errRating)
		sc.Aggregate(aggrPredictions, 1)
		if clamped {
			sc.Aggregate(aggrClamped, 1)
		}
	}
	if err := msgIt.Error(); err != nil {
		return err
	}
	v.VoteToHalt()
	return nil
}

func (p *program) computeItem(sc *bsp.StepContext[*Value, float64], v *bsp.Vertex[*Value, float64], msgIt message.Iterator) error {
	val := v.Value()
	for msgIt.Next() {
		msg, ok := msgIt.Message().(UserUpdateMessage)
		if !ok {
			return xerrors.Errorf("item received %q from %q: %w", msgIt.Message().Type(), msgIt.Sender(), ErrUnexpectedMessage)
		}
		val.Bias = UpdateBaseline(val.Bias, msg.Error, p.cfg.BiasGamma, p.cfg.BiasLambda)
		UpdateValue(val.Factors, msg.User, msg.Error, p.cfg.FactorGamma, p.cfg.FactorLambda)
	}
	if err := msgIt.Error(); err != nil {
		return err
	}

	v.VoteToHalt()
	if sc.Superstep()/2 < p.cfg.Iterations {
		return p.sendFactors(sc, v)
	}
	return nil
}

func (p *program) MasterCompute(m *bsp.Master) error {
	superstep := m.Superstep()
	switch {
	case superstep == 0:
		sum, _ := m.AggregatedValue(aggrRatingSum).(float64)
		count, _ := m.AggregatedValue(aggrRatingCount).(int)
		var mean float64
		if count > 0 {
			mean = sum / float64(count)
		}
		m.Logger().WithFields(logrus.Fields{
			"ratings": count,
			"mean":    mean,
		}).Info("svd++ initialized")
		return m.SetAggregatedValue(aggrMean, mean)

	case superstep%2 == 1:
		sse, _ := m.AggregatedValue(aggrSSE).(float64)
		predictions, _ := m.AggregatedValue(aggrPredictions).(int)
		var rmse float64
		if predictions > 0 {
			rmse = math.Sqrt(sse / float64(predictions))
		}
		if clamped, _ := m.AggregatedValue(aggrClamped).(int); clamped > 0 {
			m.Logger().WithFields(logrus.Fields{
				"superstep": superstep,
				"clamped":   clamped,
			}).Debug("predictions clamped to the rating range")
		}
		m.Logger().WithFields(logrus.Fields{
			"iteration": superstep/2 + 1,
			"rmse":      rmse,
		}).Info("svd++ iteration error")
		return m.SetAggregatedValue(aggrRMSE, rmse)

	default:
		iteration := superstep / 2
		if err := m.SetAggregatedValue(aggrIteration, iteration); err != nil {
			return err
		}
		if iteration >= p.cfg.Iterations {
			m.Halt()
		}
	}
	return nil
}
