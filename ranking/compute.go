package ranking

import (
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

const (
	aggrLoss      = "ranking.loss"
	aggrPairs     = "ranking.pairs"
	aggrShortfall = "ranking.sampling_shortfall"
	aggrIteration = "ranking.iteration"
	aggrLastLoss  = "ranking.last_loss"
)

// FactorRequest asks an item for its factors. Tag pairs the k-th relevant
// request of a user with its k-th irrelevant one.
type FactorRequest struct {
	Relevant bool
	Tag      int
}

func (FactorRequest) Type() string { return "factor_request" }

// FactorResponse answers a FactorRequest with the current item factors.
type FactorResponse struct {
	Relevant bool
	Tag      int
	Factors  []float64
}

func (FactorResponse) Type() string { return "factor_response" }

// ItemUpdate carries the gradient a user computed for an item.
type ItemUpdate struct {
	Gradient []float64
}

func (ItemUpdate) Type() string { return "item_update" }

type program struct {
	cfg Config
}

func (p *program) Compute(sc *bsp.StepContext[*Value, float64], v *bsp.Vertex[*Value, float64], msgIt message.Iterator) error {
	superstep := sc.Superstep()
	if superstep == 0 {
		p.init(sc, v)
	}

	// items are woken up by messages; users stay active until the master
	// halts the run
	isItem := p.cfg.isItem(v.ID().Num)
	if isItem {
		v.VoteToHalt()
	}
	switch superstep % 3 {
	case 0:
		if isItem {
			return p.applyUpdates(v, msgIt)
		}
		return p.sendRequests(sc, v)
	case 1:
		if isItem {
			return p.answerRequests(sc, v, msgIt)
		}
	case 2:
		if !isItem {
			return p.updateUser(sc, v, msgIt)
		}
	}
	return nil
}

func (p *program) init(sc *bsp.StepContext[*Value, float64], v *bsp.Vertex[*Value, float64]) {
	rnd := sc.Rand()
	factors := make([]float64, p.cfg.Dim)
	for i := range factors {
		factors[i] = rnd.Float64() * p.cfg.InitScale
	}
	v.SetValue(&Value{Factors: factors})
}

func (p *program) applyUpdates(v *bsp.Vertex[*Value, float64], msgIt message.Iterator) error {
	q := v.Value().Factors
	for msgIt.Next() {
		msg, ok := msgIt.Message().(ItemUpdate)
		if !ok {
			return unexpected("item", msgIt)
		}
		ApplyGradient(q, msg.Gradient, p.cfg.Gamma, p.cfg.Lambda)
	}
	return msgIt.Error()
}

func (p *program) sendRequests(sc *bsp.StepContext[*Value, float64], v *bsp.Vertex[*Value, float64]) error {
	if sc.Superstep()/3 >= p.cfg.Iterations {
		return nil
	}

	positives := make([]graph.ID, 0, len(v.Edges()))
	for _, e := range v.Edges() {
		positives = append(positives, e.DstID())
	}
	relevant, irrelevant, shortfall := SampleRelevantAndIrrelevant(sc.Rand(), positives, p.cfg.MinItemID, p.cfg.MaxItemID, p.cfg.BufferSize)
	if shortfall > 0 {
		sc.Aggregate(aggrShortfall, shortfall)
	}

	for tag := range relevant {
		if err := sc.SendMessage(relevant[tag], FactorRequest{Relevant: true, Tag: tag}); err != nil {
			return err
		}
		if err := sc.SendMessage(irrelevant[tag], FactorRequest{Relevant: false, Tag: tag}); err != nil {
			return err
		}
	}
	return nil
}

func (p *program) answerRequests(sc *bsp.StepContext[*Value, float64], v *bsp.Vertex[*Value, float64], msgIt message.Iterator) error {
	var factors []float64
	for msgIt.Next() {
		req, ok := msgIt.Message().(FactorRequest)
		if !ok {
			return unexpected("item", msgIt)
		}
		if factors == nil {
			factors = slices.Clone(v.Value().Factors)
		}
		resp := FactorResponse{Relevant: req.Relevant, Tag: req.Tag, Factors: factors}
		if err := sc.SendMessage(msgIt.Sender(), resp); err != nil {
			return err
		}
	}
	return msgIt.Error()
}

type response struct {
	item    graph.ID
	factors []float64
}

func (p *program) updateUser(sc *bsp.StepContext[*Value, float64], v *bsp.Vertex[*Value, float64], msgIt message.Iterator) error {
	var relevant, irrelevant []response
	for msgIt.Next() {
		msg, ok := msgIt.Message().(FactorResponse)
		if !ok {
			return unexpected("user", msgIt)
		}
		dst := &irrelevant
		if msg.Relevant {
			dst = &relevant
		}
		for len(*dst) <= msg.Tag {
			*dst = append(*dst, response{})
		}
		(*dst)[msg.Tag] = response{item: msgIt.Sender(), factors: msg.Factors}
	}
	if err := msgIt.Error(); err != nil {
		return err
	}

	u := v.Value().Factors
	for k := 0; k < len(relevant) && k < len(irrelevant); k++ {
		pos, neg := relevant[k], irrelevant[k]
		if pos.factors == nil || neg.factors == nil {
			continue
		}

		posGrad, negGrad, loss := UpdatePair(u, pos.factors, neg.factors, p.cfg.Gamma, p.cfg.Lambda)
		sc.Aggregate(aggrLoss, loss)
		sc.Aggregate(aggrPairs, 1)
		if err := sc.SendMessage(pos.item, ItemUpdate{Gradient: posGrad}); err != nil {
			return err
		}
		if err := sc.SendMessage(neg.item, ItemUpdate{Gradient: negGrad}); err != nil {
			return err
		}
	}
	return nil
}

func (p *program) MasterCompute(m *bsp.Master) error {
	superstep := m.Superstep()
	if superstep >= 3*p.cfg.Iterations {
		m.Halt()
		return nil
	}

	switch superstep % 3 {
	case 0:
		if shortfall, _ := m.AggregatedValue(aggrShortfall).(int); shortfall > 0 {
			m.Logger().WithFields(logrus.Fields{
				"superstep": superstep,
				"shortfall": shortfall,
			}).Debug("not enough items to fill the sample buffers")
		}
	case 2:
		iteration := superstep/3 + 1
		loss, _ := m.AggregatedValue(aggrLoss).(float64)
		pairs, _ := m.AggregatedValue(aggrPairs).(int)
		if pairs > 0 {
			loss /= float64(pairs)
		}
		m.Logger().WithFields(logrus.Fields{
			"iteration": iteration,
			"pairs":     pairs,
			"loss":      loss,
		}).Info("ranking iteration loss")
		if err := m.SetAggregatedValue(aggrLastLoss, loss); err != nil {
			return err
		}
		return m.SetAggregatedValue(aggrIteration, iteration)
	}
	return nil
}

func unexpected(role string, msgIt message.Iterator) error {
	return xerrors.Errorf("%s received %q from %q: %w", role, msgIt.Message().Type(), msgIt.Sender(), ErrUnexpectedMessage)
}
