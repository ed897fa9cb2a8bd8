package trust

import (
	"math"

	"github.com/Ahmed-Sermani/okapi/bsp"
	"github.com/Ahmed-Sermani/okapi/bsp/message"
	"github.com/Ahmed-Sermani/okapi/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// ErrUnexpectedMessage is returned when a vertex receives a message it does
// not know how to process.
var ErrUnexpectedMessage = xerrors.New("unexpected message")

const (
	aggrSeeds     = "trust.seeds"
	aggrSeedTrust = "trust.seed_trust"
	aggrRounds    = "trust.rounds"
	aggrPhase     = "trust.phase"
)

// Values of the phase aggregator.
const (
	phasePropagate = iota
	phaseNormalize
)

// IncomingTrustMessage is used for distributing trust to neighbors.
type IncomingTrustMessage struct {
	Trust float64
}

func (IncomingTrustMessage) Type() string { return "trust" }

type program struct {
	cfg Config
}

func (p *program) Compute(sc *bsp.StepContext[*Value, float64], v *bsp.Vertex[*Value, float64], msgIt message.Iterator) error {
	val := v.Value()
	superstep := sc.Superstep()

	// At step 0 every vertex computes its weighted degree and the seeds
	// are counted so that the master can split the total trust.
	if superstep == 0 {
		val.Degree = 0
		for _, e := range v.Edges() {
			val.Degree += e.Value()
		}
		if val.Seed {
			sc.Aggregate(aggrSeeds, 1)
		}
		return nil
	}

	if phase, _ := sc.AggregatedValue(aggrPhase).(int); phase == phaseNormalize {
		if val.Degree > 0 {
			val.Score /= val.Degree
		}
		v.VoteToHalt()
		return nil
	}

	rounds, _ := sc.AggregatedValue(aggrRounds).(int)
	switch superstep {
	case 1:
		val.Score = p.cfg.DefaultTrust
		if val.Seed {
			val.Score, _ = sc.AggregatedValue(aggrSeedTrust).(float64)
		}
	default:
		var incoming float64
		for msgIt.Next() {
			msg, ok := msgIt.Message().(IncomingTrustMessage)
			if !ok {
				return xerrors.Errorf("received %q from %q: %w", msgIt.Message().Type(), msgIt.Sender(), ErrUnexpectedMessage)
			}
			incoming += msg.Trust
		}
		if err := msgIt.Error(); err != nil {
			return err
		}
		val.Score = (1-p.cfg.Decay)*incoming + p.cfg.Decay*val.Score
	}

	// the last round only collects
	if superstep > rounds {
		return nil
	}

	// A vertex without outgoing trust keeps its score by sending it to
	// itself so that the total mass stays constant.
	if val.Degree <= 0 {
		return sc.SendMessage(v.ID(), IncomingTrustMessage{Trust: val.Score})
	}
	for _, e := range v.Edges() {
		share := IncomingTrustMessage{Trust: val.Score * e.Value() / val.Degree}
		if err := sc.SendMessage(e.DstID(), share); err != nil {
			return err
		}
	}
	return nil
}

func (p *program) MasterCompute(m *bsp.Master) error {
	superstep := m.Superstep()
	if superstep == 0 {
		return p.setup(m)
	}

	rounds, _ := m.AggregatedValue(aggrRounds).(int)
	switch {
	case superstep == rounds+1:
		m.Logger().WithField("rounds", rounds).Debug("trust propagation finished, normalizing scores")
		return m.SetAggregatedValue(aggrPhase, phaseNormalize)
	case superstep > rounds+1:
		m.Halt()
	}
	return nil
}

// setup splits the total trust among the seeds and fixes the number of
// propagation rounds.
func (p *program) setup(m *bsp.Master) error {
	numSeeds, _ := m.AggregatedValue(aggrSeeds).(int)
	if numSeeds == 0 {
		return &config.Error{Param: "trust.seeds", Reason: "at least one seed vertex is required"}
	}

	total := p.cfg.TotalTrust
	if total == 0 {
		total = float64(m.NumVertices())
	}
	rounds := p.cfg.Rounds
	if rounds == 0 {
		rounds = autoRounds(m.NumVertices(), p.cfg.RoundsMultiplier)
	}

	m.Logger().WithFields(logrus.Fields{
		"seeds":       numSeeds,
		"total_trust": total,
		"rounds":      rounds,
	}).Info("trust propagation initialized")

	if err := m.SetAggregatedValue(aggrSeedTrust, total/float64(numSeeds)); err != nil {
		return err
	}
	if err := m.SetAggregatedValue(aggrRounds, rounds); err != nil {
		return err
	}
	return m.SetAggregatedValue(aggrPhase, phasePropagate)
}

// autoRounds returns ceil(log2(numVertices)) * multiplier rounded up, and at
// least one.
func autoRounds(numVertices int, multiplier float64) int {
	if numVertices < 2 {
		return 1
	}
	rounds := int(math.Ceil(math.Ceil(math.Log2(float64(numVertices))) * multiplier))
	if rounds < 1 {
		return 1
	}
	return rounds
}
