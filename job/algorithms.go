package job

import (
	"github.com/Ahmed-Sermani/okapi/config"
	"github.com/Ahmed-Sermani/okapi/graph/edgelist"
	"github.com/Ahmed-Sermani/okapi/ranking"
	"github.com/Ahmed-Sermani/okapi/svdpp"
	"github.com/Ahmed-Sermani/okapi/trust"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
)

// ErrUnknownAlgorithm is returned by NewTask for unsupported algorithm
// names.
var ErrUnknownAlgorithm = xerrors.New("unknown algorithm")

// Algorithm describes how to build a Task from job parameters.
type Algorithm struct {
	// NewTask builds the task from the job parameters.
	NewTask func(p config.Params, logger *logrus.Entry) (Task, error)
}

var algorithms = map[string]Algorithm{
	"svdpp": {
		NewTask: func(p config.Params, logger *logrus.Entry) (Task, error) {
			cfg, err := svdpp.ConfigFromParams(p)
			if err != nil {
				return nil, err
			}
			cfg.Logger = logger
			return svdpp.NewRecommender(cfg)
		},
	},
	"ranking": {
		NewTask: func(p config.Params, logger *logrus.Entry) (Task, error) {
			cfg, err := ranking.ConfigFromParams(p)
			if err != nil {
				return nil, err
			}
			cfg.Logger = logger
			return ranking.NewLearner(cfg)
		},
	},
	"trust": {
		NewTask: func(p config.Params, logger *logrus.Entry) (Task, error) {
			cfg, err := trust.ConfigFromParams(p)
			if err != nil {
				return nil, err
			}
			cfg.Logger = logger
			return trust.NewPropagator(cfg)
		},
	},
}

// Algorithms returns the names of the supported algorithms in sorted
// order.
func Algorithms() []string {
	names := maps.Keys(algorithms)
	slices.Sort(names)
	return names
}

// LookupAlgorithm returns the named algorithm.
func LookupAlgorithm(name string) (Algorithm, error) {
	algo, ok := algorithms[name]
	if !ok {
		return Algorithm{}, xerrors.Errorf("%q: %w", name, ErrUnknownAlgorithm)
	}
	return algo, nil
}

// NewTask builds the named algorithm from the job parameters.
func NewTask(name string, p config.Params, logger *logrus.Entry) (Task, error) {
	algo, err := LookupAlgorithm(name)
	if err != nil {
		return nil, err
	}
	task, err := algo.NewTask(p, logger)
	if err != nil {
		return nil, xerrors.Errorf("create %s task: %w", name, err)
	}
	return task, nil
}

// InputOptions returns the edge-list loading options selected by the job
// parameters. Edges are loaded directed unless input.undirected is set.
func InputOptions(p config.Params) (edgelist.Options, error) {
	var (
		opts edgelist.Options
		err  error
	)
	if opts.Undirected, err = p.Bool("input.undirected", false); err != nil {
		return edgelist.Options{}, err
	}
	if opts.DefaultWeight, err = p.Float64("input.default_weight", 1); err != nil {
		return edgelist.Options{}, err
	}
	if opts.DefaultWeight <= 0 {
		return edgelist.Options{}, &config.Error{Param: "input.default_weight", Reason: "must be positive"}
	}
	return opts, nil
}
