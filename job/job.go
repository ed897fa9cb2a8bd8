// Package job runs a graph algorithm end to end: it loads the input edges,
// runs the algorithm until it halts and publishes one result per vertex.
package job

import (
	"context"
	"io"
	"time"

	"github.com/Ahmed-Sermani/okapi/graph"
	"github.com/google/uuid"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/Ahmed-Sermani/okapi/job Task,ResultWriter

// ErrSeedsNotSupported is returned when seeds are supplied for an algorithm
// that does not use them.
var ErrSeedsNotSupported = xerrors.New("algorithm does not accept seed vertices")

// Task is implemented by the graph algorithms a Runner can execute.
type Task interface {
	// AddEdge inserts an input edge into the graph of the task.
	AddEdge(*graph.Edge) error

	// Run executes the algorithm and blocks until it halts, fails or the
	// context is cancelled.
	Run(context.Context) error

	// Results invokes visitFn for every vertex in ascending id order.
	Results(visitFn func(id graph.ID, fields []float64) error) error

	// Superstep returns the number of supersteps executed so far.
	Superstep() int

	Close() error
}

// Seeder is implemented by tasks that accept externally supplied seed
// vertices.
type Seeder interface {
	SetSeeds([]graph.ID)
}

// ResultWriter publishes the result of a single vertex.
type ResultWriter interface {
	WriteResult(id graph.ID, fields []float64) error
}

// flusher is implemented by result writers that buffer their output.
type flusher interface {
	Flush() error
}

// Config encapsulates the settings for running a job.
type Config struct {
	// ID identifies the job in logs and persisted results. A random id
	// is generated if not specified.
	ID uuid.UUID

	// Algorithm is the name of the algorithm, used for logging.
	Algorithm string

	// Task is the algorithm to run.
	Task Task

	// Edges provides the input graph. The runner closes the iterator once
	// it has been consumed.
	Edges graph.EdgeIterator

	// Seeds is an optional list of seed vertices for tasks implementing
	// Seeder.
	Seeds []graph.ID

	// Output receives one result per vertex.
	Output ResultWriter

	// Clock used for measuring the job phases. Defaults to the wall clock.
	Clock clock.Clock

	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Task == nil {
		err = multierror.Append(err, xerrors.New("task not specified"))
	}
	if cfg.Edges == nil {
		err = multierror.Append(err, xerrors.New("edge source not specified"))
	}
	if cfg.Output == nil {
		err = multierror.Append(err, xerrors.New("result writer not specified"))
	}
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Logger = logrus.NewEntry(l)
	}
	return err
}

// Stats summarizes a completed job.
type Stats struct {
	JobID      uuid.UUID
	Edges      int
	Results    int
	Supersteps int

	LoadTime    time.Duration
	RunTime     time.Duration
	PublishTime time.Duration
}

// Runner executes a single job.
type Runner struct {
	cfg    Config
	logger *logrus.Entry
}

// NewRunner returns a new Runner instance using the provided config
// options.
func NewRunner(cfg Config) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("job config validation failed: %w", err)
	}
	return &Runner{
		cfg: cfg,
		logger: cfg.Logger.WithFields(logrus.Fields{
			"job_id":    cfg.ID.String(),
			"algorithm": cfg.Algorithm,
		}),
	}, nil
}

// ID returns the id of the job.
func (r *Runner) ID() uuid.UUID { return r.cfg.ID }

// Run loads the graph, runs the task and publishes its results. The task
// is not closed.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	stats := Stats{JobID: r.cfg.ID}
	r.logger.Info("starting job")

	start := r.cfg.Clock.Now()
	numEdges, err := r.load()
	stats.Edges = numEdges
	stats.LoadTime = r.cfg.Clock.Now().Sub(start)
	if err != nil {
		return stats, r.abort(err)
	}
	r.logger.WithFields(logrus.Fields{
		"edges":   numEdges,
		"elapsed": stats.LoadTime.String(),
	}).Info("graph loaded")

	start = r.cfg.Clock.Now()
	err = r.cfg.Task.Run(ctx)
	stats.Supersteps = r.cfg.Task.Superstep()
	stats.RunTime = r.cfg.Clock.Now().Sub(start)
	if err != nil {
		return stats, r.abort(xerrors.Errorf("run: %w", err))
	}
	r.logger.WithFields(logrus.Fields{
		"supersteps": stats.Supersteps,
		"elapsed":    stats.RunTime.String(),
	}).Info("computation halted")

	start = r.cfg.Clock.Now()
	stats.Results, err = r.publish()
	stats.PublishTime = r.cfg.Clock.Now().Sub(start)
	if err != nil {
		return stats, r.abort(err)
	}
	r.logger.WithFields(logrus.Fields{
		"results": stats.Results,
		"elapsed": stats.PublishTime.String(),
	}).Info("job completed")
	return stats, nil
}

func (r *Runner) load() (int, error) {
	var (
		numEdges int
		err      error
		it       = r.cfg.Edges
	)
	for it.Next() {
		if err = r.cfg.Task.AddEdge(it.Edge()); err != nil {
			break
		}
		numEdges++
	}
	if err == nil {
		err = it.Error()
	}
	if closeErr := it.Close(); closeErr != nil {
		err = multierror.Append(err, closeErr)
	}
	if err != nil {
		return numEdges, xerrors.Errorf("load edges: %w", err)
	}

	if len(r.cfg.Seeds) != 0 {
		seeder, ok := r.cfg.Task.(Seeder)
		if !ok {
			return numEdges, xerrors.Errorf("load seeds: %w", ErrSeedsNotSupported)
		}
		seeder.SetSeeds(r.cfg.Seeds)
	}
	return numEdges, nil
}

func (r *Runner) publish() (int, error) {
	var numResults int
	err := r.cfg.Task.Results(func(id graph.ID, fields []float64) error {
		numResults++
		return r.cfg.Output.WriteResult(id, fields)
	})
	if f, ok := r.cfg.Output.(flusher); ok {
		if flushErr := f.Flush(); flushErr != nil {
			err = multierror.Append(err, flushErr)
		}
	}
	if err != nil {
		return numResults, xerrors.Errorf("publish results: %w", err)
	}
	return numResults, nil
}

func (r *Runner) abort(err error) error {
	r.logger.WithField("err", err.Error()).Error("job aborted")
	return err
}
