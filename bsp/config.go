package bsp

import (
	"io"
	"time"

	"github.com/Ahmed-Sermani/okapi/bsp/message"
	"github.com/Ahmed-Sermani/okapi/config"
	"github.com/Ahmed-Sermani/okapi/partition"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// DefaultNumPartitions is the number of shards used when neither a
// partitioner nor a partition count is configured.
const DefaultNumPartitions = 8

// EngineConfig holds the settings that are shared by every algorithm
// running on top of the engine.
type EngineConfig struct {
	// The number of workers to spin up for executing compute functions.
	// It does not affect the results of a run. If not specified, a single
	// worker will be used.
	ComputeWorkers int

	// NumPartitions is the number of shards vertices are hashed into when
	// no Partitioner is given. Results are reproducible for a fixed number
	// of partitions and Seed.
	NumPartitions int

	// Seed is the job seed every per-vertex random generator derives from.
	Seed int64

	// MaxSupersteps aborts a run once that many supersteps have completed.
	// Zero means no limit.
	MaxSupersteps int

	// MaxDuration aborts a run once that much wall-clock time has elapsed
	// since its start. Zero means no limit.
	MaxDuration time.Duration

	// Clock used for enforcing MaxDuration. Defaults to the wall clock.
	Clock clock.Clock

	// Logger for engine-level messages. Defaults to a logger that discards
	// its output.
	Logger *logrus.Entry
}

// EngineConfigFromParams extracts the engine settings from job
// parameters. Missing keys keep their zero value so that validation can
// apply the defaults.
func EngineConfigFromParams(p config.Params) (EngineConfig, error) {
	var (
		cfg  EngineConfig
		err  error
		errs error
	)
	if cfg.ComputeWorkers, err = p.Int("bsp.workers", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.NumPartitions, err = p.Int("bsp.partitions", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.Seed, err = p.Int64("bsp.seed", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.MaxSupersteps, err = p.Int("bsp.max_supersteps", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.MaxDuration, err = p.Duration("bsp.max_duration", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	return cfg, errs
}

func (cfg *EngineConfig) validate() error {
	var err error
	if cfg.ComputeWorkers < 0 {
		err = multierror.Append(err, xerrors.New("ComputeWorkers must not be negative"))
	} else if cfg.ComputeWorkers == 0 {
		cfg.ComputeWorkers = 1
	}
	if cfg.NumPartitions < 0 {
		err = multierror.Append(err, xerrors.New("NumPartitions must not be negative"))
	} else if cfg.NumPartitions == 0 {
		cfg.NumPartitions = DefaultNumPartitions
	}
	if cfg.MaxSupersteps < 0 {
		err = multierror.Append(err, xerrors.New("MaxSupersteps must not be negative"))
	}
	if cfg.MaxDuration < 0 {
		err = multierror.Append(err, xerrors.New("MaxDuration must not be negative"))
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

// GraphConfig encapsulates the configuration options for creating graphs.
type GraphConfig[VT, ET any] struct {
	EngineConfig

	// Program is invoked for each active vertex in every superstep.
	Program Program[VT, ET]

	// Master, if defined, runs once after every superstep barrier. If not
	// specified and Program also implements MasterProgram, Program is used.
	Master MasterProgram

	// QueueFactory is used by the graph to create message queue instances
	// for each vertex that is added to the graph. If not specified, the
	// default in-memory queue will be used instead.
	QueueFactory message.QueueFactory

	// Partitioner assigns vertices to shards. If not specified, a hash
	// partitioner with NumPartitions partitions is used.
	Partitioner partition.Assigner
}

// validate checks whether a GraphConfig instance contains valid values.
// Missing values are replaced by their defaults.
func (cfg *GraphConfig[VT, ET]) validate() error {
	err := cfg.EngineConfig.validate()

	if cfg.Program == nil {
		err = multierror.Append(err, xerrors.New("compute program not specified"))
	}
	if cfg.Master == nil {
		if mp, ok := cfg.Program.(MasterProgram); ok {
			cfg.Master = mp
		}
	}
	if cfg.QueueFactory == nil {
		cfg.QueueFactory = message.NewInMemoryQueue
	}
	if cfg.Partitioner == nil && cfg.NumPartitions > 0 {
		hash, hashErr := partition.NewHash(cfg.NumPartitions)
		if hashErr != nil {
			err = multierror.Append(err, hashErr)
		}
		cfg.Partitioner = hash
	} else if cfg.Partitioner != nil && cfg.Partitioner.NumPartitions() <= 0 {
		err = multierror.Append(err, xerrors.New("partitioner must provide at least one partition"))
	}
	return err
}
