package trust

import (
	"io"

	"github.com/Ahmed-Sermani/okapi/bsp"
	"github.com/Ahmed-Sermani/okapi/config"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Config encapsulates the required parameters for creating a new Propagator
// instance.
type Config struct {
	Engine bsp.EngineConfig

	// TotalTrust is split evenly among the seeds. If not specified, it
	// defaults to the number of vertices in the graph.
	TotalTrust float64

	// DefaultTrust is the initial score of vertices that are not seeds.
	DefaultTrust float64

	// Decay mixes the previous score into the new one:
	// score = (1-Decay)*incoming + Decay*score. Must be in [0, 1).
	Decay float64

	// Rounds is the number of propagation rounds. If not specified, it is
	// computed as ceil(log2(N)) * RoundsMultiplier.
	Rounds int

	// RoundsMultiplier scales the automatically computed number of rounds.
	// Defaults to 1.
	RoundsMultiplier float64

	Logger *logrus.Entry
}

// ConfigFromParams builds a Config from job parameters prefixed with
// "trust.".
func ConfigFromParams(p config.Params) (Config, error) {
	var (
		cfg  Config
		err  error
		errs error
	)
	if cfg.Engine, err = bsp.EngineConfigFromParams(p); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.TotalTrust, err = p.Float64("trust.total", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.DefaultTrust, err = p.Float64("trust.default", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.Decay, err = p.Float64("trust.decay", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.Rounds, err = p.Int("trust.rounds", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.RoundsMultiplier, err = p.Float64("trust.rounds_multiplier", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	return cfg, errs
}

// validate checks whether the propagator configuration is valid and sets
// the default values where required.
func (cfg *Config) validate() error {
	var err error
	if cfg.TotalTrust < 0 {
		err = multierror.Append(err, xerrors.New("TotalTrust must not be negative"))
	}
	if cfg.DefaultTrust < 0 {
		err = multierror.Append(err, xerrors.New("DefaultTrust must not be negative"))
	}
	if cfg.Decay < 0 || cfg.Decay >= 1 {
		err = multierror.Append(err, xerrors.New("Decay must be in the [0, 1) range"))
	}
	if cfg.Rounds < 0 {
		err = multierror.Append(err, xerrors.New("Rounds must not be negative"))
	}
	if cfg.RoundsMultiplier < 0 {
		err = multierror.Append(err, xerrors.New("RoundsMultiplier must not be negative"))
	} else if cfg.RoundsMultiplier == 0 {
		cfg.RoundsMultiplier = 1
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Logger = logrus.NewEntry(l)
	}
	if cfg.Engine.Logger == nil {
		cfg.Engine.Logger = cfg.Logger
	}
	return err
}
