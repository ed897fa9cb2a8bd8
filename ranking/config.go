package ranking

import (
	"fmt"
	"io"

	"github.com/Ahmed-Sermani/okapi/bsp"
	"github.com/Ahmed-Sermani/okapi/config"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// MaxItemRange is the largest number of ids the item range may span. Every
// id of the range becomes a vertex so that it can be sampled as a negative.
const MaxItemRange = 1 << 22

// Config encapsulates the required parameters for creating a new Learner
// instance.
type Config struct {
	Engine bsp.EngineConfig

	// Item vertices are the ids in the inclusive range [MinItemID,
	// MaxItemID]; every other vertex is a user.
	MinItemID int64
	MaxItemID int64

	// Dim is the length of the latent factor vectors. Defaults to 10.
	Dim int

	// Iterations is the number of sample/respond/update rounds. Defaults
	// to 10.
	Iterations int

	// BufferSize is the number of relevant (and irrelevant) items a user
	// samples per iteration. Defaults to 10.
	BufferSize int

	// Learning rate and regularization constant. Both default to 0.01.
	Gamma  float64
	Lambda float64

	// InitScale bounds the initial factor values. Defaults to 0.01.
	InitScale float64

	Logger *logrus.Entry
}

// ConfigFromParams builds a Config from job parameters prefixed with
// "ranking.". The item id range is required.
func ConfigFromParams(p config.Params) (Config, error) {
	var (
		cfg  Config
		err  error
		errs error
	)
	if cfg.Engine, err = bsp.EngineConfigFromParams(p); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.MinItemID, err = p.RequiredInt64("ranking.min_item_id"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.MaxItemID, err = p.RequiredInt64("ranking.max_item_id"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.Dim, err = p.Int("ranking.dim", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.Iterations, err = p.Int("ranking.iterations", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.BufferSize, err = p.Int("ranking.buffer_size", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.Gamma, err = p.Float64("ranking.gamma", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.Lambda, err = p.Float64("ranking.lambda", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.InitScale, err = p.Float64("ranking.init_scale", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	return cfg, errs
}

// validate checks whether the learner configuration is valid and sets the
// default values where required.
func (cfg *Config) validate() error {
	var err error
	if cfg.MinItemID > cfg.MaxItemID {
		err = multierror.Append(err, &config.Error{
			Param:  "ranking.min_item_id",
			Reason: fmt.Sprintf("item id range [%d, %d] is inverted", cfg.MinItemID, cfg.MaxItemID),
		})
	} else if span := uint64(cfg.MaxItemID-cfg.MinItemID) + 1; span == 0 || span > MaxItemRange {
		err = multierror.Append(err, &config.Error{
			Param:  "ranking.max_item_id",
			Reason: fmt.Sprintf("item id range spans more than %d ids", MaxItemRange),
		})
	}

	ints := []struct {
		name string
		dst  *int
		def  int
	}{
		{"Dim", &cfg.Dim, 10},
		{"Iterations", &cfg.Iterations, 10},
		{"BufferSize", &cfg.BufferSize, 10},
	}
	for _, spec := range ints {
		if *spec.dst < 0 {
			err = multierror.Append(err, xerrors.Errorf("%s must be positive", spec.name))
		} else if *spec.dst == 0 {
			*spec.dst = spec.def
		}
	}

	rates := []struct {
		name string
		dst  *float64
		def  float64
	}{
		{"Gamma", &cfg.Gamma, 0.01},
		{"Lambda", &cfg.Lambda, 0.01},
		{"InitScale", &cfg.InitScale, 0.01},
	}
	for _, rate := range rates {
		if *rate.dst < 0 {
			err = multierror.Append(err, xerrors.Errorf("%s must not be negative", rate.name))
		} else if *rate.dst == 0 {
			*rate.dst = rate.def
		}
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

// isItem reports whether num falls into the item id range.
func (cfg *Config) isItem(num int64) bool {
	return num >= cfg.MinItemID && num <= cfg.MaxItemID
}
