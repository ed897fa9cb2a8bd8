package svdpp

import (
	"io"

	"github.com/Ahmed-Sermani/okapi/bsp"
	"github.com/Ahmed-Sermani/okapi/config"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Config encapsulates the required parameters for creating a new
// Recommender instance.
type Config struct {
	// Engine holds the BSP engine settings (workers, partitions, seed and
	// safety limits).
	Engine bsp.EngineConfig

	// Dim is the length of the latent factor vectors. If not specified, a
	// default value of 50 will be used instead.
	Dim int

	// Iterations is the number of passes over every rating. If not
	// specified, a default value of 10 will be used instead.
	Iterations int

	// Learning rates and regularization constants for biases and factors.
	// If not specified, BiasLambda and FactorLambda default to 0.005 while
	// BiasGamma and FactorGamma default to 0.01.
	BiasLambda   float64
	BiasGamma    float64
	FactorLambda float64
	FactorGamma  float64

	// Predictions are clamped to [MinRating, MaxRating]. If both are zero
	// the range defaults to [0, 5].
	MinRating float64
	MaxRating float64

	// InitScale bounds the initial factor values which are drawn uniformly
	// from [0, InitScale). If not specified, a default value of 0.01 will
	// be used instead.
	InitScale float64

	Logger *logrus.Entry
}

// ConfigFromParams builds a Config from job parameters prefixed with
// "svdpp.".
func ConfigFromParams(p config.Params) (Config, error) {
	var (
		cfg  Config
		err  error
		errs error
	)
	if cfg.Engine, err = bsp.EngineConfigFromParams(p); err != nil {
		errs = multierror.Append(errs, err)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"svdpp.dim", &cfg.Dim},
		{"svdpp.iterations", &cfg.Iterations},
	}
	for _, spec := range ints {
		if *spec.dst, err = p.Int(spec.key, 0); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"svdpp.bias_lambda", &cfg.BiasLambda},
		{"svdpp.bias_gamma", &cfg.BiasGamma},
		{"svdpp.factor_lambda", &cfg.FactorLambda},
		{"svdpp.factor_gamma", &cfg.FactorGamma},
		{"svdpp.min_rating", &cfg.MinRating},
		{"svdpp.max_rating", &cfg.MaxRating},
		{"svdpp.init_scale", &cfg.InitScale},
	}
	for _, spec := range floats {
		if *spec.dst, err = p.Float64(spec.key, 0); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return cfg, errs
}

// validate checks whether the recommender configuration is valid and sets
// the default values where required.
func (cfg *Config) validate() error {
	var err error
	if cfg.Dim < 0 {
		err = multierror.Append(err, xerrors.New("Dim must be positive"))
	} else if cfg.Dim == 0 {
		cfg.Dim = 50
	}

	if cfg.Iterations < 0 {
		err = multierror.Append(err, xerrors.New("Iterations must be positive"))
	} else if cfg.Iterations == 0 {
		cfg.Iterations = 10
	}

	rates := []struct {
		name string
		dst  *float64
		def  float64
	}{
		{"BiasLambda", &cfg.BiasLambda, 0.005},
		{"BiasGamma", &cfg.BiasGamma, 0.01},
		{"FactorLambda", &cfg.FactorLambda, 0.005},
		{"FactorGamma", &cfg.FactorGamma, 0.01},
		{"InitScale", &cfg.InitScale, 0.01},
	}
	for _, rate := range rates {
		if *rate.dst < 0 {
			err = multierror.Append(err, xerrors.Errorf("%s must not be negative", rate.name))
		} else if *rate.dst == 0 {
			*rate.dst = rate.def
		}
	}

	if cfg.MinRating == 0 && cfg.MaxRating == 0 {
		cfg.MaxRating = 5
	} else if cfg.MinRating >= cfg.MaxRating {
		err = multierror.Append(err, xerrors.New("MinRating must be less than MaxRating"))
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
