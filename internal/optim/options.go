package optim

import (
	"github.com/jedipuppy/inspire-thermal-simulation/internal/logger"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/observability"
)

// defaultSimplexSize is the initial Nelder-Mead simplex edge in log space,
// roughly a 10% change of every parameter.
const defaultSimplexSize = 0.1

type options struct {
	log         *logger.Logger
	recorder    observability.Recorder
	simplexSize float64
	workers     int
}

// Option configures Estimate and Sweep.
type Option func(*options)

func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func WithRecorder(r observability.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithSimplexSize sets the initial simplex size in log-parameter units.
func WithSimplexSize(size float64) Option {
	return func(o *options) {
		if size > 0 {
			o.simplexSize = size
		}
	}
}

// WithWorkers bounds the concurrent solves of Sweep and GridSearch.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

func buildOptions(opts []Option) options {
	o := options{
		log:         logger.Nop(),
		recorder:    observability.Nop(),
		simplexSize: defaultSimplexSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
