package metrics

import (
	"math"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/sim"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

// Stability is the fraction of samples in which every node stays inside the
// range of starting temperatures. Heat conduction never leaves that range, so
// anything below 1 means the time step is too large for explicit Euler.
type Stability struct {
	name       string
	slack      float64
	lo, hi     float64
	violations int
	samples    int
}

// NewStability allows temperatures to exceed the envelope by slack before a
// sample counts as a violation.
func NewStability(slack float64) *Stability {
	return &Stability{name: "stability", slack: slack}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(net *thermal.Network, x sim.State, t float64) {
	if s.samples == 0 {
		s.lo, s.hi = math.Inf(1), math.Inf(-1)
		for _, v := range net.Start {
			s.lo = math.Min(s.lo, v)
			s.hi = math.Max(s.hi, v)
		}
	}
	s.samples++
	for _, v := range x {
		if math.IsNaN(v) || v < s.lo-s.slack || v > s.hi+s.slack {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
