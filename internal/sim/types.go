package sim

import (
	"math"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/integrators"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

// State is the temperature of every node, indexed like thermal.Network.IDs.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// IsValid reports whether every temperature is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Integrator advances a state by one step of size dt into dst.
type Integrator interface {
	Step(sys integrators.System, dst, x []float64, dt float64)
}

// Metric accumulates a scalar over the committed states of one run.
type Metric interface {
	Name() string
	Observe(net *thermal.Network, x State, t float64)
	Value() float64
	Reset()
}

// Observer is notified of every committed state, including t=0. x is reused
// between steps; Clone it to keep it.
type Observer interface {
	OnStep(x State, t float64)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(x State, t float64)

func (f ObserverFunc) OnStep(x State, t float64) { f(x, t) }
