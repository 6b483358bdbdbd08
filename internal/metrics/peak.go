package metrics

import (
	"math"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/sim"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

// PeakTemp records the highest temperature reached by any free node, or by a
// single node when constructed with an id.
type PeakTemp struct {
	name   string
	nodeID string
	peak   float64
}

func NewPeakTemp() *PeakTemp {
	return &PeakTemp{name: "peak_temp", peak: math.Inf(-1)}
}

func NewNodePeakTemp(nodeID string) *PeakTemp {
	return &PeakTemp{name: "peak_temp:" + nodeID, nodeID: nodeID, peak: math.Inf(-1)}
}

func (p *PeakTemp) Name() string { return p.name }

func (p *PeakTemp) Observe(net *thermal.Network, x sim.State, t float64) {
	if p.nodeID != "" {
		if i, ok := net.IndexOf(p.nodeID); ok {
			p.peak = math.Max(p.peak, x[i])
		}
		return
	}
	for i, v := range x {
		if !net.Fixed[i] {
			p.peak = math.Max(p.peak, v)
		}
	}
}

// Value is NaN when nothing was observed.
func (p *PeakTemp) Value() float64 {
	if math.IsInf(p.peak, -1) {
		return math.NaN()
	}
	return p.peak
}

func (p *PeakTemp) Reset() {
	p.peak = math.Inf(-1)
}
