package optim

import (
	"math"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

// minConductance replaces a zero starting conductance, which has no
// logarithm.
const minConductance = 1e-9

type paramKind int

const (
	capacityParam paramKind = iota
	conductanceParam
)

type param struct {
	kind  paramKind
	index int // into nodes or edges
	id    string
}

// paramSpace lists the properties that influence at least one trace: the
// capacity of every free node and the conductance of every edge touching a
// free node.
type paramSpace struct {
	params []param
}

func newParamSpace(nodes []thermal.Node, edges []thermal.Edge) *paramSpace {
	fixed := make(map[string]bool, len(nodes))
	ps := &paramSpace{}
	for i, n := range nodes {
		fixed[n.ID] = n.IsFixed
		if !n.IsFixed {
			ps.params = append(ps.params, param{kind: capacityParam, index: i, id: n.ID})
		}
	}
	for i, e := range edges {
		if !fixed[e.Source] || !fixed[e.Target] {
			ps.params = append(ps.params, param{kind: conductanceParam, index: i, id: e.ID})
		}
	}
	return ps
}

func (ps *paramSpace) Len() int { return len(ps.params) }

// pack returns the log-space starting vector.
func (ps *paramSpace) pack(nodes []thermal.Node, edges []thermal.Edge) []float64 {
	x := make([]float64, len(ps.params))
	for i, p := range ps.params {
		switch p.kind {
		case capacityParam:
			x[i] = math.Log(nodes[p.index].HeatCapacity)
		case conductanceParam:
			x[i] = math.Log(math.Max(edges[p.index].Conductance, minConductance))
		}
	}
	return x
}

// apply writes exp(x) into the parameter slots of nodes and edges.
func (ps *paramSpace) apply(x []float64, nodes []thermal.Node, edges []thermal.Edge) {
	for i, p := range ps.params {
		v := math.Exp(x[i])
		switch p.kind {
		case capacityParam:
			nodes[p.index].HeatCapacity = v
		case conductanceParam:
			edges[p.index].Conductance = v
		}
	}
}

// ScaleFree returns copies of nodes and edges with every parameter Estimate
// would fit multiplied by factor. Fixed-node capacities and edges between two
// fixed nodes keep their values.
func ScaleFree(nodes []thermal.Node, edges []thermal.Edge, factor float64) ([]thermal.Node, []thermal.Edge) {
	outNodes, outEdges := thermal.CloneNodes(nodes), thermal.CloneEdges(edges)
	for _, p := range newParamSpace(nodes, edges).params {
		switch p.kind {
		case capacityParam:
			outNodes[p.index].HeatCapacity *= factor
		case conductanceParam:
			outEdges[p.index].Conductance *= factor
		}
	}
	return outNodes, outEdges
}
