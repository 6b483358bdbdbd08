package thermal

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// LandingTolerance absorbs floating-point drift when deciding whether the
// elapsed time has reached the total time.
const LandingTolerance = 1e-9

// Neighbor is one side of an edge as seen from a node.
type Neighbor struct {
	Index       int
	Conductance float64
}

// Network is a validated network with nodes addressed by their position in
// the input list. Ids are kept only for lookups and error messages.
type Network struct {
	IDs       []string
	Capacity  []float64
	Fixed     []bool
	Start     []float64
	Adjacency [][]Neighbor

	index map[string]int
}

// Compile validates the inputs and builds the index form. The adjacency list
// of every node receives one entry per incident edge, so both endpoints of an
// edge see it.
func Compile(nodes []Node, edges []Edge, settings Settings) (*Network, error) {
	if err := Validate(nodes, edges, settings); err != nil {
		return nil, err
	}
	return build(nodes, edges), nil
}

// CompileNetwork is Compile without time settings, for callers that only
// inspect the network.
func CompileNetwork(nodes []Node, edges []Edge) (*Network, error) {
	if err := ValidateNetwork(nodes, edges); err != nil {
		return nil, err
	}
	return build(nodes, edges), nil
}

func build(nodes []Node, edges []Edge) *Network {
	n := len(nodes)
	net := &Network{
		IDs:       make([]string, n),
		Capacity:  make([]float64, n),
		Fixed:     make([]bool, n),
		Start:     make([]float64, n),
		Adjacency: make([][]Neighbor, n),
		index:     make(map[string]int, n),
	}
	for i, node := range nodes {
		net.IDs[i] = node.ID
		net.Capacity[i] = node.HeatCapacity
		net.Fixed[i] = node.IsFixed
		net.Start[i] = node.StartTemp()
		net.index[node.ID] = i
	}
	for _, e := range edges {
		s, t := net.index[e.Source], net.index[e.Target]
		net.Adjacency[s] = append(net.Adjacency[s], Neighbor{Index: t, Conductance: e.Conductance})
		net.Adjacency[t] = append(net.Adjacency[t], Neighbor{Index: s, Conductance: e.Conductance})
	}
	return net
}

// Len is the number of nodes.
func (n *Network) Len() int { return len(n.IDs) }

// IndexOf returns the position of the node with the given id.
func (n *Network) IndexOf(id string) (int, bool) {
	i, ok := n.index[id]
	return i, ok
}

// Derive writes dT/dt of every node into dx, reading temperatures only from x.
// Fixed nodes have a zero derivative.
func (n *Network) Derive(x, dx []float64) {
	for i := range x {
		if n.Fixed[i] {
			dx[i] = 0
			continue
		}
		flow := 0.0
		for _, nb := range n.Adjacency[i] {
			flow += nb.Conductance * (x[nb.Index] - x[i])
		}
		dx[i] = flow / n.Capacity[i]
	}
}

// Clamp resets fixed nodes to their reservoir temperature.
func (n *Network) Clamp(x []float64) {
	for i, fixed := range n.Fixed {
		if fixed {
			x[i] = n.Start[i]
		}
	}
}

// Energy returns the stored thermal energy sum(C*T) relative to 0 °C.
func (n *Network) Energy(x []float64) float64 {
	return floats.Dot(n.Capacity, x)
}

// StableStep returns the largest explicit Euler step for which no free node
// overshoots its neighbours: min over free nodes of C / sum(G). It returns
// +Inf when no free node has a conducting edge.
func (n *Network) StableStep() float64 {
	best := math.Inf(1)
	for i := range n.IDs {
		if n.Fixed[i] {
			continue
		}
		g := 0.0
		for _, nb := range n.Adjacency[i] {
			if nb.Index != i {
				g += nb.Conductance
			}
		}
		if g > 0 {
			best = math.Min(best, n.Capacity[i]/g)
		}
	}
	return best
}
