package thermal

import "math"

// Node is a point of thermal mass. A fixed node is held at FixedTemp for the
// whole run and acts as a boundary reservoir.
type Node struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name,omitempty" yaml:"name,omitempty"`
	InitialTemp  float64 `json:"initialTemp" yaml:"initial_temp"`
	HeatCapacity float64 `json:"heatCapacity" yaml:"heat_capacity"`
	IsFixed      bool    `json:"isFixed,omitempty" yaml:"is_fixed,omitempty"`
	FixedTemp    float64 `json:"fixedTemp,omitempty" yaml:"fixed_temp,omitempty"`
}

// StartTemp is the temperature the node holds at t=0.
func (n Node) StartTemp() float64 {
	if n.IsFixed {
		return n.FixedTemp
	}
	return n.InitialTemp
}

// Label names the node for humans: its name, else its id.
func (n Node) Label() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// Edge is an undirected conductive link. Parallel edges between the same pair
// are allowed and add up.
type Edge struct {
	ID          string  `json:"id" yaml:"id"`
	Source      string  `json:"source" yaml:"source"`
	Target      string  `json:"target" yaml:"target"`
	Conductance float64 `json:"conductance" yaml:"conductance"`
}

// Settings controls a forward solve. Both values are in seconds.
type Settings struct {
	TimeStep  float64 `json:"timeStep" yaml:"time_step"`
	TotalTime float64 `json:"totalTime" yaml:"total_time"`
}

// Steps is the number of integration steps a solve with these settings takes.
// It saturates at math.MaxInt32.
func (s Settings) Steps() int {
	n := math.Ceil(s.TotalTime/s.TimeStep - LandingTolerance)
	if n >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// Series is the temperature trace of one node, aligned with Result.Times.
type Series struct {
	NodeID       string    `json:"nodeId" yaml:"node_id"`
	Temperatures []float64 `json:"temperatures" yaml:"temperatures"`
}

// Result is the output of a forward solve.
type Result struct {
	Times  []float64 `json:"times" yaml:"times"`
	Series []Series  `json:"series" yaml:"series"`

	// Metrics holds values of metrics attached to the simulator, if any.
	Metrics map[string]float64 `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// SeriesFor returns the trace of the node with the given id.
func (r *Result) SeriesFor(id string) ([]float64, bool) {
	for _, s := range r.Series {
		if s.NodeID == id {
			return s.Temperatures, true
		}
	}
	return nil, false
}

// Final returns the last temperature of every node keyed by id.
func (r *Result) Final() map[string]float64 {
	out := make(map[string]float64, len(r.Series))
	for _, s := range r.Series {
		if len(s.Temperatures) > 0 {
			out[s.NodeID] = s.Temperatures[len(s.Temperatures)-1]
		}
	}
	return out
}

// Measurement is an observed, possibly noisy, temperature trace for one node.
// Times need not coincide with the solver grid.
type Measurement struct {
	NodeID       string    `json:"nodeId" yaml:"node_id"`
	Times        []float64 `json:"times" yaml:"times"`
	Temperatures []float64 `json:"temperatures" yaml:"temperatures"`
}

// EstimationSettings configures a parameter estimation run.
type EstimationSettings struct {
	Measurements  []Measurement `json:"measurements" yaml:"measurements"`
	MaxIterations int           `json:"maxIterations" yaml:"max_iterations"`
	Tolerance     float64       `json:"tolerance" yaml:"tolerance"`

	// TimeStep overrides the solver step used during estimation. Zero means
	// the step is derived from the measurement resolution.
	TimeStep float64 `json:"timeStep,omitempty" yaml:"time_step,omitempty"`
}

// ConvergenceInfo summarizes how an estimation run ended.
type ConvergenceInfo struct {
	Iterations int     `json:"iterations" yaml:"iterations"`
	Converged  bool    `json:"converged" yaml:"converged"`
	FinalError float64 `json:"finalError" yaml:"final_error"`
}

// EstimationResult holds recovered parameters keyed by node and edge id.
type EstimationResult struct {
	EstimatedHeatCapacities map[string]float64 `json:"estimatedHeatCapacities" yaml:"estimated_heat_capacities"`
	EstimatedConductances   map[string]float64 `json:"estimatedConductances" yaml:"estimated_conductances"`
	ConvergenceInfo         ConvergenceInfo    `json:"convergenceInfo" yaml:"convergence_info"`
}

// Apply returns copies of nodes and edges carrying the estimated parameters.
// The inputs are left untouched.
func (r *EstimationResult) Apply(nodes []Node, edges []Edge) ([]Node, []Edge) {
	outNodes := CloneNodes(nodes)
	for i := range outNodes {
		if c, ok := r.EstimatedHeatCapacities[outNodes[i].ID]; ok {
			outNodes[i].HeatCapacity = c
		}
	}
	outEdges := CloneEdges(edges)
	for i := range outEdges {
		if g, ok := r.EstimatedConductances[outEdges[i].ID]; ok {
			outEdges[i].Conductance = g
		}
	}
	return outNodes, outEdges
}

func CloneNodes(nodes []Node) []Node {
	c := make([]Node, len(nodes))
	copy(c, nodes)
	return c
}

func CloneEdges(edges []Edge) []Edge {
	c := make([]Edge, len(edges))
	copy(c, edges)
	return c
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
