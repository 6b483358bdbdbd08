package thermal

// Validate checks every precondition of a forward solve and returns the first
// violation as a *ValidationError. The order is fixed: node presence, time
// step, total time, total time vs step, node values, edge conductances, then
// node ids and edge references.
func Validate(nodes []Node, edges []Edge, settings Settings) error {
	if len(nodes) == 0 {
		return &ValidationError{Kind: ErrNoNodes, Entity: EntityNetwork, Index: -1}
	}
	if err := ValidateSettings(settings); err != nil {
		return err
	}
	return validateElements(nodes, edges)
}

// ValidateNetwork applies the node and edge rules of Validate without any
// time settings.
func ValidateNetwork(nodes []Node, edges []Edge) error {
	if len(nodes) == 0 {
		return &ValidationError{Kind: ErrNoNodes, Entity: EntityNetwork, Index: -1}
	}
	return validateElements(nodes, edges)
}

// ValidateSettings checks the time step and total time.
func ValidateSettings(s Settings) error {
	if !isFinite(s.TimeStep) || s.TimeStep <= 0 {
		return settingsError(ErrInvalidTimeStep, "time_step", s.TimeStep)
	}
	if !isFinite(s.TotalTime) || s.TotalTime <= 0 {
		return settingsError(ErrInvalidTotalTime, "total_time", s.TotalTime)
	}
	if s.TotalTime < s.TimeStep {
		return settingsError(ErrTotalTimeBeforeStep, "total_time", s.TotalTime)
	}
	return nil
}

func validateElements(nodes []Node, edges []Edge) error {
	for i, n := range nodes {
		if !isFinite(n.HeatCapacity) || n.HeatCapacity <= 0 {
			return nodeError(ErrInvalidHeatCapacity, i, n, "heat_capacity", n.HeatCapacity)
		}
		if !isFinite(n.InitialTemp) {
			return nodeError(ErrInvalidInitialTemp, i, n, "initial_temp", n.InitialTemp)
		}
		if n.IsFixed && !isFinite(n.FixedTemp) {
			return nodeError(ErrInvalidFixedTemp, i, n, "fixed_temp", n.FixedTemp)
		}
	}

	for i, e := range edges {
		if !isFinite(e.Conductance) || e.Conductance < 0 {
			return edgeError(ErrInvalidConductance, i, e, "conductance", e.Conductance)
		}
	}

	index, err := indexNodes(nodes)
	if err != nil {
		return err
	}
	for i, e := range edges {
		if _, ok := index[e.Source]; !ok {
			return edgeError(ErrDanglingEdge, i, e, "source", e.Source)
		}
		if _, ok := index[e.Target]; !ok {
			return edgeError(ErrDanglingEdge, i, e, "target", e.Target)
		}
	}
	return nil
}

func indexNodes(nodes []Node) (map[string]int, error) {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.ID]; dup {
			return nil, nodeError(ErrDuplicateNode, i, n, "id", n.ID)
		}
		index[n.ID] = i
	}
	return index, nil
}

func settingsError(kind error, field string, value float64) *ValidationError {
	return &ValidationError{Kind: kind, Entity: EntitySettings, Index: -1, Field: field, Value: value}
}

func nodeError(kind error, i int, n Node, field string, value any) *ValidationError {
	return &ValidationError{Kind: kind, Entity: EntityNode, Index: i, ID: n.ID, Name: n.Name, Field: field, Value: value}
}

func edgeError(kind error, i int, e Edge, field string, value any) *ValidationError {
	return &ValidationError{Kind: kind, Entity: EntityEdge, Index: i, ID: e.ID, Field: field, Value: value}
}
