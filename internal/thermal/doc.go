// Package thermal provides the core value types of a lumped-parameter thermal
// network and the rules that make a network valid.
//
// A network is a list of [Node] values (heat capacity + temperature) joined by
// undirected [Edge] values (conductance). The package defines:
//
//   - [Node], [Edge]: network definition as supplied by the caller
//   - [Settings]: time step and span of a forward solve
//   - [Result]: sampled temperature series produced by a solve
//   - [Measurement], [EstimationSettings], [EstimationResult]: inputs and
//     outputs of parameter estimation
//   - [Network]: an index-based compiled form with precomputed adjacency
//   - [ValidationError], [EstimationError]: the error taxonomy
//
// # Example
//
//	net, err := thermal.Compile(nodes, edges, settings)
//	if err != nil {
//		var verr *thermal.ValidationError
//		if errors.As(err, &verr) { ... }
//	}
//
// # Thread Safety
//
// All types are plain values. A compiled [Network] is read-only after
// [Compile] returns and may be shared between goroutines.
package thermal
