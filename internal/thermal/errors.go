package thermal

import (
	"errors"
	"fmt"
)

// Domain errors. Every ValidationError and EstimationError unwraps to one of
// these so callers can branch with errors.Is.
var (
	// ErrNoNodes indicates an empty node list.
	ErrNoNodes = errors.New("thermal: network has no nodes")

	// ErrInvalidTimeStep indicates a time step that is not finite and positive.
	ErrInvalidTimeStep = errors.New("thermal: time step must be finite and > 0")

	// ErrInvalidTotalTime indicates a total time that is not finite and positive.
	ErrInvalidTotalTime = errors.New("thermal: total time must be finite and > 0")

	// ErrTotalTimeBeforeStep indicates a total time shorter than one step.
	ErrTotalTimeBeforeStep = errors.New("thermal: total time must be >= time step")

	ErrInvalidHeatCapacity = errors.New("thermal: heat capacity must be finite and > 0")
	ErrInvalidInitialTemp  = errors.New("thermal: initial temperature must be finite")
	ErrInvalidFixedTemp    = errors.New("thermal: fixed temperature must be finite")
	ErrInvalidConductance  = errors.New("thermal: conductance must be finite and >= 0")

	// ErrDuplicateNode indicates two nodes sharing one id.
	ErrDuplicateNode = errors.New("thermal: duplicate node id")

	// ErrDanglingEdge indicates an edge endpoint that names no node.
	ErrDanglingEdge = errors.New("thermal: edge references unknown node")

	// ErrNoMeasurements indicates estimation without any usable trace.
	ErrNoMeasurements = errors.New("thermal: no usable measurements")

	// ErrInvalidMeasurement indicates a malformed measurement trace.
	ErrInvalidMeasurement = errors.New("thermal: invalid measurement")

	// ErrInvalidEstimationSettings indicates bad optimizer configuration.
	ErrInvalidEstimationSettings = errors.New("thermal: invalid estimation settings")
)

// Entity tells which part of the input a ValidationError points at.
type Entity string

const (
	EntityNetwork  Entity = "network"
	EntitySettings Entity = "settings"
	EntityNode     Entity = "node"
	EntityEdge     Entity = "edge"
)

// ValidationError describes the first violated solver precondition.
type ValidationError struct {
	Kind   error // one of the Err* sentinels
	Entity Entity
	Index  int // position in the node or edge list, -1 when not applicable
	ID     string
	Name   string
	Field  string
	Value  any
}

func (e *ValidationError) Error() string {
	switch e.Entity {
	case EntityNode, EntityEdge:
		return fmt.Sprintf("%s: %s %s: %s = %v", e.Kind, e.Entity, e.describe(), e.Field, e.Value)
	case EntitySettings:
		return fmt.Sprintf("%s: %s = %v", e.Kind, e.Field, e.Value)
	default:
		return e.Kind.Error()
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func (e *ValidationError) describe() string {
	switch {
	case e.Name != "" && e.ID != "" && e.Name != e.ID:
		return fmt.Sprintf("%q (id %q, index %d)", e.Name, e.ID, e.Index)
	case e.Name != "":
		return fmt.Sprintf("%q (index %d)", e.Name, e.Index)
	case e.ID != "":
		return fmt.Sprintf("%q (index %d)", e.ID, e.Index)
	default:
		return fmt.Sprintf("#%d", e.Index)
	}
}

// Estimation stages reported by EstimationError.
const (
	StageSettings     = "settings"
	StageMeasurements = "measurements"
	StageInitial      = "initial evaluation"
	StageSearch       = "search"
)

// EstimationError reports a failure that prevented an estimation run from
// producing a result.
type EstimationError struct {
	Stage   string
	Wrapped error
}

func (e *EstimationError) Error() string {
	return fmt.Sprintf("thermal: estimation failed at %s: %v", e.Stage, e.Wrapped)
}

func (e *EstimationError) Unwrap() error {
	return e.Wrapped
}
