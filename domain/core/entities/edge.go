package entities

import (
	"strings"

	"strategy-editor/domain/core/valueobjects"
	pkgerrors "strategy-editor/pkg/errors"
)

// End names one endpoint of an edge
type End string

const (
	EndNone   End = ""
	EndSource End = "source"
	EndTarget End = "target"
)

// ParseEnd validates an endpoint name; the empty string means no end
func ParseEnd(s string) (End, error) {
	switch End(s) {
	case EndNone, EndSource, EndTarget:
		return End(s), nil
	}
	return EndNone, pkgerrors.NewValidationErrorf("unknown edge end %q", s)
}

// Edge connects an output port of one node to an input port of another.
// Like Node it is immutable.
type Edge struct {
	id         valueobjects.EdgeID
	sourceID   valueobjects.NodeID
	sourcePort string
	targetID   valueobjects.NodeID
	targetPort string
}

// NewEdge creates an edge. Whether the endpoints exist is checked by the graph.
func NewEdge(
	id valueobjects.EdgeID,
	sourceID valueobjects.NodeID, sourcePort string,
	targetID valueobjects.NodeID, targetPort string,
) (*Edge, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("edge ID cannot be empty")
	}
	if sourceID.IsZero() || targetID.IsZero() {
		return nil, pkgerrors.NewValidationError("edge endpoints cannot be empty")
	}
	sourcePort = strings.TrimSpace(sourcePort)
	targetPort = strings.TrimSpace(targetPort)
	if sourcePort == "" || targetPort == "" {
		return nil, pkgerrors.NewValidationError("edge ports cannot be empty")
	}
	return &Edge{
		id:         id,
		sourceID:   sourceID,
		sourcePort: sourcePort,
		targetID:   targetID,
		targetPort: targetPort,
	}, nil
}

func (e *Edge) ID() valueobjects.EdgeID       { return e.id }
func (e *Edge) SourceID() valueobjects.NodeID { return e.sourceID }
func (e *Edge) SourcePort() string            { return e.sourcePort }
func (e *Edge) TargetID() valueobjects.NodeID { return e.targetID }
func (e *Edge) TargetPort() string            { return e.targetPort }

// Touches reports whether the node is either endpoint
func (e *Edge) Touches(id valueobjects.NodeID) bool {
	return e.sourceID.Equals(id) || e.targetID.Equals(id)
}

// IsSelfLoop reports whether both endpoints are the same node
func (e *Edge) IsSelfLoop() bool {
	return e.sourceID.Equals(e.targetID)
}

// SameEndpoints reports whether two edges connect the same ports
func (e *Edge) SameEndpoints(other *Edge) bool {
	return e.sourceID.Equals(other.sourceID) && e.sourcePort == other.sourcePort &&
		e.targetID.Equals(other.targetID) && e.targetPort == other.targetPort
}

// WithEnd returns a copy whose end is moved to node/port. The edge keeps its id.
func (e *Edge) WithEnd(end End, node valueobjects.NodeID, port string) (*Edge, error) {
	out := *e
	switch end {
	case EndSource:
		out.sourceID, out.sourcePort = node, port
	case EndTarget:
		out.targetID, out.targetPort = node, port
	default:
		return nil, pkgerrors.NewValidationError("an edge end must be chosen")
	}
	return NewEdge(out.id, out.sourceID, out.sourcePort, out.targetID, out.targetPort)
}

// Equals compares ids and endpoints
func (e *Edge) Equals(other *Edge) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.id.Equals(other.id) && e.SameEndpoints(other)
}
