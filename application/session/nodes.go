package session

import (
	"strings"

	"go.uber.org/zap"

	"strategy-editor/domain/core/aggregates"
	"strategy-editor/domain/core/catalog"
	"strategy-editor/domain/core/entities"
	"strategy-editor/domain/core/valueobjects"
	"strategy-editor/domain/events"
	pkgerrors "strategy-editor/pkg/errors"
)

// DefaultPosition is where a palette node lands when no drop point is given
var DefaultPosition = valueobjects.MustPosition(400, 300)

// DuplicateOffset shifts a duplicated node away from its original
const DuplicateOffset = 40.0

const copySuffix = " Copy"

// AddNode inserts a fully built node
func (s *Session) AddNode(n *entities.Node) error {
	if n == nil {
		return pkgerrors.NewValidationError("node cannot be nil")
	}
	return s.apply(events.MutationAddNode, n.ID().String(), "", func(g *aggregates.Graph) (*aggregates.Graph, error) {
		return g.AddNode(n)
	})
}

// AddNodeOfType creates a node from the palette with a fresh id and the
// catalog defaults, and selects it. A blank name falls back to the catalog
// label.
func (s *Session) AddNodeOfType(t catalog.NodeType, name string, at *valueobjects.Position) (*entities.Node, error) {
	pos := DefaultPosition
	if at != nil {
		pos = *at
	}
	n, err := entities.NewNode(valueobjects.NewNodeID(), t, name, pos)
	if err != nil {
		return nil, err
	}
	if err := s.AddNode(n); err != nil {
		return nil, err
	}
	s.selection = Selection{NodeID: n.ID().String()}
	return n, nil
}

// RemoveNode deletes a node together with its incident edges
func (s *Session) RemoveNode(id string) error {
	nid, err := valueobjects.NewNodeIDFromString(id)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return s.apply(events.MutationRemoveNode, id, "", func(g *aggregates.Graph) (*aggregates.Graph, error) {
		return g.RemoveNode(nid)
	})
}

// UpdateNode merges name, position and configuration changes into a node
func (s *Session) UpdateNode(id string, update aggregates.NodeUpdate) error {
	nid, err := valueobjects.NewNodeIDFromString(id)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	if update.IsEmpty() {
		return nil
	}
	return s.apply(events.MutationUpdateNode, id, "", func(g *aggregates.Graph) (*aggregates.Graph, error) {
		return g.UpdateNode(nid, update)
	})
}

// RenameNode sets a node's display name. An unchanged name is not a step.
func (s *Session) RenameNode(id, name string) error {
	n, ok := s.Node(id)
	if !ok {
		return pkgerrors.NewNotFoundError("node " + id)
	}
	name = strings.TrimSpace(name)
	if n.Name() == name {
		return nil
	}
	return s.UpdateNode(id, aggregates.NodeUpdate{Name: &name})
}

// DuplicateNode copies a node, configuration included, next to the original
// and selects the copy. Edges are not copied.
func (s *Session) DuplicateNode(id string) (*entities.Node, error) {
	src, ok := s.Node(id)
	if !ok {
		return nil, pkgerrors.NewNotFoundError("node " + id)
	}
	pos, err := src.Position().Translate(DuplicateOffset, DuplicateOffset)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}
	name := src.Name()
	if len(name)+len(copySuffix) <= entities.MaxNameLength {
		name += copySuffix
	}
	n, err := entities.ReconstructNode(valueobjects.NewNodeID(), src.Type(), name, pos, src.Config())
	if err != nil {
		return nil, err
	}
	if err := s.AddNode(n); err != nil {
		return nil, err
	}
	s.selection = Selection{NodeID: n.ID().String()}
	return n, nil
}

// Connect adds an edge from an output port to an input port
func (s *Session) Connect(sourceID, sourcePort, targetID, targetPort string) (*entities.Edge, error) {
	src, err := valueobjects.NewNodeIDFromString(sourceID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("connection has no source node")
	}
	tgt, err := valueobjects.NewNodeIDFromString(targetID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("connection has no target node")
	}
	edge, err := entities.NewEdge(valueobjects.NewEdgeID(), src, sourcePort, tgt, targetPort)
	if err != nil {
		return nil, err
	}
	if err := s.AddEdge(edge); err != nil {
		return nil, err
	}
	return edge, nil
}

// AddEdge inserts a fully built edge
func (s *Session) AddEdge(e *entities.Edge) error {
	if e == nil {
		return pkgerrors.NewValidationError("edge cannot be nil")
	}
	return s.apply(events.MutationAddEdge, "", e.ID().String(), func(g *aggregates.Graph) (*aggregates.Graph, error) {
		return g.AddEdge(e)
	})
}

// RemoveEdge deletes an edge
func (s *Session) RemoveEdge(id string) error {
	eid, err := valueobjects.NewEdgeIDFromString(id)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return s.apply(events.MutationRemoveEdge, "", id, func(g *aggregates.Graph) (*aggregates.Graph, error) {
		return g.RemoveEdge(eid)
	})
}

// RetargetEdge moves one end of an edge to nodeID. An empty port picks the
// port the graph's re-target rule resolves.
func (s *Session) RetargetEdge(edgeID string, end entities.End, nodeID, port string) error {
	eid, err := valueobjects.NewEdgeIDFromString(edgeID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	nid, err := valueobjects.NewNodeIDFromString(nodeID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return s.apply(events.MutationRetargetEdge, nodeID, edgeID, func(g *aggregates.Graph) (*aggregates.Graph, error) {
		return g.RetargetEdge(eid, end, nid, port)
	})
}

// BeginDrag starts moving a node. Positions set until EndDrag bypass
// history and validation.
func (s *Session) BeginDrag(id string) error {
	n, ok := s.Node(id)
	if !ok {
		return pkgerrors.NewNotFoundError("node " + id)
	}
	s.finishDrag()
	s.drag = &dragState{nodeID: n.ID(), start: n.Position(), pre: s.graph}
	return nil
}

// DragTo moves the dragged node. It performs no I/O, no validation and
// records no history.
func (s *Session) DragTo(pos valueobjects.Position) error {
	if s.drag == nil {
		return pkgerrors.NewConflictError("no node is being dragged")
	}
	next, err := s.graph.MoveNode(s.drag.nodeID, pos)
	if err != nil {
		return err
	}
	s.graph = next
	return nil
}

// EndDrag finishes a drag. A node that ended where it started leaves no
// history entry; otherwise the whole drag is one undoable step. It reports
// whether a step was recorded.
func (s *Session) EndDrag() bool {
	d := s.drag
	if d == nil {
		return false
	}
	s.drag = nil
	n, ok := s.graph.Node(d.nodeID)
	if !ok || n.Position().Equals(d.start) {
		s.graph = d.pre
		return false
	}
	s.logger.Debug("Drag committed",
		zap.String("nodeID", d.nodeID.String()),
		zap.Float64("x", n.Position().X()),
		zap.Float64("y", n.Position().Y()),
	)
	s.commit(d.pre, s.graph, events.MutationMoveNode, d.nodeID.String(), "")
	return true
}

// CancelDrag puts the dragged node back where the drag started
func (s *Session) CancelDrag() {
	if s.drag == nil {
		return
	}
	s.graph = s.drag.pre
	s.drag = nil
}

// MoveNode sets a node's position as one undoable step
func (s *Session) MoveNode(id string, pos valueobjects.Position) error {
	nid, err := valueobjects.NewNodeIDFromString(id)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return s.apply(events.MutationMoveNode, id, "", func(g *aggregates.Graph) (*aggregates.Graph, error) {
		return g.MoveNode(nid, pos)
	})
}
